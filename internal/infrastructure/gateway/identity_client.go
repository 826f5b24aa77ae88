package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/ecom/order-backend/internal/domain/shared/valueobject"
	"github.com/ecom/order-backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdentityClient talks to the identity service over HTTP
type IdentityClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewIdentityClient creates a new identity service client
func NewIdentityClient(cfg config.GatewayConfig, logger *zap.Logger) (*IdentityClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("identity base URL cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.Named("identity_client"),
	}, nil
}

type addressPayload struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ResolveDefaultAddress fetches the user's default shipping address
// A user without one yields shared.ErrNoAddressOnFile
func (c *IdentityClient) ResolveDefaultAddress(ctx context.Context, userID string) (*valueobject.Address, error) {
	path := fmt.Sprintf("/api/v1/users/%s/addresses/default", userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("identity request failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("identity service unreachable: %w", shared.ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", shared.ErrCollaboratorUnavailable)
	}

	switch {
	case resp.StatusCode >= 500:
		c.logger.Warn("identity service error",
			zap.String("user_id", userID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("identity service returned %d: %w", resp.StatusCode, shared.ErrCollaboratorUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrNoAddressOnFile
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity service returned unexpected status %d", resp.StatusCode)
	}

	var payload addressPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	addr, err := valueobject.NewAddress(payload.Street, payload.City, payload.State, payload.PostalCode, payload.Country)
	if err != nil {
		return nil, fmt.Errorf("identity service returned incomplete address: %w", err)
	}
	return &addr, nil
}

var _ order.IdentityGateway = (*IdentityClient)(nil)
