package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/ecom/order-backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxResponseSize caps response bodies read from collaborating services
const maxResponseSize = 1 << 20 // 1MB

// InventoryClient talks to the inventory service over HTTP
type InventoryClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewInventoryClient creates a new inventory service client
func NewInventoryClient(cfg config.GatewayConfig, logger *zap.Logger) (*InventoryClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("inventory base URL cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.Named("inventory_client"),
	}, nil
}

type validateItemsRequest struct {
	Items []order.ItemRequest `json:"items"`
}

type productPayload struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
}

type lineResultPayload struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Status    string          `json:"status"`
	Available int64           `json:"available"`
	Message   string          `json:"message"`
	Product   *productPayload `json:"product"`
}

type validateItemsResponse struct {
	Results []lineResultPayload `json:"results"`
}

// ValidateItems checks all lines in one batch call against the inventory
// service
func (c *InventoryClient) ValidateItems(ctx context.Context, items []order.ItemRequest) ([]order.LineValidation, error) {
	var resp validateItemsResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/products/validate",
		validateItemsRequest{Items: items}, &resp)
	if err != nil {
		return nil, err
	}

	validations := make([]order.LineValidation, 0, len(resp.Results))
	for _, result := range resp.Results {
		v := order.LineValidation{
			ProductID: result.ProductID,
			Quantity:  result.Quantity,
			Status:    result.Status,
			Available: result.Available,
			Message:   result.Message,
		}
		if result.Product != nil {
			v.Product = &order.ProductSnapshot{
				ProductID: result.Product.ProductID,
				Name:      result.Product.Name,
				SKU:       result.Product.SKU,
				Price:     result.Product.Price,
				ImageURL:  result.Product.ImageURL,
			}
		}
		validations = append(validations, v)
	}
	return validations, nil
}

type adjustStockRequest struct {
	Delta int64 `json:"delta"`
}

type adjustStockResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// AdjustStock changes a product's stock by delta and returns the
// resulting quantity
func (c *InventoryClient) AdjustStock(ctx context.Context, productID string, delta int64) (int64, error) {
	path := fmt.Sprintf("/api/v1/products/%s/stock/adjust", productID)
	var resp adjustStockResponse
	if err := c.doJSON(ctx, http.MethodPost, path, adjustStockRequest{Delta: delta}, &resp); err != nil {
		return 0, err
	}
	return resp.Quantity, nil
}

// doJSON performs a JSON request against the inventory service and
// decodes the response. Transport failures and 5xx responses surface as
// shared.ErrCollaboratorUnavailable.
func (c *InventoryClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("inventory request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("inventory service unreachable: %w", shared.ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", shared.ErrCollaboratorUnavailable)
	}

	switch {
	case resp.StatusCode >= 500:
		c.logger.Warn("inventory service error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("inventory service returned %d: %w", resp.StatusCode, shared.ErrCollaboratorUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return shared.ErrInsufficientStock
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("inventory service returned unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode inventory response: %w", err)
	}
	return nil
}

var _ order.InventoryGateway = (*InventoryClient)(nil)
