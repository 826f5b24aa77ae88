package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecom/order-backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Line validation statuses reported by the inventory service
const (
	LineStatusOK                = "ok"
	LineStatusNotFound          = "not_found"
	LineStatusInactive          = "inactive"
	LineStatusInsufficientStock = "insufficient_stock"
	LineStatusUnavailable       = "unavailable"
)

// ProductSnapshot is the product data captured at validation time
// Orders freeze these values so later catalog edits never rewrite history
type ProductSnapshot struct {
	ProductID string
	Name      string
	SKU       string
	Price     decimal.Decimal
	ImageURL  string
}

// ItemRequest asks the inventory service to validate one product line
type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// LineValidation is the per-line verdict from the inventory service
type LineValidation struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Status    string           `json:"status"`
	Available int64            `json:"available"`
	Message   string           `json:"message,omitempty"`
	Product   *ProductSnapshot `json:"-"`
}

// OK reports whether the line passed validation
func (v LineValidation) OK() bool {
	return v.Status == LineStatusOK
}

// LineValidationError aggregates every failed line so the caller sees all
// problems in one response instead of fixing them one at a time
type LineValidationError struct {
	Lines []LineValidation
}

// Error implements the error interface
func (e *LineValidationError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, line := range e.Lines {
		parts = append(parts, fmt.Sprintf("%s: %s", line.ProductID, line.Status))
	}
	return "order validation failed: " + strings.Join(parts, "; ")
}

// InventoryGateway is the port to the inventory service
type InventoryGateway interface {
	// ValidateItems checks all lines in one batch call and returns a
	// verdict per line. Transport failures and timeouts are returned as
	// an error, not folded into line statuses.
	ValidateItems(ctx context.Context, items []ItemRequest) ([]LineValidation, error)

	// AdjustStock changes a product's stock by delta (negative decrements)
	// and returns the resulting quantity
	AdjustStock(ctx context.Context, productID string, delta int64) (int64, error)
}

// IdentityGateway is the port to the identity service
type IdentityGateway interface {
	// ResolveDefaultAddress returns the user's default shipping address,
	// or shared.ErrNoAddressOnFile when none is configured
	ResolveDefaultAddress(ctx context.Context, userID string) (*valueobject.Address, error)
}
