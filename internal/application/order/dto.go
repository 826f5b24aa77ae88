package order

import (
	"time"

	domain "github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ItemInput is one requested order line
// Only product and quantity come from the client; prices are resolved
// server-side
type ItemInput struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// AddressInput is an explicit shipping address in a create request
type AddressInput struct {
	Street     string `json:"street" binding:"required,max=255"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20"`
	Country    string `json:"country" binding:"required,max=100"`
}

// CreateOrderRequest creates a new order
// ShippingAddress is optional; when omitted the user's default address
// is resolved from the identity service
type CreateOrderRequest struct {
	Items           []ItemInput     `json:"items" binding:"required,min=1,dive"`
	PaymentMethod   string          `json:"payment_method" binding:"required,payment_method"`
	ShippingAddress *AddressInput   `json:"shipping_address"`
	CustomerNotes   string          `json:"customer_notes" binding:"max=1000"`
	Discount        decimal.Decimal `json:"discount"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RefundOrderRequest refunds a delivered order
type RefundOrderRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// UpdateStatusRequest moves an order along the fulfilment flow
type UpdateStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
	Notes          string `json:"notes" binding:"max=1000"`
}

// ListOrdersQuery narrows an order listing
type ListOrdersQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit,default=20" binding:"min=0,max=100"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}

// ItemResponse is one order line in a response
type ItemResponse struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductSKU   string          `json:"product_sku,omitempty"`
	ProductImage string          `json:"product_image,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Discount     decimal.Decimal `json:"discount"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Total        decimal.Decimal `json:"total"`
}

// OrderResponse is the full order representation
type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          string              `json:"user_id"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	PaymentMethod   string              `json:"payment_method"`
	Items           []ItemResponse      `json:"items"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Tax             decimal.Decimal     `json:"tax"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	Discount        decimal.Decimal     `json:"discount"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ShippingAddress valueobject.Address `json:"shipping_address"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	CustomerNotes   string              `json:"customer_notes,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// ListResponse is a paginated order listing
type ListResponse struct {
	Orders     []*OrderResponse `json:"orders"`
	TotalCount int64            `json:"total_count"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
	HasMore    bool             `json:"has_more"`
}

func toItemResponse(item domain.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID.String(),
		ProductID:    item.ProductID,
		ProductName:  item.ProductName,
		ProductSKU:   item.ProductSKU,
		ProductImage: item.ProductImage,
		UnitPrice:    item.UnitPrice,
		Quantity:     item.Quantity,
		Discount:     item.Discount,
		Subtotal:     item.Subtotal,
		Total:        item.Total,
	}
}

func toOrderResponse(o *domain.Order) *OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, toItemResponse(item))
	}
	return &OrderResponse{
		ID:              o.ID.String(),
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          o.Status.String(),
		PaymentStatus:   o.PaymentStatus.String(),
		PaymentMethod:   o.PaymentMethod.String(),
		Items:           items,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		ShippingCost:    o.ShippingCost,
		Discount:        o.Discount,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		TrackingNumber:  o.TrackingNumber,
		CustomerNotes:   o.CustomerNotes,
		CancelReason:    o.CancelReason,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toListResponse(orders []*domain.Order, total int64, limit, offset int) *ListResponse {
	responses := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, toOrderResponse(o))
	}
	return &ListResponse{
		Orders:     responses,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+len(orders)) < total,
	}
}
