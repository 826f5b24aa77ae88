package order

import (
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder identifies the order aggregate in event metadata
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeCreated               = "order.created"
	EventTypePaid                  = "order.paid"
	EventTypeCancelled             = "order.cancelled"
	EventTypeRefunded              = "order.refunded"
	EventTypeStatusChanged         = "order.status_changed"
	EventTypeStockAdjustmentFailed = "order.stock_adjustment_failed"
)

// CreatedEvent is published after an order has been persisted
type CreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewCreatedEvent creates an order created event
func NewCreatedEvent(o *Order) *CreatedEvent {
	return &CreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreated, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		ItemCount:       o.ItemCount(),
		TotalAmount:     o.TotalAmount,
	}
}

// EventType returns the event type
func (e *CreatedEvent) EventType() string {
	return EventTypeCreated
}

// PaidEvent is published when payment is recorded against an order
type PaidEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Method      PaymentMethod   `json:"payment_method"`
}

// NewPaidEvent creates an order paid event
func NewPaidEvent(o *Order) *PaidEvent {
	return &PaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaid, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount,
		Method:          o.PaymentMethod,
	}
}

// EventType returns the event type
func (e *PaidEvent) EventType() string {
	return EventTypePaid
}

// CancelledEvent is published after an order is cancelled
type CancelledEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	Reason      string `json:"reason"`
}

// NewCancelledEvent creates an order cancelled event
func NewCancelledEvent(o *Order) *CancelledEvent {
	return &CancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCancelled, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Reason:          o.CancelReason,
	}
}

// EventType returns the event type
func (e *CancelledEvent) EventType() string {
	return EventTypeCancelled
}

// RefundedEvent is published after a delivered order is refunded
type RefundedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Reason      string          `json:"reason"`
}

// NewRefundedEvent creates an order refunded event
func NewRefundedEvent(o *Order, reason string) *RefundedEvent {
	return &RefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefunded, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount,
		Reason:          reason,
	}
}

// EventType returns the event type
func (e *RefundedEvent) EventType() string {
	return EventTypeRefunded
}

// StatusChangedEvent is published when the fulfilment status moves
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	FromStatus  Status `json:"from_status"`
	ToStatus    Status `json:"to_status"`
}

// NewStatusChangedEvent creates a status changed event
func NewStatusChangedEvent(o *Order, from, to Status) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatusChanged, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		FromStatus:      from,
		ToStatus:        to,
	}
}

// EventType returns the event type
func (e *StatusChangedEvent) EventType() string {
	return EventTypeStatusChanged
}

// StockAdjustmentFailedEvent records an inventory adjustment that did not
// go through after the order state was already committed. Operations staff
// use these to reconcile stock manually.
type StockAdjustmentFailedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	ProductID   string `json:"product_id"`
	Delta       int64  `json:"delta"`
	Operation   string `json:"operation"`
	Reason      string `json:"reason"`
}

// NewStockAdjustmentFailedEvent creates a stock adjustment failed event
func NewStockAdjustmentFailedEvent(o *Order, productID string, delta int64, operation, reason string) *StockAdjustmentFailedEvent {
	return &StockAdjustmentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjustmentFailed, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		ProductID:       productID,
		Delta:           delta,
		Operation:       operation,
		Reason:          reason,
	}
}

// EventType returns the event type
func (e *StockAdjustmentFailedEvent) EventType() string {
	return EventTypeStockAdjustmentFailed
}
