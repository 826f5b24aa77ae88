package order

import (
	"fmt"
	"time"

	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/ecom/order-backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the fulfilment status of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusShipped
	case StatusShipped:
		return target == StatusDelivered
	case StatusDelivered:
		return target == StatusRefunded
	case StatusCancelled, StatusRefunded:
		return false // Terminal states
	}
	return false
}

// PaymentStatus tracks payment independently of fulfilment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the payment status can transition to the target
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusPaid || target == PaymentStatusFailed
	case PaymentStatusPaid:
		return target == PaymentStatusRefunded
	case PaymentStatusFailed, PaymentStatusRefunded:
		return false
	}
	return false
}

// PaymentMethod is the closed set of accepted payment methods
type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodEWallet        PaymentMethod = "e_wallet"
)

// IsValid checks if the payment method is one of the accepted values
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodBankTransfer,
		PaymentMethodCashOnDelivery, PaymentMethodEWallet:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Item is a line item in an order
// Product name, SKU, image and unit price are snapshots taken from the
// inventory service at creation time and never change afterwards
type Item struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    string          `gorm:"size:64;not null"`
	ProductName  string          `gorm:"size:255;not null"`
	ProductSKU   string          `gorm:"size:100"`
	ProductImage string          `gorm:"size:512"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity     int             `gorm:"not null"`
	Discount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the database table name for order items
func (Item) TableName() string {
	return "order_items"
}

// NewItem creates a new order line item from a product snapshot
func NewItem(orderID uuid.UUID, productID, productName, productSKU, productImage string, quantity int, unitPrice valueobject.Money) (*Item, error) {
	if productID == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	subtotal := unitPrice.MultiplyByInt(int64(quantity)).Round(2)

	return &Item{
		ID:           uuid.New(),
		OrderID:      orderID,
		ProductID:    productID,
		ProductName:  productName,
		ProductSKU:   productSKU,
		ProductImage: productImage,
		UnitPrice:    unitPrice.Amount(),
		Quantity:     quantity,
		Discount:     decimal.Zero,
		Subtotal:     subtotal.Amount(),
		Total:        subtotal.Amount(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetUnitPriceMoney returns the unit price as Money
func (i *Item) GetUnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(i.UnitPrice)
}

// GetTotalMoney returns the line total as Money
func (i *Item) GetTotalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(i.Total)
}

// Order is the order aggregate root
// The order service owns this record; product and user identifiers
// reference other services and are treated as opaque
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string              `gorm:"size:20;not null;uniqueIndex"`
	UserID          string              `gorm:"size:64;not null;index:idx_orders_user_created,priority:1"`
	Items           []Item              `gorm:"foreignKey:OrderID"`
	Status          Status              `gorm:"size:20;not null;default:pending"`
	PaymentStatus   PaymentStatus       `gorm:"size:20;not null;default:pending"`
	PaymentMethod   PaymentMethod       `gorm:"size:20;not null"`
	Subtotal        decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	Tax             decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	ShippingCost    decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	Discount        decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	ShippingAddress valueobject.Address `gorm:"embedded;embeddedPrefix:shipping_"`
	TrackingNumber  string              `gorm:"size:100"`
	CustomerNotes   string              `gorm:"size:1000"`
	InternalNotes   string              `gorm:"size:2000"`
	CancelReason    string              `gorm:"size:500"`
	PaidAt          *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// TableName returns the database table name for orders
func (Order) TableName() string {
	return "orders"
}

// New creates a new order in pending state
// The order number is assigned by the repository when the order is persisted
func New(userID string, paymentMethod PaymentMethod, shippingAddress valueobject.Address, customerNotes string) (*Order, error) {
	if userID == "" {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !paymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %q", paymentMethod))
	}
	if err := shippingAddress.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Items:             make([]Item, 0),
		Status:            StatusPending,
		PaymentStatus:     PaymentStatusPending,
		PaymentMethod:     paymentMethod,
		Subtotal:          decimal.Zero,
		Tax:               decimal.Zero,
		ShippingCost:      decimal.Zero,
		Discount:          decimal.Zero,
		TotalAmount:       decimal.Zero,
		ShippingAddress:   shippingAddress,
		CustomerNotes:     customerNotes,
	}, nil
}

// AddItem adds a line item built from a product snapshot
// Only allowed before the order is persisted (pending, unpriced)
func (o *Order) AddItem(productID, productName, productSKU, productImage string, quantity int, unitPrice valueobject.Money) (*Item, error) {
	if o.Status != StatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a non-pending order")
	}
	for _, item := range o.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists in order")
		}
	}

	item, err := NewItem(o.ID, productID, productName, productSKU, productImage, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.UpdatedAt = time.Now()

	return item, nil
}

// ApplyPricing recomputes all money fields from the line items and the
// pricing policy. Client-supplied totals are never trusted; this is the
// only way totals are set.
func (o *Order) ApplyPricing(policy PricingPolicy, discount decimal.Decimal) error {
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Order must contain at least one item")
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}

	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Subtotal)
	}
	if discount.GreaterThan(subtotal) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed subtotal")
	}

	tax, shipping := policy.Price(subtotal)

	o.Subtotal = subtotal.Round(2)
	o.Tax = tax
	o.ShippingCost = shipping
	o.Discount = discount.Round(2)
	o.TotalAmount = o.Subtotal.Add(o.Tax).Add(o.ShippingCost).Sub(o.Discount).Round(2)
	o.UpdatedAt = time.Now()

	return nil
}

// CanBeCancelled reports whether a cancel is allowed from the current status
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// CanBeRefunded reports whether a refund is allowed
// Refunds require a delivered order that has actually been paid
func (o *Order) CanBeRefunded() bool {
	return o.Status == StatusDelivered && o.PaymentStatus == PaymentStatusPaid
}

// Cancel cancels the order with a reason
func (o *Order) Cancel(reason string) error {
	if !o.CanBeCancelled() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now

	o.AddDomainEvent(NewCancelledEvent(o))

	return nil
}

// MarkPaid records a successful payment and confirms the order
func (o *Order) MarkPaid() error {
	if o.Status != StatusPending || o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Order must be pending and unpaid to be marked as paid")
	}

	now := time.Now()
	o.PaymentStatus = PaymentStatusPaid
	o.Status = StatusConfirmed
	o.PaidAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewPaidEvent(o))

	return nil
}

// Refund refunds a delivered, paid order
// The reason is appended to the internal notes for the support trail
func (o *Order) Refund(reason string) error {
	if !o.CanBeRefunded() {
		return shared.NewDomainError("INVALID_STATE", "Only delivered and paid orders can be refunded")
	}

	now := time.Now()
	o.Status = StatusRefunded
	o.PaymentStatus = PaymentStatusRefunded
	o.AppendInternalNote(fmt.Sprintf("Refunded: %s", reason))
	o.UpdatedAt = now

	o.AddDomainEvent(NewRefundedEvent(o, reason))

	return nil
}

// UpdateStatus moves the order along the fulfilment state machine
// shippedAt/deliveredAt are stamped on first entry into those states
func (o *Order) UpdateStatus(target Status) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown status %q", target))
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot transition order from %s to %s", o.Status, target))
	}

	now := time.Now()
	switch target {
	case StatusShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	}
	o.Status = target
	o.UpdatedAt = now

	return nil
}

// SetTrackingNumber sets the shipment tracking number
func (o *Order) SetTrackingNumber(trackingNumber string) {
	o.TrackingNumber = trackingNumber
	o.UpdatedAt = time.Now()
}

// AppendInternalNote appends a note visible to staff only
func (o *Order) AppendInternalNote(note string) {
	if note == "" {
		return
	}
	if o.InternalNotes == "" {
		o.InternalNotes = note
	} else {
		o.InternalNotes = o.InternalNotes + "\n" + note
	}
	o.UpdatedAt = time.Now()
}

// GetTotalAmountMoney returns the order total as Money
func (o *Order) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.TotalAmount)
}

// GetSubtotalMoney returns the order subtotal as Money
func (o *Order) GetSubtotalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.Subtotal)
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// TotalQuantity returns the sum of all line quantities
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// IsOwnedBy reports whether the order belongs to the given user
func (o *Order) IsOwnedBy(userID string) bool {
	return o.UserID == userID
}

// IsTerminal returns true if the order is cancelled or refunded
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCancelled || o.Status == StatusRefunded
}
