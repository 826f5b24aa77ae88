package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Discrepancy statuses
const (
	DiscrepancyStatusPending  = "pending"
	DiscrepancyStatusResolved = "resolved"
)

// StockDiscrepancy records an inventory adjustment that failed after the
// order state had already been committed locally. Each row is a manual
// reconciliation task for operations.
type StockDiscrepancy struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderNumber string    `gorm:"size:20;not null"`
	ProductID   string    `gorm:"size:64;not null"`
	Delta       int64     `gorm:"not null"`
	Operation   string    `gorm:"size:20;not null"`
	Reason      string    `gorm:"size:500"`
	Status      string    `gorm:"size:20;not null;default:pending"`
	CreatedAt   time.Time `gorm:"not null"`
	ResolvedAt  *time.Time
}

// TableName returns the database table name
func (StockDiscrepancy) TableName() string {
	return "stock_discrepancies"
}

// NewStockDiscrepancy creates a pending discrepancy record
func NewStockDiscrepancy(orderID uuid.UUID, orderNumber, productID string, delta int64, operation, reason string) *StockDiscrepancy {
	return &StockDiscrepancy{
		ID:          uuid.New(),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		ProductID:   productID,
		Delta:       delta,
		Operation:   operation,
		Reason:      reason,
		Status:      DiscrepancyStatusPending,
		CreatedAt:   time.Now(),
	}
}

// DiscrepancyRepository persists stock discrepancy records
type DiscrepancyRepository interface {
	Save(ctx context.Context, d *StockDiscrepancy) error
	FindPending(ctx context.Context, limit int) ([]*StockDiscrepancy, error)
}
