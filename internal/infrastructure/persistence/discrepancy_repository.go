package persistence

import (
	"context"
	"fmt"

	"github.com/ecom/order-backend/internal/domain/order"
	"gorm.io/gorm"
)

// GormDiscrepancyRepository implements order.DiscrepancyRepository using GORM
type GormDiscrepancyRepository struct {
	db *gorm.DB
}

// NewDiscrepancyRepository creates a new GORM-based discrepancy repository
func NewDiscrepancyRepository(db *gorm.DB) *GormDiscrepancyRepository {
	return &GormDiscrepancyRepository{db: db}
}

// Save persists a discrepancy record
func (r *GormDiscrepancyRepository) Save(ctx context.Context, d *order.StockDiscrepancy) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to save stock discrepancy: %w", err)
	}
	return nil
}

// FindPending lists unresolved discrepancies, oldest first
func (r *GormDiscrepancyRepository) FindPending(ctx context.Context, limit int) ([]*order.StockDiscrepancy, error) {
	if limit <= 0 {
		limit = 50
	}
	var discrepancies []*order.StockDiscrepancy
	err := r.db.WithContext(ctx).
		Where("status = ?", order.DiscrepancyStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&discrepancies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending discrepancies: %w", err)
	}
	return discrepancies, nil
}

var _ order.DiscrepancyRepository = (*GormDiscrepancyRepository)(nil)
