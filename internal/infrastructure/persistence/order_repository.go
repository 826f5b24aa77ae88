package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	orderNumberPrefix     = "ORD"
	orderNumberDateLayout = "060102"
	orderNumberSeqDigits  = 4
	maxOrderNumberRetries = 3
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
	// now is replaceable in tests to pin the order number date part
	now func() time.Time
	// nextNumber is replaceable in tests to force a number collision
	nextNumber func(tx *gorm.DB) (string, error)
}

// NewOrderRepository creates a new GORM-based order repository
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	r := &GormOrderRepository{db: db, now: time.Now}
	r.nextNumber = r.nextOrderNumber
	return r
}

// Create persists the order and its items in one transaction. The order
// number is allocated inside the same transaction; a concurrent writer
// grabbing the same number trips the unique index and the whole insert
// is retried with a fresh number.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := r.nextNumber(tx)
			if err != nil {
				return err
			}
			o.OrderNumber = number
			return tx.Create(o).Error
		})
		if err == nil {
			return nil
		}
		if !isDuplicateOrderNumber(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("failed to allocate order number after %d attempts: %w", maxOrderNumberRetries, lastErr)
}

// nextOrderNumber builds ORD<yymmdd><seq> where seq restarts at 0001
// each day
func (r *GormOrderRepository) nextOrderNumber(tx *gorm.DB) (string, error) {
	prefix := orderNumberPrefix + r.now().Format(orderNumberDateLayout)

	var last string
	err := tx.Model(&order.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &last).Error
	if err != nil {
		return "", fmt.Errorf("failed to query last order number: %w", err)
	}

	seq := 1
	if last != "" {
		parsed, err := strconv.Atoi(last[len(prefix):])
		if err != nil {
			return "", fmt.Errorf("malformed order number %q: %w", last, err)
		}
		seq = parsed + 1
	}
	if seq > 9999 {
		return "", fmt.Errorf("order number sequence exhausted for %s", prefix)
	}

	return fmt.Sprintf("%s%0*d", prefix, orderNumberSeqDigits, seq), nil
}

// isDuplicateOrderNumber detects a unique index violation on insert
func isDuplicateOrderNumber(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// FindByID retrieves an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &o, nil
}

// FindByUser lists one user's orders, newest first, with the total count
func (r *GormOrderRepository) FindByUser(ctx context.Context, userID string, filter order.ListFilter) ([]*order.Order, int64, error) {
	filter.UserID = userID
	return r.list(ctx, filter)
}

// FindAll lists orders across all users, newest first, with the total count
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.ListFilter) ([]*order.Order, int64, error) {
	return r.list(ctx, filter)
}

func (r *GormOrderRepository) list(ctx context.Context, filter order.ListFilter) ([]*order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var orders []*order.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// TransitionToCancelled cancels an order still in a cancellable state.
// The WHERE clause carries the state guard so two concurrent cancels
// cannot both succeed.
func (r *GormOrderRepository) TransitionToCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND status IN ?", id, []order.Status{order.StatusPending, order.StatusConfirmed}).
		Updates(map[string]interface{}{
			"status":        order.StatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
			"updated_at":    at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to cancel order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

// TransitionToPaid confirms a pending, unpaid order
func (r *GormOrderRepository) TransitionToPaid(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, order.StatusPending, order.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": order.PaymentStatusPaid,
			"status":         order.StatusConfirmed,
			"paid_at":        at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark order as paid: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

// TransitionToRefunded refunds a delivered, paid order
func (r *GormOrderRepository) TransitionToRefunded(ctx context.Context, id uuid.UUID, internalNotes string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, order.StatusDelivered, order.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"status":         order.StatusRefunded,
			"payment_status": order.PaymentStatusRefunded,
			"internal_notes": internalNotes,
			"updated_at":     at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to refund order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

// TransitionStatus moves the fulfilment status with extra column updates
// applied in the same statement
func (r *GormOrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to order.Status, updates map[string]interface{}) error {
	values := map[string]interface{}{
		"status":     to,
		"updated_at": r.now(),
	}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

// transitionFailure distinguishes a missing order from a state guard
// rejecting the update
func (r *GormOrderRepository) transitionFailure(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check order existence: %w", err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrInvalidState
}

// Ensure GormOrderRepository implements the repository interface
var _ order.Repository = (*GormOrderRepository)(nil)
