package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/ecom/order-backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&order.Order{}, &order.Item{}, &order.StockDiscrepancy{}))
	return db
}

func newTestRepo(t *testing.T, at time.Time) *GormOrderRepository {
	t.Helper()
	repo := NewOrderRepository(newTestDB(t))
	repo.now = func() time.Time { return at }
	return repo
}

func buildOrder(t *testing.T, userID string, quantity int) *order.Order {
	t.Helper()
	addr, err := valueobject.NewAddress("123 Main St", "Springfield", "IL", "62704", "USA")
	require.NoError(t, err)
	o, err := order.New(userID, order.PaymentMethodCreditCard, addr, "")
	require.NoError(t, err)
	price, err := valueobject.NewMoneyUSDFromString("25.00")
	require.NoError(t, err)
	_, err = o.AddItem("prod-"+uuid.NewString()[:8], "Widget", "SKU-1", "", quantity, price)
	require.NoError(t, err)
	require.NoError(t, o.ApplyPricing(order.DefaultPricingPolicy(), decimal.Zero))
	return o
}

func TestCreateAssignsOrderNumbers(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	repo := newTestRepo(t, day)

	first := buildOrder(t, "user-1", 1)
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "ORD2608310001", first.OrderNumber)

	second := buildOrder(t, "user-1", 2)
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, "ORD2608310002", second.OrderNumber)

	// A new day restarts the sequence
	repo.now = func() time.Time { return day.AddDate(0, 0, 1) }
	third := buildOrder(t, "user-2", 1)
	require.NoError(t, repo.Create(ctx, third))
	assert.Equal(t, "ORD2609010001", third.OrderNumber)
}

func TestCreateRetriesOnDuplicateOrderNumber(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	repo := newTestRepo(t, day)

	first := buildOrder(t, "user-1", 1)
	require.NoError(t, repo.Create(ctx, first))
	require.Equal(t, "ORD2608310001", first.OrderNumber)

	// Simulate a concurrent writer grabbing the same number: the first
	// allocation collides with the existing row, the retry computes a
	// fresh one
	var calls int
	repo.nextNumber = func(tx *gorm.DB) (string, error) {
		calls++
		if calls == 1 {
			return first.OrderNumber, nil
		}
		return repo.nextOrderNumber(tx)
	}

	second := buildOrder(t, "user-1", 1)
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, "ORD2608310002", second.OrderNumber)
	assert.Equal(t, 2, calls)

	loaded, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD2608310002", loaded.OrderNumber)
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	repo := newTestRepo(t, day)

	first := buildOrder(t, "user-1", 1)
	require.NoError(t, repo.Create(ctx, first))

	var calls int
	repo.nextNumber = func(tx *gorm.DB) (string, error) {
		calls++
		return first.OrderNumber, nil
	}

	second := buildOrder(t, "user-1", 1)
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, maxOrderNumberRetries, calls)

	// Nothing from the failed attempts was persisted
	var count int64
	require.NoError(t, repo.db.Model(&order.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreatePersistsItems(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	o := buildOrder(t, "user-1", 3)
	price, _ := valueobject.NewMoneyUSDFromString("10.00")
	_, err := o.AddItem("prod-extra", "Gadget", "SKU-2", "", 1, price)
	require.NoError(t, err)
	require.NoError(t, o.ApplyPricing(order.DefaultPricingPolicy(), decimal.Zero))

	require.NoError(t, repo.Create(ctx, o))

	loaded, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, loaded.OrderNumber)
	assert.Len(t, loaded.Items, 2)
	assert.Equal(t, order.StatusPending, loaded.Status)
	assert.True(t, loaded.TotalAmount.Equal(o.TotalAmount))
	assert.Equal(t, "Springfield", loaded.ShippingAddress.City)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := newTestRepo(t, time.Now())
	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFindByUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		o := buildOrder(t, "user-1", 1)
		require.NoError(t, repo.Create(ctx, o))
		// Space out created_at so ordering is deterministic
		repo.db.Model(&order.Order{}).Where("id = ?", o.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Hour))
	}
	other := buildOrder(t, "user-2", 1)
	require.NoError(t, repo.Create(ctx, other))

	t.Run("scoped to user with count", func(t *testing.T) {
		orders, total, err := repo.FindByUser(ctx, "user-1", order.DefaultListFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, orders, 3)
		for _, o := range orders {
			assert.Equal(t, "user-1", o.UserID)
		}
	})

	t.Run("newest first", func(t *testing.T) {
		orders, _, err := repo.FindByUser(ctx, "user-1", order.DefaultListFilter())
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.True(t, orders[0].CreatedAt.After(orders[1].CreatedAt))
		assert.True(t, orders[1].CreatedAt.After(orders[2].CreatedAt))
	})

	t.Run("pagination", func(t *testing.T) {
		filter := order.ListFilter{Limit: 2, Offset: 2}
		orders, total, err := repo.FindByUser(ctx, "user-1", filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, orders, 1)
	})

	t.Run("status filter", func(t *testing.T) {
		status := order.StatusCancelled
		orders, total, err := repo.FindByUser(ctx, "user-1", order.ListFilter{Limit: 10, Status: &status})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, orders)
	})
}

func TestTransitionToCancelled(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	t.Run("pending order cancelled", func(t *testing.T) {
		o := buildOrder(t, "user-1", 1)
		require.NoError(t, repo.Create(ctx, o))

		at := time.Now().UTC()
		require.NoError(t, repo.TransitionToCancelled(ctx, o.ID, "changed my mind", at))

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, loaded.Status)
		assert.Equal(t, "changed my mind", loaded.CancelReason)
		require.NotNil(t, loaded.CancelledAt)
	})

	t.Run("second cancel rejected", func(t *testing.T) {
		o := buildOrder(t, "user-1", 1)
		require.NoError(t, repo.Create(ctx, o))
		require.NoError(t, repo.TransitionToCancelled(ctx, o.ID, "first", time.Now()))

		err := repo.TransitionToCancelled(ctx, o.ID, "second", time.Now())
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("missing order", func(t *testing.T) {
		err := repo.TransitionToCancelled(ctx, uuid.New(), "ghost", time.Now())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestTransitionToPaid(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	o := buildOrder(t, "user-1", 1)
	require.NoError(t, repo.Create(ctx, o))

	require.NoError(t, repo.TransitionToPaid(ctx, o.ID, time.Now()))

	loaded, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, loaded.Status)
	assert.Equal(t, order.PaymentStatusPaid, loaded.PaymentStatus)
	require.NotNil(t, loaded.PaidAt)

	// A duplicate payment callback must not double-confirm
	err = repo.TransitionToPaid(ctx, o.ID, time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestTransitionToRefunded(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	setup := func(t *testing.T, status order.Status, payment order.PaymentStatus) *order.Order {
		o := buildOrder(t, "user-1", 1)
		require.NoError(t, repo.Create(ctx, o))
		repo.db.Model(&order.Order{}).Where("id = ?", o.ID).
			Updates(map[string]interface{}{"status": status, "payment_status": payment})
		return o
	}

	t.Run("delivered paid order refunded", func(t *testing.T) {
		o := setup(t, order.StatusDelivered, order.PaymentStatusPaid)

		require.NoError(t, repo.TransitionToRefunded(ctx, o.ID, "Refunded: damaged", time.Now()))

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusRefunded, loaded.Status)
		assert.Equal(t, order.PaymentStatusRefunded, loaded.PaymentStatus)
		assert.Equal(t, "Refunded: damaged", loaded.InternalNotes)
	})

	t.Run("shipped order rejected", func(t *testing.T) {
		o := setup(t, order.StatusShipped, order.PaymentStatusPaid)
		err := repo.TransitionToRefunded(ctx, o.ID, "too early", time.Now())
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	o := buildOrder(t, "user-1", 1)
	require.NoError(t, repo.Create(ctx, o))
	repo.db.Model(&order.Order{}).Where("id = ?", o.ID).
		Update("status", order.StatusProcessing)

	shippedAt := time.Now().UTC()
	err := repo.TransitionStatus(ctx, o.ID, order.StatusProcessing, order.StatusShipped, map[string]interface{}{
		"shipped_at":      shippedAt,
		"tracking_number": "TRK-42",
	})
	require.NoError(t, err)

	loaded, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, loaded.Status)
	assert.Equal(t, "TRK-42", loaded.TrackingNumber)
	require.NotNil(t, loaded.ShippedAt)

	// The guard uses the expected current status
	err = repo.TransitionStatus(ctx, o.ID, order.StatusProcessing, order.StatusShipped, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestIsDuplicateOrderNumber(t *testing.T) {
	assert.True(t, isDuplicateOrderNumber(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateOrderNumber(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isDuplicateOrderNumber(errors.New(`pq: duplicate key value violates unique constraint "idx_orders_order_number"`)))
	assert.True(t, isDuplicateOrderNumber(errors.New("UNIQUE constraint failed: orders.order_number")))
	assert.False(t, isDuplicateOrderNumber(errors.New("connection refused")))
}

func TestDiscrepancyRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewDiscrepancyRepository(db)

	orderID := uuid.New()
	d := order.NewStockDiscrepancy(orderID, "ORD2608310001", "prod-1", -2, "decrement", "connection refused")
	require.NoError(t, repo.Save(ctx, d))

	resolved := order.NewStockDiscrepancy(orderID, "ORD2608310001", "prod-2", 1, "restore", "timeout")
	resolved.Status = order.DiscrepancyStatusResolved
	require.NoError(t, repo.Save(ctx, resolved))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "prod-1", pending[0].ProductID)
	assert.Equal(t, int64(-2), pending[0].Delta)
}
