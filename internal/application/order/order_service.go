package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/ecom/order-backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service orchestrates order creation and lifecycle across the local
// database and the remote inventory and identity services.
//
// Order creation is a local transaction followed by best-effort stock
// decrements. Stock adjustments that fail after commit never roll the
// order back; they are logged, published and recorded for manual
// reconciliation instead.
type Service struct {
	orders         domain.Repository
	discrepancies  domain.DiscrepancyRepository
	inventory      domain.InventoryGateway
	identity       domain.IdentityGateway
	pricing        domain.PricingPolicy
	eventPublisher shared.EventPublisher
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
	logger         *zap.Logger
}

// NewService creates a new order service
func NewService(
	orders domain.Repository,
	discrepancies domain.DiscrepancyRepository,
	inventory domain.InventoryGateway,
	identity domain.IdentityGateway,
	pricing domain.PricingPolicy,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		orders:        orders,
		discrepancies: discrepancies,
		inventory:     inventory,
		identity:      identity,
		pricing:       pricing,
		logger:        log,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables duplicate-submit protection for order creation
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotency = store
	s.idempotencyCfg = cfg
}

// Create runs the full order creation flow: validate every line against
// the inventory service, resolve the shipping address, price the order
// server-side, persist it, then decrement stock for each line.
func (s *Service) Create(ctx context.Context, userID string, req CreateOrderRequest, idempotencyKey string) (*OrderResponse, error) {
	if err := s.checkIdempotency(ctx, idempotencyKey); err != nil {
		return nil, err
	}

	validations, err := s.validateItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	address, err := s.resolveAddress(ctx, userID, req.ShippingAddress)
	if err != nil {
		return nil, err
	}

	o, err := domain.New(userID, domain.PaymentMethod(req.PaymentMethod), *address, req.CustomerNotes)
	if err != nil {
		return nil, err
	}

	for _, v := range validations {
		snapshot := v.Product
		if snapshot == nil {
			return nil, fmt.Errorf("validation passed for %s but no product snapshot was returned", v.ProductID)
		}
		price := valueobject.NewMoneyUSD(snapshot.Price)
		if _, err := o.AddItem(snapshot.ProductID, snapshot.Name, snapshot.SKU, snapshot.ImageURL, v.Quantity, price); err != nil {
			return nil, err
		}
	}

	if err := o.ApplyPricing(s.pricing, req.Discount); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", userID),
		zap.Int("items", o.ItemCount()),
		zap.String("total", o.TotalAmount.StringFixed(2)))

	// The order is committed; stock decrements happen outside the
	// transaction and must all be attempted even if some fail.
	s.adjustStockForItems(ctx, o, -1, "decrement")

	o.AddDomainEvent(domain.NewCreatedEvent(o))
	s.publishEvents(ctx, o)

	return toOrderResponse(o), nil
}

// GetByID loads a single order. Non-admin callers only see their own.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, userID string, isAdmin bool) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !o.IsOwnedBy(userID) {
		return nil, shared.ErrForbidden
	}
	return toOrderResponse(o), nil
}

// ListMine lists the calling user's orders, newest first
func (s *Service) ListMine(ctx context.Context, userID string, query ListOrdersQuery) (*ListResponse, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.orders.FindByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return toListResponse(orders, total, filter.Limit, filter.Offset), nil
}

// List lists orders across all users
func (s *Service) List(ctx context.Context, query ListOrdersQuery) (*ListResponse, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toListResponse(orders, total, filter.Limit, filter.Offset), nil
}

// Cancel cancels a pending or confirmed order and restores the stock the
// order had claimed. The status change commits first; restores that fail
// afterwards are recorded as discrepancies, never retried inline.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, userID string, isAdmin bool, reason string) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !o.IsOwnedBy(userID) {
		return nil, shared.ErrForbidden
	}

	now := time.Now()
	if err := s.orders.TransitionToCancelled(ctx, id, reason, now); err != nil {
		return nil, err
	}

	o.Status = domain.StatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now

	s.logger.Info("order cancelled",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("reason", reason))

	s.adjustStockForItems(ctx, o, 1, "restore")

	o.AddDomainEvent(domain.NewCancelledEvent(o))
	s.publishEvents(ctx, o)

	return toOrderResponse(o), nil
}

// MarkAsPaid records payment against a pending order
// The transition is conditional so concurrent payment callbacks cannot
// double-confirm
func (s *Service) MarkAsPaid(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	now := time.Now()
	if err := s.orders.TransitionToPaid(ctx, id, now); err != nil {
		return nil, err
	}

	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order paid",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("payment_method", o.PaymentMethod.String()))

	o.AddDomainEvent(domain.NewPaidEvent(o))
	s.publishEvents(ctx, o)

	return toOrderResponse(o), nil
}

// Refund refunds a delivered, paid order and restores the stock the
// order consumed, mirroring the cancellation compensation.
func (s *Service) Refund(ctx context.Context, id uuid.UUID, reason string) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	notes := appendNote(o.InternalNotes, fmt.Sprintf("Refunded: %s", reason))

	now := time.Now()
	if err := s.orders.TransitionToRefunded(ctx, id, notes, now); err != nil {
		return nil, err
	}

	o.Status = domain.StatusRefunded
	o.PaymentStatus = domain.PaymentStatusRefunded
	o.InternalNotes = notes

	s.logger.Info("order refunded",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("reason", reason))

	s.adjustStockForItems(ctx, o, 1, "restore")

	o.AddDomainEvent(domain.NewRefundedEvent(o, reason))
	s.publishEvents(ctx, o)

	return toOrderResponse(o), nil
}

// UpdateStatus moves an order along the fulfilment state machine
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	target := domain.Status(req.Status)
	if !target.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown status %q", req.Status))
	}

	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if !from.CanTransitionTo(target) {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot transition order from %s to %s", from, target))
	}

	now := time.Now()
	updates := map[string]interface{}{}
	switch target {
	case domain.StatusShipped:
		updates["shipped_at"] = now
		if req.TrackingNumber != "" {
			updates["tracking_number"] = req.TrackingNumber
		}
	case domain.StatusDelivered:
		updates["delivered_at"] = now
	}
	notes := o.InternalNotes
	if req.Notes != "" {
		notes = appendNote(o.InternalNotes, req.Notes)
		updates["internal_notes"] = notes
	}

	if err := s.orders.TransitionStatus(ctx, id, from, target, updates); err != nil {
		return nil, err
	}

	o.Status = target
	o.InternalNotes = notes
	switch target {
	case domain.StatusShipped:
		o.ShippedAt = &now
		if req.TrackingNumber != "" {
			o.TrackingNumber = req.TrackingNumber
		}
	case domain.StatusDelivered:
		o.DeliveredAt = &now
	}

	s.logger.Info("order status changed",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("from", from.String()),
		zap.String("to", target.String()))

	o.AddDomainEvent(domain.NewStatusChangedEvent(o, from, target))
	s.publishEvents(ctx, o)

	return toOrderResponse(o), nil
}

// appendNote adds a line to the internal notes log
func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func (s *Service) checkIdempotency(ctx context.Context, key string) error {
	if s.idempotency == nil || !s.idempotencyCfg.Enabled || key == "" {
		return nil
	}
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyCfg.TTL)
	if err != nil {
		// The store being down should not block order placement
		s.logger.Warn("idempotency store unavailable", zap.Error(err))
		return nil
	}
	if !fresh {
		return shared.ErrDuplicateRequest
	}
	return nil
}

// validateItems checks every requested line in one batch call and
// aggregates all failures so the client sees them together
func (s *Service) validateItems(ctx context.Context, items []ItemInput) ([]domain.LineValidation, error) {
	requests := make([]domain.ItemRequest, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.ProductID] {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", fmt.Sprintf("Product %s appears more than once", item.ProductID))
		}
		seen[item.ProductID] = true
		requests = append(requests, domain.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	validations, err := s.inventory.ValidateItems(ctx, requests)
	if err != nil {
		s.logger.Error("inventory validation call failed", zap.Error(err))
		return nil, err
	}

	var failed []domain.LineValidation
	for _, v := range validations {
		if !v.OK() {
			failed = append(failed, v)
		}
	}
	if len(failed) > 0 {
		return nil, &domain.LineValidationError{Lines: failed}
	}
	return validations, nil
}

func (s *Service) resolveAddress(ctx context.Context, userID string, input *AddressInput) (*valueobject.Address, error) {
	if input != nil {
		addr, err := valueobject.NewAddress(input.Street, input.City, input.State, input.PostalCode, input.Country)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
		}
		return &addr, nil
	}
	addr, err := s.identity.ResolveDefaultAddress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return addr, nil
}

// adjustStockForItems applies sign*quantity to every line concurrently.
// Every line is attempted regardless of other lines failing; failures
// become discrepancy records.
func (s *Service) adjustStockForItems(ctx context.Context, o *domain.Order, sign int64, operation string) {
	var wg sync.WaitGroup
	for _, item := range o.Items {
		wg.Add(1)
		go func(productID string, delta int64) {
			defer wg.Done()
			if _, err := s.inventory.AdjustStock(ctx, productID, delta); err != nil {
				s.recordDiscrepancy(ctx, o, productID, delta, operation, err)
			}
		}(item.ProductID, sign*int64(item.Quantity))
	}
	wg.Wait()
}

// recordDiscrepancy captures a failed stock adjustment three ways: an
// error log, a stock adjustment failed event, and a database row for
// the reconciliation queue
func (s *Service) recordDiscrepancy(ctx context.Context, o *domain.Order, productID string, delta int64, operation string, cause error) {
	s.logger.Error("stock adjustment failed",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("product_id", productID),
		zap.Int64("delta", delta),
		zap.String("operation", operation),
		zap.Error(cause))

	if s.eventPublisher != nil {
		event := domain.NewStockAdjustmentFailedEvent(o, productID, delta, operation, cause.Error())
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish stock adjustment failure", zap.Error(err))
		}
	}

	if s.discrepancies != nil {
		d := domain.NewStockDiscrepancy(o.ID, o.OrderNumber, productID, delta, operation, cause.Error())
		if err := s.discrepancies.Save(ctx, d); err != nil {
			s.logger.Error("failed to record stock discrepancy", zap.Error(err))
		}
	}
}

func (s *Service) buildFilter(query ListOrdersQuery) (domain.ListFilter, error) {
	filter := domain.DefaultListFilter()
	if query.Limit > 0 {
		filter.Limit = query.Limit
	}
	if query.Offset > 0 {
		filter.Offset = query.Offset
	}
	if query.Status != "" {
		status := domain.Status(query.Status)
		if !status.IsValid() {
			return domain.ListFilter{}, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown status %q", query.Status))
		}
		filter.Status = &status
	}
	return filter, nil
}

func (s *Service) publishEvents(ctx context.Context, o *domain.Order) {
	if s.eventPublisher == nil {
		return
	}
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish domain events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
	o.ClearDomainEvents()
}
