package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows order listings
type ListFilter struct {
	UserID string
	Status *Status
	Limit  int
	Offset int
}

// DefaultListFilter returns a filter with sane pagination defaults
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: 20, Offset: 0}
}

// Repository is the persistence port for the order aggregate
// Status transitions that race with other writers are expressed as
// conditional updates so the database arbitrates, not the application.
type Repository interface {
	// Create persists a new order with its items in a single transaction
	// and assigns the order number
	Create(ctx context.Context, o *Order) error

	// FindByID loads an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByUser lists a user's orders, newest first, with total count
	FindByUser(ctx context.Context, userID string, filter ListFilter) ([]*Order, int64, error)

	// FindAll lists orders across all users, newest first, with total count
	FindAll(ctx context.Context, filter ListFilter) ([]*Order, int64, error)

	// TransitionToCancelled cancels the order only if it is still
	// pending or confirmed
	TransitionToCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) error

	// TransitionToPaid marks the order paid and confirmed only if both
	// order and payment are still pending
	TransitionToPaid(ctx context.Context, id uuid.UUID, at time.Time) error

	// TransitionToRefunded refunds the order only if it is delivered
	// and paid
	TransitionToRefunded(ctx context.Context, id uuid.UUID, internalNotes string, at time.Time) error

	// TransitionStatus moves the fulfilment status from one state to
	// another, applying the extra column updates atomically
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, updates map[string]interface{}) error
}
