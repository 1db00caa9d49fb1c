package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mvetrov/go_checkout/internal/domain"
)

// Common errors returned by the store
var (
	// ErrOrderNotFound is returned by Get when no order exists for the cart
	// id, and by UpdateStatus when the record vanished after creation. The
	// latter is an unrecoverable consistency violation for the caller.
	ErrOrderNotFound = errors.New("order not found")

	// ErrStoreUnavailable marks transient storage failures. The store never
	// retries internally; retry policy belongs to the caller.
	ErrStoreUnavailable = errors.New("order store unavailable")
)

// OutboxEvent is a pending order lifecycle event, written in the same
// transaction as the status change that produced it.
type OutboxEvent struct {
	ID          int64
	AggregateID string // cart id, used as the kafka message key
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Event types written to the outbox.
const (
	EventOrderCaptured = "order.payment_captured"
	EventOrderFailed   = "order.payment_failed"
)

// OrderStore is the durable source of truth for order existence and
// lifecycle state, keyed by cart id.
type OrderStore interface {
	// Get returns the order for the cart id, or ErrOrderNotFound.
	Get(ctx context.Context, cartID string) (*domain.Order, error)

	// CreateIfAbsent atomically persists the order unless one already exists
	// for its cart id. Returns (new order, true) when this caller created the
	// record, or (existing order, false) when another caller won the race.
	// The existing record is never overwritten. Atomicity comes from the
	// store's own conditional-write primitive, not from any caller-side lock.
	CreateIfAbsent(ctx context.Context, order *domain.Order) (*domain.Order, bool, error)

	// UpdateStatus overwrites status (and transaction id, when non-nil) on
	// the existing record. Terminal transitions also append an outbox event
	// atomically with the update. Returns ErrOrderNotFound if the record
	// vanished between creation and update.
	UpdateStatus(ctx context.Context, cartID string, status domain.OrderStatus, transactionID *string) error

	// GetUnprocessedEvents returns up to limit pending outbox events, oldest
	// first.
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)

	// MarkEventProcessed marks an outbox event as published.
	MarkEventProcessed(ctx context.Context, id int64) error

	// PurgeExpired removes orders whose retention window has passed and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	// Close shuts down the store and any background processes.
	Close() error
}
