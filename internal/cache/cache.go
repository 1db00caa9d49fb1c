package cache

import (
	"context"
	"errors"

	"github.com/mvetrov/go_checkout/internal/domain"
)

// OrderCache holds completed orders for fast idempotent replay. Only orders
// in a terminal status may be cached: terminal orders never change, so a
// cached copy can never serve a stale lifecycle state.
type OrderCache interface {
	Get(ctx context.Context, cartID string) (*domain.Order, error)
	Set(ctx context.Context, cartID string, order *domain.Order) error
}

var ErrCacheMiss = errors.New("cache miss")
