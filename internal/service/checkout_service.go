package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mvetrov/go_checkout/internal/cache"
	"github.com/mvetrov/go_checkout/internal/domain"
	"github.com/mvetrov/go_checkout/internal/payment"
	"github.com/mvetrov/go_checkout/internal/pricing"
	"github.com/mvetrov/go_checkout/internal/repository"
)

type CheckoutRequest struct {
	CartID       string
	Items        []domain.CartItem
	PaymentToken string
}

type CheckoutResult struct {
	Order *domain.Order
	// Created is false on idempotent replay or a lost creation race.
	Created bool
}

type CheckoutService interface {
	Checkout(ctx context.Context, request *CheckoutRequest) (*CheckoutResult, error)
	GetOrder(ctx context.Context, cartID string) (*domain.Order, error)
}

// CheckoutServiceImpl runs the checkout workflow. It holds no per-cart state
// of its own: all cross-invocation coordination is delegated to the store's
// atomic create-if-absent, so any number of invocations for the same cart id
// may run fully in parallel.
type CheckoutServiceImpl struct {
	store   repository.OrderStore
	gateway payment.Gateway
	cache   cache.OrderCache // optional, may be nil
	logger  *zap.Logger
	sfg     singleflight.Group // collapses concurrent idempotency reads per cart id
}

func NewCheckoutService(store repository.OrderStore, gateway payment.Gateway, orderCache cache.OrderCache, logger *zap.Logger) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		store:   store,
		gateway: gateway,
		cache:   orderCache,
		logger:  logger,
	}
}

// Checkout processes an order exactly once per cart id.
//
// An existing order short-circuits the whole workflow regardless of its
// status: repricing or re-charging a duplicate submission is never allowed,
// and an order left at PAYMENT_FAILED cannot be retried under the same cart
// id. On an unclassified gateway failure the order stays at CREATED — the
// charge outcome is unknown at that point, so no terminal status is asserted.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, request *CheckoutRequest) (*CheckoutResult, error) {
	if len(request.Items) == 0 {
		return nil, ErrEmptyCart
	}

	existing, err := s.findExisting(ctx, request.CartID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("duplicate checkout request",
			zap.String("cart_id", request.CartID),
			zap.String("order_id", existing.OrderID),
			zap.String("status", existing.Status.String()))
		return &CheckoutResult{Order: existing, Created: false}, nil
	}

	priced := pricing.Price(request.Items)
	order := &domain.Order{
		OrderID:      uuid.New().String(),
		CartID:       request.CartID,
		Status:       domain.OrderStatusCreated,
		Items:        priced.Items,
		Subtotal:     priced.Subtotal,
		Tax:          priced.Tax,
		Total:        priced.Total,
		PaymentToken: request.PaymentToken,
	}

	stored, created, err := s.store.CreateIfAbsent(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if !created {
		// another request won the race; the winner alone captures payment
		s.logger.Info("lost order creation race",
			zap.String("cart_id", request.CartID),
			zap.String("order_id", stored.OrderID))
		return &CheckoutResult{Order: stored, Created: false}, nil
	}

	return s.capturePayment(ctx, stored, request.PaymentToken)
}

// GetOrder returns the order for the cart id, going through the terminal
// order cache first.
func (s *CheckoutServiceImpl) GetOrder(ctx context.Context, cartID string) (*domain.Order, error) {
	if s.cache != nil {
		order, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("order cache get failed", zap.String("cart_id", cartID), zap.Error(err))
		}
	}

	order, err := s.store.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.cacheTerminal(order)
	return order, nil
}

// findExisting is the idempotency fast path. Only a committed order counts;
// cache errors degrade to a store read, never to a miss being treated as
// absence of the store record.
func (s *CheckoutServiceImpl) findExisting(ctx context.Context, cartID string) (*domain.Order, error) {
	v, err, _ := s.sfg.Do(cartID, func() (interface{}, error) {
		if s.cache != nil {
			order, cerr := s.cache.Get(ctx, cartID)
			if cerr == nil {
				return order, nil
			}
			if !errors.Is(cerr, cache.ErrCacheMiss) {
				s.logger.Warn("order cache get failed", zap.String("cart_id", cartID), zap.Error(cerr))
			}
		}

		order, gerr := s.store.Get(ctx, cartID)
		if errors.Is(gerr, repository.ErrOrderNotFound) {
			return (*domain.Order)(nil), nil
		}
		if gerr != nil {
			return nil, fmt.Errorf("idempotency check: %w", gerr)
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}
