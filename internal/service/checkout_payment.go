package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mvetrov/go_checkout/internal/domain"
	"github.com/mvetrov/go_checkout/internal/payment"
	"github.com/mvetrov/go_checkout/internal/repository"
)

func (s *CheckoutServiceImpl) capturePayment(ctx context.Context, order *domain.Order, paymentToken string) (*CheckoutResult, error) {
	if !domain.CanTransitionTo(order.Status, domain.OrderStatusPaymentCaptured) {
		return nil, ErrIllegalTransition
	}

	result, payErr := s.gateway.Capture(ctx, order.OrderID, order.Total, paymentToken)
	if payErr != nil {
		var declined *payment.DeclinedError
		if errors.As(payErr, &declined) {
			if err := s.markFailed(ctx, order); err != nil {
				return nil, err
			}
			return nil, &PaymentDeclinedError{OrderID: order.OrderID, Reason: declined.Reason}
		}

		// unknown outcome: the charge may or may not have happened, so the
		// order stays at CREATED for reconciliation rather than asserting a
		// FAILED state that could contradict reality
		s.logger.Error("unclassified payment failure",
			zap.String("cart_id", order.CartID),
			zap.String("order_id", order.OrderID),
			zap.Error(payErr))
		return nil, fmt.Errorf("payment capture: %w", payErr)
	}

	if err := s.store.UpdateStatus(ctx, order.CartID, domain.OrderStatusPaymentCaptured, &result.TransactionID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: cart %s", ErrOrderVanished, order.CartID)
		}
		return nil, fmt.Errorf("record payment capture: %w", err)
	}

	order.Status = domain.OrderStatusPaymentCaptured
	order.TransactionID = &result.TransactionID
	s.cacheTerminal(order)

	s.logger.Info("payment captured",
		zap.String("cart_id", order.CartID),
		zap.String("order_id", order.OrderID),
		zap.String("transaction_id", result.TransactionID))
	return &CheckoutResult{Order: order, Created: true}, nil
}

func (s *CheckoutServiceImpl) markFailed(ctx context.Context, order *domain.Order) error {
	if err := s.store.UpdateStatus(ctx, order.CartID, domain.OrderStatusPaymentFailed, nil); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return fmt.Errorf("%w: cart %s", ErrOrderVanished, order.CartID)
		}
		return fmt.Errorf("record payment failure: %w", err)
	}
	order.Status = domain.OrderStatusPaymentFailed
	s.cacheTerminal(order)
	return nil
}

// cacheTerminal writes terminal orders to the cache off the request path.
// Non-terminal orders are never cached.
func (s *CheckoutServiceImpl) cacheTerminal(order *domain.Order) {
	if s.cache == nil || !order.Status.IsTerminal() {
		return
	}
	cached := *order
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cache.Set(ctx, cached.CartID, &cached); err != nil {
			s.logger.Warn("order cache set failed", zap.String("cart_id", cached.CartID), zap.Error(err))
		}
	}()
}
