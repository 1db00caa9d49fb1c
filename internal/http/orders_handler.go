package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mvetrov/go_checkout/internal/repository"
	"github.com/mvetrov/go_checkout/internal/service"
)

type OrdersHandler struct {
	service service.CheckoutService
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrdersHandler(svc service.CheckoutService, timeout time.Duration, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		service: svc,
		timeout: timeout,
		logger:  logger,
	}
}

// GET /api/v1/orders/{cart_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cart_id")
	if cartID == "" {
		respondError(w, http.StatusBadRequest, "missing_cart_id", "cart_id is required")
		return
	}

	order, err := h.service.GetOrder(ctx, cartID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order_not_found", "no order exists for this cart")
			return
		}
		h.logger.Error("get order failed",
			zap.String("request_id", getRequestID(r.Context())),
			zap.String("cart_id", cartID),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}
