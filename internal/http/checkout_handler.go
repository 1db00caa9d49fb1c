package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mvetrov/go_checkout/internal/domain"
	"github.com/mvetrov/go_checkout/internal/service"
)

type CheckoutHandler struct {
	service service.CheckoutService
	timeout time.Duration
	logger  *zap.Logger
}

func NewCheckoutHandler(svc service.CheckoutService, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		timeout: timeout,
		logger:  logger,
	}
}

type CartItemDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity"`
}

type CheckoutRequestDTO struct {
	CartID       string        `json:"cart_id"`
	Items        []CartItemDTO `json:"items"`
	PaymentToken string        `json:"payment_token"`
}

// OrderResponseDTO is the outbound order shape. The payment token is
// deliberately absent.
type OrderResponseDTO struct {
	OrderID       string             `json:"order_id"`
	CartID        string             `json:"cart_id"`
	Status        string             `json:"status"`
	Items         []domain.PricedItem `json:"items"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Tax           decimal.Decimal    `json:"tax"`
	Total         decimal.Decimal    `json:"total"`
	TransactionID *string            `json:"transaction_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if code, msg := validateCheckoutRequest(&req); code != "" {
		respondError(w, http.StatusBadRequest, code, msg)
		return
	}

	items := make([]domain.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	result, err := h.service.Checkout(ctx, &service.CheckoutRequest{
		CartID:       req.CartID,
		Items:        items,
		PaymentToken: req.PaymentToken,
	})
	if err != nil {
		h.handleCheckoutError(w, r, err)
		return
	}

	status := http.StatusOK // idempotent replay
	if result.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, toOrderDTO(result.Order))
}

func validateCheckoutRequest(req *CheckoutRequestDTO) (code, message string) {
	if req.CartID == "" {
		return "missing_cart_id", "cart_id is required"
	}
	if req.PaymentToken == "" {
		return "missing_payment_token", "payment_token is required"
	}
	if len(req.Items) == 0 {
		return "empty_cart", "items must not be empty"
	}
	for i, item := range req.Items {
		if item.ProductID == "" {
			return "invalid_item", fmt.Sprintf("items[%d].product_id is required", i)
		}
		if item.Name == "" {
			return "invalid_item", fmt.Sprintf("items[%d].name is required", i)
		}
		if !item.UnitPrice.IsPositive() {
			return "invalid_item", fmt.Sprintf("items[%d].unit_price must be positive", i)
		}
		if item.Quantity <= 0 {
			return "invalid_item", fmt.Sprintf("items[%d].quantity must be greater than 0", i)
		}
	}
	return "", ""
}

func (h *CheckoutHandler) handleCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var declined *service.PaymentDeclinedError
	if errors.As(err, &declined) {
		respondJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error:   "payment was declined",
			Code:    "payment_declined",
			OrderID: declined.OrderID,
		})
		return
	}

	if errors.Is(err, service.ErrEmptyCart) {
		respondError(w, http.StatusBadRequest, "empty_cart", "items must not be empty")
		return
	}

	// everything else collapses to a generic internal error with no detail
	h.logger.Error("checkout failed",
		zap.String("request_id", getRequestID(r.Context())),
		zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func toOrderDTO(order *domain.Order) OrderResponseDTO {
	return OrderResponseDTO{
		OrderID:       order.OrderID,
		CartID:        order.CartID,
		Status:        order.Status.String(),
		Items:         order.Items,
		Subtotal:      order.Subtotal,
		Tax:           order.Tax,
		Total:         order.Total,
		TransactionID: order.TransactionID,
		CreatedAt:     order.CreatedAt,
	}
}
