package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mvetrov/go_checkout/internal/domain"
	"github.com/mvetrov/go_checkout/internal/repository"
	"github.com/mvetrov/go_checkout/internal/service"
)

// MockCheckoutService implements service.CheckoutService for handler tests
type MockCheckoutService struct {
	CheckoutResult *service.CheckoutResult
	CheckoutErr    error
	LastRequest    *service.CheckoutRequest

	Order    *domain.Order
	GetErr   error
	GetCalls int
}

func (m *MockCheckoutService) Checkout(_ context.Context, req *service.CheckoutRequest) (*service.CheckoutResult, error) {
	m.LastRequest = req
	if m.CheckoutErr != nil {
		return nil, m.CheckoutErr
	}
	return m.CheckoutResult, nil
}

func (m *MockCheckoutService) GetOrder(_ context.Context, _ string) (*domain.Order, error) {
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Order, nil
}

func capturedOrder() *domain.Order {
	txn := "TXN-1"
	return &domain.Order{
		OrderID:      "11111111-1111-1111-1111-111111111111",
		CartID:       "cart-1",
		Status:       domain.OrderStatusPaymentCaptured,
		PaymentToken: "tok-secret",
		Items: []domain.PricedItem{
			{
				ProductID: "p1",
				Name:      "Widget",
				UnitPrice: decimal.RequireFromString("29.99"),
				Quantity:  2,
				LineTotal: decimal.RequireFromString("59.98"),
			},
		},
		Subtotal:      decimal.RequireFromString("59.98"),
		Tax:           decimal.RequireFromString("6.00"),
		Total:         decimal.RequireFromString("65.98"),
		TransactionID: &txn,
		CreatedAt:     time.Now().UTC(),
	}
}

func checkoutBody(t *testing.T, cartID string, items []CartItemDTO) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(CheckoutRequestDTO{
		CartID:       cartID,
		Items:        items,
		PaymentToken: "tok-123",
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func validItems() []CartItemDTO {
	return []CartItemDTO{
		{ProductID: "p1", Name: "Widget", UnitPrice: decimal.RequireFromString("29.99"), Quantity: 2},
	}
}

func doCheckout(svc service.CheckoutService, body *bytes.Buffer) *httptest.ResponseRecorder {
	handler := NewCheckoutHandler(svc, 5*time.Second, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	w := httptest.NewRecorder()
	handler.Checkout(w, req)
	return w
}

func TestCheckoutHandler_NewOrder_Returns201(t *testing.T) {
	mock := &MockCheckoutService{
		CheckoutResult: &service.CheckoutResult{Order: capturedOrder(), Created: true},
	}

	w := doCheckout(mock, checkoutBody(t, "cart-1", validItems()))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp OrderResponseDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", resp.OrderID)
	assert.Equal(t, "PAYMENT_CAPTURED", resp.Status)
	assert.Equal(t, "65.98", resp.Total.StringFixed(2))
}

func TestCheckoutHandler_Replay_Returns200(t *testing.T) {
	mock := &MockCheckoutService{
		CheckoutResult: &service.CheckoutResult{Order: capturedOrder(), Created: false},
	}

	w := doCheckout(mock, checkoutBody(t, "cart-1", validItems()))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutHandler_ResponseNeverContainsPaymentToken(t *testing.T) {
	mock := &MockCheckoutService{
		CheckoutResult: &service.CheckoutResult{Order: capturedOrder(), Created: true},
	}

	w := doCheckout(mock, checkoutBody(t, "cart-1", validItems()))

	assert.NotContains(t, w.Body.String(), "tok-secret")
	assert.NotContains(t, w.Body.String(), "payment_token")
}

func TestCheckoutHandler_InvalidJSON(t *testing.T) {
	w := doCheckout(&MockCheckoutService{}, bytes.NewBufferString("{not json"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandler_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     CheckoutRequestDTO
		wantCode string
	}{
		{
			name:     "missing cart id",
			body:     CheckoutRequestDTO{Items: validItems(), PaymentToken: "tok"},
			wantCode: "missing_cart_id",
		},
		{
			name:     "missing payment token",
			body:     CheckoutRequestDTO{CartID: "cart-1", Items: validItems()},
			wantCode: "missing_payment_token",
		},
		{
			name:     "empty items",
			body:     CheckoutRequestDTO{CartID: "cart-1", PaymentToken: "tok"},
			wantCode: "empty_cart",
		},
		{
			name: "zero quantity",
			body: CheckoutRequestDTO{
				CartID:       "cart-1",
				PaymentToken: "tok",
				Items:        []CartItemDTO{{ProductID: "p1", Name: "Widget", UnitPrice: decimal.RequireFromString("1.00")}},
			},
			wantCode: "invalid_item",
		},
		{
			name: "non-positive price",
			body: CheckoutRequestDTO{
				CartID:       "cart-1",
				PaymentToken: "tok",
				Items:        []CartItemDTO{{ProductID: "p1", Name: "Widget", UnitPrice: decimal.Zero, Quantity: 1}},
			},
			wantCode: "invalid_item",
		},
		{
			name: "missing product id",
			body: CheckoutRequestDTO{
				CartID:       "cart-1",
				PaymentToken: "tok",
				Items:        []CartItemDTO{{Name: "Widget", UnitPrice: decimal.RequireFromString("1.00"), Quantity: 1}},
			},
			wantCode: "invalid_item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockCheckoutService{}
			body, err := json.Marshal(tt.body)
			require.NoError(t, err)

			w := doCheckout(mock, bytes.NewBuffer(body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			// validation failures never reach the service
			assert.Nil(t, mock.LastRequest)
		})
	}
}

func TestCheckoutHandler_PaymentDeclined_Returns402(t *testing.T) {
	mock := &MockCheckoutService{
		CheckoutErr: &service.PaymentDeclinedError{OrderID: "order-1", Reason: "insufficient funds"},
	}

	w := doCheckout(mock, checkoutBody(t, "cart-1", validItems()))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "payment_declined", resp.Code)
	assert.Equal(t, "order-1", resp.OrderID)
}

func TestCheckoutHandler_InternalError_Returns500WithoutDetail(t *testing.T) {
	mock := &MockCheckoutService{CheckoutErr: repository.ErrStoreUnavailable}

	w := doCheckout(mock, checkoutBody(t, "cart-1", validItems()))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "store unavailable")
}

func TestOrdersHandler_Found(t *testing.T) {
	mock := &MockCheckoutService{Order: capturedOrder()}
	handler := NewOrdersHandler(mock, 5*time.Second, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/api/v1/orders/{cart_id}", handler.GetOrder)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/cart-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp OrderResponseDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "cart-1", resp.CartID)
	assert.NotContains(t, w.Body.String(), "tok-secret")
}

func TestOrdersHandler_NotFound(t *testing.T) {
	mock := &MockCheckoutService{GetErr: repository.ErrOrderNotFound}
	handler := NewOrdersHandler(mock, 5*time.Second, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/api/v1/orders/{cart_id}", handler.GetOrder)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrdersHandler_StoreError_Returns500(t *testing.T) {
	mock := &MockCheckoutService{GetErr: repository.ErrStoreUnavailable}
	handler := NewOrdersHandler(mock, 5*time.Second, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/api/v1/orders/{cart_id}", handler.GetOrder)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/cart-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
