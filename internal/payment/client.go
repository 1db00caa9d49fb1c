package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// Client talks to the payment processor over HTTP. Calls run through a
// circuit breaker so a dead processor fails fast instead of holding request
// goroutines until their deadlines. Declines are business outcomes and do not
// count as breaker failures.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*CaptureResult]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var declined *DeclinedError
			return errors.As(err, &declined)
		},
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*CaptureResult](settings),
	}
}

type chargeRequest struct {
	OrderID      string `json:"order_id"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	PaymentToken string `json:"payment_token"`
}

type declineResponse struct {
	Reason string `json:"reason"`
}

func (c *Client) Capture(ctx context.Context, orderID string, amount decimal.Decimal, paymentToken string) (*CaptureResult, error) {
	return c.breaker.Execute(func() (*CaptureResult, error) {
		return c.capture(ctx, orderID, amount, paymentToken)
	})
}

func (c *Client) capture(ctx context.Context, orderID string, amount decimal.Decimal, paymentToken string) (*CaptureResult, error) {
	body, err := json.Marshal(chargeRequest{
		OrderID:      orderID,
		Amount:       amount.StringFixed(2),
		Currency:     "USD",
		PaymentToken: paymentToken,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("charge request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result CaptureResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode charge response: %w", err)
		}
		if result.TransactionID == "" {
			return nil, errors.New("charge response missing transaction_id")
		}
		return &result, nil

	case http.StatusPaymentRequired:
		var decline declineResponse
		if err := json.NewDecoder(resp.Body).Decode(&decline); err != nil {
			decline.Reason = "declined"
		}
		return nil, &DeclinedError{Reason: decline.Reason}

	default:
		return nil, fmt.Errorf("payment gateway returned unexpected status %d", resp.StatusCode)
	}
}
