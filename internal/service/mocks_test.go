package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvetrov/go_checkout/internal/cache"
	"github.com/mvetrov/go_checkout/internal/domain"
	"github.com/mvetrov/go_checkout/internal/payment"
	"github.com/mvetrov/go_checkout/internal/repository"
)

// MockStore implements repository.OrderStore for testing
type MockStore struct {
	mu sync.Mutex

	GetOrder *domain.Order // nil means not found
	GetErr   error

	Created     bool          // the flag CreateIfAbsent reports
	RaceWinner  *domain.Order // returned when Created is false
	CreateErr   error
	CreateCalls int
	LastCreated *domain.Order // captures the order passed to CreateIfAbsent

	UpdateErr     error
	UpdateCalls   int
	UpdatedStatus domain.OrderStatus
	UpdatedTxnID  *string
}

func (m *MockStore) Get(_ context.Context, _ string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.GetOrder == nil {
		return nil, repository.ErrOrderNotFound
	}
	return m.GetOrder, nil
}

func (m *MockStore) CreateIfAbsent(_ context.Context, order *domain.Order) (*domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	m.LastCreated = order
	if m.CreateErr != nil {
		return nil, false, m.CreateErr
	}
	if !m.Created {
		return m.RaceWinner, false, nil
	}
	return order, true, nil
}

func (m *MockStore) UpdateStatus(_ context.Context, _ string, status domain.OrderStatus, transactionID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.UpdatedStatus = status
	m.UpdatedTxnID = transactionID
	return nil
}

func (m *MockStore) GetUnprocessedEvents(context.Context, int) ([]*repository.OutboxEvent, error) {
	return nil, nil
}

func (m *MockStore) MarkEventProcessed(context.Context, int64) error {
	return nil
}

func (m *MockStore) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (m *MockStore) Close() error {
	return nil
}

// MockGateway implements payment.Gateway for testing
type MockGateway struct {
	mu     sync.Mutex
	Result *payment.CaptureResult
	Err    error
	Calls  int
}

func (m *MockGateway) Capture(_ context.Context, _ string, _ decimal.Decimal, _ string) (*payment.CaptureResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// SpyCache records Set calls and always misses on Get
type SpyCache struct {
	mu   sync.Mutex
	Sets []*domain.Order
}

func (c *SpyCache) Get(context.Context, string) (*domain.Order, error) {
	return nil, cache.ErrCacheMiss
}

func (c *SpyCache) Set(_ context.Context, _ string, order *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sets = append(c.Sets, order)
	return nil
}

func (c *SpyCache) SetCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sets)
}
