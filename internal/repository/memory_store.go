package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mvetrov/go_checkout/internal/domain"
)

// CleanupInterval is how often the background expiry sweep runs.
const CleanupInterval = 30 * time.Second

// MemoryStore implements OrderStore with in-memory storage. It mirrors the
// postgres store's semantics, including outbox rows on terminal updates, and
// is used for local mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order // cartID -> order
	outbox []*OutboxEvent
	nextID int64
	ttl    time.Duration

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

// NewMemoryStore creates an in-memory order store whose records expire after
// the given retention window.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		orders:      make(map[string]*domain.Order),
		ttl:         ttl,
		nextID:      1,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.PurgeExpired(context.Background(), time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, cartID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[cartID]
	if !exists {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (s *MemoryStore) CreateIfAbsent(_ context.Context, order *domain.Order) (*domain.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.orders[order.CartID]; exists {
		return cloneOrder(existing), false, nil
	}

	now := time.Now().UTC()
	order.CreatedAt = now
	order.ExpiresAt = now.Add(s.ttl)

	s.orders[order.CartID] = cloneOrder(order)
	return order, true, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, cartID string, status domain.OrderStatus, transactionID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[cartID]
	if !exists {
		return ErrOrderNotFound
	}

	order.Status = status
	if transactionID != nil {
		id := *transactionID
		order.TransactionID = &id
	}

	if status.IsTerminal() {
		payload, eventType, err := outboxPayload(cartID, order.OrderID, status, order.Total, transactionID)
		if err != nil {
			return err
		}
		s.outbox = append(s.outbox, &OutboxEvent{
			ID:          s.nextID,
			AggregateID: cartID,
			EventType:   eventType,
			Payload:     payload,
			CreatedAt:   time.Now().UTC(),
		})
		s.nextID++
	}

	return nil
}

func (s *MemoryStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*OutboxEvent, 0, limit)
	for _, ev := range s.outbox {
		if len(events) == limit {
			break
		}
		copied := *ev
		events = append(events, &copied)
	}
	return events, nil
}

func (s *MemoryStore) MarkEventProcessed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ev := range s.outbox {
		if ev.ID == id {
			s.outbox = append(s.outbox[:i], s.outbox[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("outbox event %d not found", id)
}

func (s *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for cartID, order := range s.orders {
		if order.ExpiresAt.Before(now) {
			delete(s.orders, cartID)
			purged++
		}
	}
	return purged, nil
}

// Close stops the background expiry sweep and waits for it to finish.
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	copied := *order
	copied.Items = append([]domain.PricedItem(nil), order.Items...)
	if order.TransactionID != nil {
		id := *order.TransactionID
		copied.TransactionID = &id
	}
	return &copied
}

// compile-time interface checks
var (
	_ OrderStore = (*MemoryStore)(nil)
	_ OrderStore = (*PostgresStore)(nil)
)
