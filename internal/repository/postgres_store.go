package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/mvetrov/go_checkout/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresStore persists orders in postgres. Create-if-absent rides on the
// primary key of the orders table: the cart id. A losing writer sees a
// unique-violation and re-reads the winner's row.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewPostgresStore(cred *Credentials, ttl time.Duration) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresStore{db: db, ttl: ttl}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, cartID string) (*domain.Order, error) {
	query := `SELECT cart_id, order_id, status, items, subtotal, tax, total, payment_token, transaction_id, created_at, expires_at
	          FROM orders WHERE cart_id = $1`

	var order domain.Order
	var itemsJSON []byte
	var transactionID sql.NullString
	err := s.db.QueryRowContext(ctx, query, cartID).Scan(
		&order.CartID,
		&order.OrderID,
		&order.Status,
		&itemsJSON,
		&order.Subtotal,
		&order.Tax,
		&order.Total,
		&order.PaymentToken,
		&transactionID,
		&order.CreatedAt,
		&order.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query order: %v", ErrStoreUnavailable, err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if transactionID.Valid {
		order.TransactionID = &transactionID.String
	}

	return &order, nil
}

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, order *domain.Order) (*domain.Order, bool, error) {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal order items: %w", err)
	}

	now := time.Now().UTC()
	order.CreatedAt = now
	order.ExpiresAt = now.Add(s.ttl)

	query := `INSERT INTO orders (cart_id, order_id, status, items, subtotal, tax, total, payment_token, created_at, expires_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $9)`

	_, insertErr := s.db.ExecContext(ctx, query,
		order.CartID,
		order.OrderID,
		order.Status,
		itemsJSON,
		order.Subtotal,
		order.Tax,
		order.Total,
		order.PaymentToken,
		order.CreatedAt,
		order.ExpiresAt)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			// lost the race, return the winner's row untouched
			existing, getErr := s.Get(ctx, order.CartID)
			if getErr != nil {
				return nil, false, fmt.Errorf("read existing order after conflict: %w", getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("%w: insert order: %v", ErrStoreUnavailable, insertErr)
	}

	return order, true, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, cartID string, status domain.OrderStatus, transactionID *string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin update: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `UPDATE orders SET status = $2, transaction_id = COALESCE($3, transaction_id), updated_at = NOW()
	          WHERE cart_id = $1
	          RETURNING order_id, total`

	var orderID string
	var total decimal.Decimal
	err = tx.QueryRowContext(ctx, query, cartID, status, transactionID).Scan(&orderID, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: update order status: %v", ErrStoreUnavailable, err)
	}

	if status.IsTerminal() {
		payload, eventType, err := outboxPayload(cartID, orderID, status, total, transactionID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
			cartID, eventType, payload)
		if err != nil {
			return fmt.Errorf("%w: insert outbox event: %v", ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit update: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM order_outbox WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query outbox: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (s *PostgresStore) MarkEventProcessed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE order_outbox SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: mark event processed: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%w: purge expired orders: %v", ErrStoreUnavailable, err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func outboxPayload(cartID, orderID string, status domain.OrderStatus, total decimal.Decimal, transactionID *string) ([]byte, string, error) {
	eventType := EventOrderFailed
	if status == domain.OrderStatusPaymentCaptured {
		eventType = EventOrderCaptured
	}

	payload, err := json.Marshal(map[string]interface{}{
		"cart_id":        cartID,
		"order_id":       orderID,
		"status":         status,
		"total":          total,
		"transaction_id": transactionID,
		"occurred_at":    time.Now().UTC(),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	return payload, eventType, nil
}
