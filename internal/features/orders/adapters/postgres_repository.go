package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/core/database"
	"smartcity-orders/internal/core/money"
	events "smartcity-orders/internal/features/events/domain"
	eventports "smartcity-orders/internal/features/events/ports"
	"smartcity-orders/internal/features/orders/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const orderColumns = `id, user_id, user_email, status, payment_method, transaction_id, lines, billing,
subtotal, shipping, tax, discount, grand_total, estimated_delivery, created_at, updated_at`

const (
	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	selectOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	selectOrderForUpdateSQL = selectOrderSQL + ` FOR UPDATE`

	updateStatusSQL = `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`

	listByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
)

// ErrDuplicateOrder is returned when an order id is saved twice.
var ErrDuplicateOrder = errors.New("order already exists")

// StatusChange is the payload of an order.status_changed event.
type StatusChange struct {
	OrderID string             `json:"order_id"`
	UserID  string             `json:"user_id"`
	From    domain.OrderStatus `json:"from"`
	To      domain.OrderStatus `json:"to"`
	At      time.Time          `json:"at"`
}

// PostgresOrderRepository implements ports.OrderRepository on PostgreSQL.
// Every write also appends an outbox event in the same transaction.
type PostgresOrderRepository struct {
	db     database.DBPool
	outbox eventports.OutboxWriter
	now    func() time.Time
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository.
func NewPostgresOrderRepository(db database.DBPool, outbox eventports.OutboxWriter) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db, outbox: outbox, now: time.Now}
}

// Save inserts order together with its order.placed event.
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) (string, error) {
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return "", fmt.Errorf("failed to encode order lines: %w", err)
	}
	billing, err := json.Marshal(order.Billing)
	if err != nil {
		return "", fmt.Errorf("failed to encode billing: %w", err)
	}

	event, err := events.NewEnvelope(order.ID, domain.EventOrderPlaced, order, r.now())
	if err != nil {
		return "", err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		order.ID, order.UserID, order.UserEmail, string(order.Status),
		order.Payment.Method, order.Payment.TransactionID, lines, billing,
		int64(order.Totals.Subtotal), int64(order.Totals.Shipping), int64(order.Totals.Tax),
		int64(order.Totals.Discount), int64(order.Totals.GrandTotal),
		order.EstimatedDelivery, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("%s: %w", order.ID, ErrDuplicateOrder)
		}
		return "", fmt.Errorf("failed to insert order: %w", err)
	}

	if err := r.outbox.Append(ctx, tx, event); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit order: %w", err)
	}
	return order.ID, nil
}

// Get loads an order by id.
func (r *PostgresOrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, selectOrderSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return order, nil
}

// UpdateStatus locks the row, checks the transition and records an
// order.status_changed event.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := scanOrder(tx.QueryRow(ctx, selectOrderForUpdateSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order %s: %w", id, err)
	}

	prev := order.Status
	if err := order.TransitionTo(next, r.now().UTC()); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, updateStatusSQL, string(order.Status), order.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}

	event, err := events.NewEnvelope(id, domain.EventOrderStatusChanged, StatusChange{
		OrderID: id,
		UserID:  order.UserID,
		From:    prev,
		To:      order.Status,
		At:      order.UpdatedAt,
	}, order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.outbox.Append(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order %s: %w", id, err)
	}
	return order, nil
}

// ListByUser returns up to limit orders of userID, newest first.
func (r *PostgresOrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, listByUserSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                                            domain.Order
		status                                       string
		lines, billing                               []byte
		subtotal, shipping, tax, discount, grandTotal int64
	)

	err := row.Scan(
		&o.ID, &o.UserID, &o.UserEmail, &status, &o.Payment.Method, &o.Payment.TransactionID,
		&lines, &billing,
		&subtotal, &shipping, &tax, &discount, &grandTotal,
		&o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode lines of %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(billing, &o.Billing); err != nil {
		return nil, fmt.Errorf("failed to decode billing of %s: %w", o.ID, err)
	}

	o.Status = domain.OrderStatus(status)
	o.Totals = domain.Totals{
		Subtotal:   money.Money(subtotal),
		Shipping:   money.Money(shipping),
		Tax:        money.Money(tax),
		Discount:   money.Money(discount),
		GrandTotal: money.Money(grandTotal),
	}
	return &o, nil
}
