package adapters

import (
	"context"
	"fmt"

	"smartcity-orders/internal/core/database"
	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/features/events/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	insertEventSQL = `INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`

	selectUnpublishedSQL = `SELECT id, aggregate_id, event_type, payload, created_at
FROM outbox_events
WHERE published_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED`

	markPublishedSQL = `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1::uuid[])`
)

// PostgresOutbox stores events in the outbox_events table.
type PostgresOutbox struct {
	db database.DBPool
}

// NewPostgresOutbox creates a new PostgresOutbox.
func NewPostgresOutbox(db database.DBPool) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

// Append inserts e using tx so it commits or rolls back with the caller's change.
func (o *PostgresOutbox) Append(ctx context.Context, tx pgx.Tx, e domain.Envelope) error {
	_, err := tx.Exec(ctx, insertEventSQL, e.ID.String(), e.AggregateID, e.Type, []byte(e.Payload), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append %s event: %w", e.Type, err)
	}
	return nil
}

// Drain publishes a batch of unpublished events. Rows are locked with
// SKIP LOCKED so concurrent relays never deliver the same batch.
func (o *PostgresOutbox) Drain(ctx context.Context, limit int, publish func(context.Context, domain.Envelope) error) (int, error) {
	tx, err := o.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, selectUnpublishedSQL, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch outbox events: %w", err)
	}

	var batch []domain.Envelope
	for rows.Next() {
		var e domain.Envelope
		var id string
		var payload []byte
		if err := rows.Scan(&id, &e.AggregateID, &e.Type, &payload, &e.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("outbox event has invalid id %q: %w", id, err)
		}
		e.Payload = payload
		batch = append(batch, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read outbox events: %w", err)
	}

	delivered := make([]string, 0, len(batch))
	for _, e := range batch {
		if err := publish(ctx, e); err != nil {
			logger.Get().Warn("Failed to publish outbox event",
				zap.String("event_id", e.ID.String()),
				zap.String("event_type", e.Type),
				zap.Error(err),
			)
			break
		}
		delivered = append(delivered, e.ID.String())
	}

	if len(delivered) > 0 {
		if _, err := tx.Exec(ctx, markPublishedSQL, delivered); err != nil {
			return 0, fmt.Errorf("failed to mark events published: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit outbox tx: %w", err)
	}
	return len(delivered), nil
}
