package ports

import (
	"context"

	"smartcity-orders/internal/features/events/domain"

	"github.com/jackc/pgx/v5"
)

// Publisher delivers one event to the message broker.
type Publisher interface {
	Publish(ctx context.Context, e domain.Envelope) error
	Close() error
}

// OutboxWriter appends events inside the caller's transaction.
type OutboxWriter interface {
	Append(ctx context.Context, tx pgx.Tx, e domain.Envelope) error
}

// OutboxReader drains unpublished events. Drain locks up to limit events in
// creation order, calls publish for each until one fails, marks the delivered
// ones published and returns how many were delivered.
type OutboxReader interface {
	Drain(ctx context.Context, limit int, publish func(context.Context, domain.Envelope) error) (int, error)
}
