package adapters

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"smartcity-orders/internal/features/events/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outboxColumns = []string{"id", "aggregate_id", "event_type", "payload", "created_at"}

func envelope(t *testing.T, aggregateID string) domain.Envelope {
	t.Helper()
	e, err := domain.NewEnvelope(aggregateID, "order.placed", map[string]string{"order_id": aggregateID}, time.Now())
	require.NoError(t, err)
	return e
}

func TestPostgresOutbox_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	outbox := NewPostgresOutbox(mock)
	e := envelope(t, "SC-1")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)`)).
		WithArgs(e.ID.String(), "SC-1", "order.placed", []byte(e.Payload), e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, outbox.Append(ctx, tx, e))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOutbox_Drain(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesAndMarks", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		e1, e2 := envelope(t, "SC-1"), envelope(t, "SC-2")

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows(outboxColumns).
				AddRow(e1.ID.String(), e1.AggregateID, e1.Type, []byte(e1.Payload), e1.CreatedAt).
				AddRow(e2.ID.String(), e2.AggregateID, e2.Type, []byte(e2.Payload), e2.CreatedAt))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE outbox_events SET published_at = now()`)).
			WithArgs([]string{e1.ID.String(), e2.ID.String()}).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))
		mock.ExpectCommit()

		var sent []domain.Envelope
		n, err := NewPostgresOutbox(mock).Drain(ctx, 10, func(_ context.Context, e domain.Envelope) error {
			sent = append(sent, e)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, sent, 2)
		assert.Equal(t, e1.ID, sent[0].ID)
		assert.JSONEq(t, string(e2.Payload), string(sent[1].Payload))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StopsAtFirstFailure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		e1, e2 := envelope(t, "SC-1"), envelope(t, "SC-2")

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows(outboxColumns).
				AddRow(e1.ID.String(), e1.AggregateID, e1.Type, []byte(e1.Payload), e1.CreatedAt).
				AddRow(e2.ID.String(), e2.AggregateID, e2.Type, []byte(e2.Payload), e2.CreatedAt))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE outbox_events SET published_at = now()`)).
			WithArgs([]string{e1.ID.String()}).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		calls := 0
		n, err := NewPostgresOutbox(mock).Drain(ctx, 10, func(_ context.Context, e domain.Envelope) error {
			calls++
			if e.AggregateID == "SC-1" {
				return nil
			}
			return errors.New("broker down")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 2, calls)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NothingPending", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows(outboxColumns))
		mock.ExpectCommit()

		n, err := NewPostgresOutbox(mock).Drain(ctx, 10, func(context.Context, domain.Envelope) error {
			t.Fatal("publish must not be called")
			return nil
		})
		require.NoError(t, err)
		assert.Zero(t, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryError", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
			WithArgs(10).
			WillReturnError(errors.New("relation does not exist"))
		mock.ExpectRollback()

		_, err = NewPostgresOutbox(mock).Drain(ctx, 10, func(context.Context, domain.Envelope) error { return nil })
		assert.ErrorContains(t, err, "failed to fetch outbox events")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
