package service

import (
	"context"
	"time"

	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/features/events/ports"

	"go.uber.org/zap"
)

// Relay moves committed outbox events to the broker.
type Relay struct {
	outbox    ports.OutboxReader
	publisher ports.Publisher
	interval  time.Duration
	batchSize int
}

// NewRelay creates a relay that polls every interval for up to batchSize events.
func NewRelay(outbox ports.OutboxReader, publisher ports.Publisher, interval time.Duration, batchSize int) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until ctx is cancelled. A full batch is followed by another
// drain without waiting for the next tick.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Get().Info("Outbox relay started",
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Get().Info("Outbox relay stopped")
			return
		case <-ticker.C:
			for {
				if n := r.DrainOnce(ctx); n < r.batchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// DrainOnce publishes one batch and returns how many events were delivered.
func (r *Relay) DrainOnce(ctx context.Context) int {
	n, err := r.outbox.Drain(ctx, r.batchSize, r.publisher.Publish)
	if err != nil {
		if ctx.Err() == nil {
			logger.Get().Error("Outbox drain failed", zap.Error(err))
		}
		return 0
	}
	if n > 0 {
		logger.Get().Debug("Outbox events published", zap.Int("count", n))
	}
	return n
}
