package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/core/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLockBusy is returned when a lock is still held after every acquisition attempt.
var ErrLockBusy = errors.New("lock is held by another caller")

// LockWait bounds how long Lock polls for a busy key.
var LockWait = retry.Policy{Attempts: 10, Base: 5 * time.Millisecond}

// Lock takes an exclusive lease on key that expires after ttl, so a crashed
// holder cannot block others for longer than that. The returned func releases
// the lease only if it is still ours.
func Lock(ctx context.Context, c Cache, key string, ttl time.Duration) (func(), error) {
	token := []byte(uuid.NewString())

	err := retry.Do(ctx, LockWait, func(err error) bool { return errors.Is(err, ErrLockBusy) },
		func(ctx context.Context) error {
			ok, err := c.SetNX(ctx, key, token, ttl)
			if err != nil {
				return err
			}
			if !ok {
				return ErrLockBusy
			}
			return nil
		})
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			return nil, fmt.Errorf("%s: %w", key, ErrLockBusy)
		}
		return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
	}

	return func() {
		released, err := c.DeleteIfEqual(context.WithoutCancel(ctx), key, token)
		if err != nil {
			logger.Get().Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			return
		}
		if !released {
			logger.Get().Warn("Lock expired before release", zap.String("key", key))
		}
	}, nil
}
