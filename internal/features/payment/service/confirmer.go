package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/features/payment/domain"
	"smartcity-orders/internal/features/payment/ports"

	"go.uber.org/zap"
)

// Confirmer bounds every gateway call by a timeout.
type Confirmer struct {
	gateway ports.Gateway
	timeout time.Duration
	now     func() time.Time
}

// NewConfirmer creates a Confirmer. A non-positive timeout defaults to 10s.
func NewConfirmer(gateway ports.Gateway, timeout time.Duration) *Confirmer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Confirmer{gateway: gateway, timeout: timeout, now: time.Now}
}

type result struct {
	conf domain.Confirmation
	err  error
}

// Confirm validates the charge and asks the gateway to confirm it.
// Cash on delivery is confirmed locally without a gateway call.
// It returns domain.ErrPaymentTimeout if the gateway does not answer within
// the timeout, even when the gateway ignores cancellation.
func (c *Confirmer) Confirm(ctx context.Context, charge domain.Charge) (domain.Confirmation, error) {
	if err := charge.Payload.Validate(charge.Method); err != nil {
		return domain.Confirmation{}, err
	}
	if !charge.Method.RequiresGateway() {
		return domain.Confirmation{Method: charge.Method, ConfirmedAt: c.now().UTC()}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		conf, err := c.gateway.Confirm(ctx, charge)
		done <- result{conf: conf, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}

	switch {
	case res.err == nil:
		return res.conf, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Get().Warn("Payment confirmation timed out",
			zap.String("reference", charge.Reference),
			zap.Duration("timeout", c.timeout),
		)
		return domain.Confirmation{}, fmt.Errorf("%w after %s", domain.ErrPaymentTimeout, c.timeout)
	case errors.Is(res.err, domain.ErrPaymentDeclined):
		return domain.Confirmation{}, res.err
	default:
		return domain.Confirmation{}, fmt.Errorf("payment confirmation failed: %w", res.err)
	}
}
