package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/features/payment/domain"
	"smartcity-orders/internal/features/payment/ports"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings tunes the circuit breaker around a gateway.
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings opens after 5 straight failures and lets a trial request through after 30s.
var DefaultBreakerSettings = BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}

// BreakerGateway stops calling an unhealthy gateway. Declines are business
// outcomes and never trip it.
type BreakerGateway struct {
	next ports.Gateway
	cb   *gobreaker.CircuitBreaker[domain.Confirmation]
}

// NewBreakerGateway wraps next in a circuit breaker.
func NewBreakerGateway(next ports.Gateway, s BreakerSettings) *BreakerGateway {
	cb := gobreaker.NewCircuitBreaker[domain.Confirmation](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrPaymentDeclined)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Get().Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerGateway{next: next, cb: cb}
}

// Confirm forwards to the wrapped gateway unless the breaker is open.
func (g *BreakerGateway) Confirm(ctx context.Context, charge domain.Charge) (domain.Confirmation, error) {
	conf, err := g.cb.Execute(func() (domain.Confirmation, error) {
		return g.next.Confirm(ctx, charge)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.Confirmation{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	return conf, err
}

// State reports the breaker state for health checks.
func (g *BreakerGateway) State() string {
	return g.cb.State().String()
}
