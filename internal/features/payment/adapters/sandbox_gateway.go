package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smartcity-orders/internal/core/money"
	"smartcity-orders/internal/features/payment/domain"

	"github.com/google/uuid"
)

// SandboxGateway approves payments locally. It declines amounts above
// DeclineAbove and card numbers ending in 0000.
type SandboxGateway struct {
	DeclineAbove money.Money
	// Latency delays every confirmation, honoring ctx.
	Latency time.Duration
}

// NewSandboxGateway creates a sandbox that declines amounts above declineAbove.
func NewSandboxGateway(declineAbove money.Money) *SandboxGateway {
	return &SandboxGateway{DeclineAbove: declineAbove}
}

// Confirm simulates a gateway round trip.
func (g *SandboxGateway) Confirm(ctx context.Context, charge domain.Charge) (domain.Confirmation, error) {
	if g.Latency > 0 {
		timer := time.NewTimer(g.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Confirmation{}, ctx.Err()
		case <-timer.C:
		}
	}

	if g.DeclineAbove > 0 && charge.Amount > g.DeclineAbove {
		return domain.Confirmation{}, fmt.Errorf("%w: amount %s over sandbox limit", domain.ErrPaymentDeclined, charge.Amount)
	}
	if charge.Method == domain.MethodCard && strings.HasSuffix(charge.Payload.Digits(), "0000") {
		return domain.Confirmation{}, fmt.Errorf("%w: card refused", domain.ErrPaymentDeclined)
	}

	return domain.Confirmation{
		TransactionID: "sbx_" + uuid.NewString(),
		Method:        charge.Method,
		ConfirmedAt:   time.Now().UTC(),
	}, nil
}
