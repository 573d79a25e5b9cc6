package ports

import (
	"context"

	"smartcity-orders/internal/features/payment/domain"
)

// Gateway is the secondary port for an external payment processor.
// A refusal is reported as domain.ErrPaymentDeclined.
type Gateway interface {
	Confirm(ctx context.Context, charge domain.Charge) (domain.Confirmation, error)
}

// PaymentConfirmer is the primary port used by checkout.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, charge domain.Charge) (domain.Confirmation, error)
}
