package domain

import (
	"time"

	orders "smartcity-orders/internal/features/orders/domain"
	payment "smartcity-orders/internal/features/payment/domain"
)

// Request is what the customer submits at checkout. Totals are never taken
// from the client; they are recomputed from the stored cart.
type Request struct {
	Billing       orders.Billing  `json:"billing"`
	PaymentMethod string          `json:"payment_method"`
	Payment       payment.Payload `json:"payment"`
}

// AddBusinessDays returns t moved forward by n weekdays. Saturdays and
// Sundays are skipped; the time of day is kept.
func AddBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}
