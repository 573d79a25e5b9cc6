package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"smartcity-orders/internal/core/money"
)

// Method is how the customer pays for an order.
type Method string

const (
	MethodCard       Method = "card"
	MethodUPI        Method = "upi"
	MethodNetBanking Method = "netbanking"
	MethodWallet     Method = "wallet"
	MethodCOD        Method = "cod"
)

var (
	// ErrPaymentDeclined is returned when the gateway refuses the payment.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentTimeout is returned when confirmation does not finish in time.
	ErrPaymentTimeout = errors.New("payment confirmation timed out")
	// ErrUnsupportedPaymentMethod is returned for unknown payment methods.
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	// ErrInvalidPaymentDetails is returned when the payload fails validation.
	ErrInvalidPaymentDetails = errors.New("invalid payment details")
	// ErrGatewayUnavailable is returned while the gateway is considered unhealthy.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// ParseMethod normalizes s into a known Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodCard, MethodUPI, MethodNetBanking, MethodWallet, MethodCOD:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, s)
}

// RequiresGateway reports whether the method is confirmed by the payment gateway.
func (m Method) RequiresGateway() bool {
	return m != MethodCOD
}

// Payload carries the method-specific details entered at checkout.
type Payload struct {
	CardNumber string `json:"card_number,omitempty"`
	CardHolder string `json:"card_holder,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	VPA        string `json:"vpa,omitempty"`
	BankCode   string `json:"bank_code,omitempty"`
	Wallet     string `json:"wallet,omitempty"`
}

var (
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	vpaPattern    = regexp.MustCompile(`^[A-Za-z0-9._-]{2,}@[A-Za-z]{2,}$`)
)

// DetailsError names the payload field that failed validation.
// It matches ErrInvalidPaymentDetails.
type DetailsError struct {
	Field  string
	Reason string
}

func (e *DetailsError) Error() string {
	return fmt.Sprintf("invalid payment details: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidPaymentDetails) match.
func (e *DetailsError) Is(target error) bool {
	return target == ErrInvalidPaymentDetails
}

// Digits returns the card number with spaces and dashes removed.
func (p Payload) Digits() string {
	return strings.NewReplacer(" ", "", "-", "").Replace(p.CardNumber)
}

// Validate checks the fields required by method.
func (p Payload) Validate(method Method) error {
	switch method {
	case MethodCard:
		if !allDigits(p.Digits(), 16) {
			return &DetailsError{Field: "card_number", Reason: "must be 16 digits"}
		}
		if strings.TrimSpace(p.CardHolder) == "" {
			return &DetailsError{Field: "card_holder", Reason: "is required"}
		}
		if !expiryPattern.MatchString(p.Expiry) {
			return &DetailsError{Field: "expiry", Reason: "must be MM/YY"}
		}
		if !allDigits(p.CVV, 3) {
			return &DetailsError{Field: "cvv", Reason: "must be 3 digits"}
		}
	case MethodUPI:
		if !vpaPattern.MatchString(p.VPA) {
			return &DetailsError{Field: "vpa", Reason: "must look like name@bank"}
		}
	case MethodNetBanking:
		if strings.TrimSpace(p.BankCode) == "" {
			return &DetailsError{Field: "bank_code", Reason: "is required"}
		}
	case MethodWallet:
		if strings.TrimSpace(p.Wallet) == "" {
			return &DetailsError{Field: "wallet", Reason: "is required"}
		}
	case MethodCOD:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, method)
	}
	return nil
}

func allDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Confirmation is a successful payment.
type Confirmation struct {
	TransactionID string    `json:"transaction_id"`
	Method        Method    `json:"method"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// Charge is a request to confirm payment for an order.
type Charge struct {
	// Reference identifies the order being paid; gateways use it as an idempotency key.
	Reference string
	Method    Method
	Amount    money.Money
	Payload   Payload
}
