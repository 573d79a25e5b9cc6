package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"smartcity-orders/internal/core/money"

	"github.com/google/uuid"
)

// OrderStatus represents the current state of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was assembled but payment is not settled.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates payment was confirmed or cash on delivery was accepted.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusFulfilled indicates the order was delivered. Terminal.
	OrderStatusFulfilled OrderStatus = "fulfilled"
	// OrderStatusCancelled indicates the order was cancelled. Terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Event types written to the outbox alongside order changes.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

var (
	// ErrOrderNotFound is returned when the order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when a status change breaks the order lifecycle.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrInvalidStatus is returned for unknown status names.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrLookupUnavailable is returned when the order store keeps failing during a lookup.
	ErrLookupUnavailable = errors.New("order lookup unavailable")
	// ErrOrderForbidden is returned when a caller reads an order they do not own.
	ErrOrderForbidden = errors.New("order belongs to another user")
	// ErrAdminRequired is returned when a customer asks for a status only staff may set.
	ErrAdminRequired = errors.New("status change requires an administrator")
	// ErrIncompleteBillingInfo is matched by every IncompleteBillingError.
	ErrIncompleteBillingInfo = errors.New("incomplete billing info")
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusFulfilled, OrderStatusCancelled},
}

// ParseStatus converts s into a known OrderStatus.
func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusFulfilled, OrderStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Line is a purchased product with the unit price captured at checkout.
type Line struct {
	// ProductID is the catalog id of the product.
	ProductID string `json:"product_id"`
	// Name is the product name at checkout time.
	Name string `json:"name"`
	// Quantity is the number of units purchased.
	Quantity int64 `json:"quantity"`
	// UnitPrice is the snapshot price in minor units.
	UnitPrice money.Money `json:"unit_price"`
	// LineTotal is UnitPrice times Quantity.
	LineTotal money.Money `json:"line_total"`
}

// Billing is the customer's billing and delivery contact.
type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
}

// IncompleteBillingError names the first missing billing field.
// It matches ErrIncompleteBillingInfo.
type IncompleteBillingError struct {
	Field string
}

func (e *IncompleteBillingError) Error() string {
	return fmt.Sprintf("incomplete billing info: %s is required", e.Field)
}

// Is lets errors.Is(err, ErrIncompleteBillingInfo) match.
func (e *IncompleteBillingError) Is(target error) bool {
	return target == ErrIncompleteBillingInfo
}

// Validate returns an IncompleteBillingError for the first blank field,
// checked in form order.
func (b Billing) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"firstName", b.FirstName},
		{"lastName", b.LastName},
		{"email", b.Email},
		{"phone", b.Phone},
		{"address", b.Address},
		{"city", b.City},
		{"state", b.State},
		{"zipCode", b.ZipCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &IncompleteBillingError{Field: f.name}
		}
	}
	return nil
}

// Totals is the priced summary of an order in minor units.
type Totals struct {
	Subtotal   money.Money `json:"subtotal"`
	Shipping   money.Money `json:"shipping"`
	Tax        money.Money `json:"tax"`
	Discount   money.Money `json:"discount"`
	GrandTotal money.Money `json:"grand_total"`
}

// Payment records how the order was paid.
type Payment struct {
	// Method is the payment method name (card, upi, netbanking, wallet, cod).
	Method string `json:"method"`
	// TransactionID is the gateway reference; empty for cash on delivery.
	TransactionID string `json:"transaction_id,omitempty"`
}

// Order represents a customer order in the system.
type Order struct {
	// ID is the unique identifier for the order.
	ID string `json:"order_id"`
	// UserID is the Firebase uid of the customer.
	UserID string `json:"user_id"`
	// UserEmail is the customer's account email.
	UserEmail string `json:"user_email"`
	// Status is the lifecycle state of the order.
	Status OrderStatus `json:"status"`
	// Lines are the purchased products.
	Lines []Line `json:"lines"`
	// Billing is the customer's billing and delivery contact.
	Billing Billing `json:"billing"`
	// Payment records how the order was paid.
	Payment Payment `json:"payment"`
	// Totals are computed server-side at checkout.
	Totals Totals `json:"totals"`
	// EstimatedDelivery is the promised delivery date.
	EstimatedDelivery time.Time `json:"estimated_delivery"`
	// CreatedAt is the timestamp when the order was created.
	CreatedAt time.Time `json:"create_date"`
	// UpdatedAt is the timestamp of the last status change.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns an order id of the form SC-<yyyymmddhhmmss>-<uuid>.
func NewID(now time.Time) string {
	return "SC-" + now.UTC().Format("20060102150405") + "-" + uuid.NewString()
}

// TransitionTo moves the order to next if the lifecycle allows it.
func (o *Order) TransitionTo(next OrderStatus, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// OwnedBy reports whether uid placed the order.
func (o *Order) OwnedBy(uid string) bool {
	return o.UserID == uid
}

// CustomerMaySet reports whether the customer who placed an order may move it
// to next. Customers can only cancel; confirmation and fulfilment are staff actions.
func CustomerMaySet(next OrderStatus) bool {
	return next == OrderStatusCancelled
}

// Source tells where a resolved order came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceStore     Source = "store"
	SourceSynthetic Source = "synthetic"
)

// Resolution is the result of an order lookup.
type Resolution struct {
	Order  *Order `json:"order"`
	Source Source `json:"source"`
	// Warning is set when Order is a placeholder rather than a stored record.
	Warning        bool   `json:"warning"`
	WarningMessage string `json:"warning_message,omitempty"`
}

// SyntheticWarning is the message attached to placeholder orders.
const SyntheticWarning = "order record unavailable; showing a placeholder"

// Synthetic builds the placeholder returned when no stored order exists.
func Synthetic(id string, now time.Time) *Order {
	return &Order{
		ID:        id,
		Status:    OrderStatusConfirmed,
		Lines:     []Line{},
		Payment:   Payment{Method: "cod"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
