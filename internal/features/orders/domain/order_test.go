package domain

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_MarshalJSON(t *testing.T) {
	now := time.Now()
	order := Order{
		ID:        "SC-1",
		UserID:    "u1",
		Status:    OrderStatusConfirmed,
		Billing:   Billing{FirstName: "John", City: "Pune"},
		Totals:    Totals{Subtotal: 1000, Shipping: 50, Tax: 120, Discount: 100, GrandTotal: 1070},
		CreatedAt: now,
		Lines: []Line{
			{ProductID: "P1", Name: "Item 1", Quantity: 2, UnitPrice: 500, LineTotal: 1000},
		},
	}

	data, err := json.Marshal(order)
	assert.NoError(t, err)

	jsonString := string(data)
	assert.Contains(t, jsonString, `"order_id":"SC-1"`)
	assert.Contains(t, jsonString, `"status":"confirmed"`)
	assert.Contains(t, jsonString, `"first_name":"John"`)
	assert.Contains(t, jsonString, `"grand_total":1070`)
	assert.Contains(t, jsonString, `"lines":[{`)
}

func TestOrderStatus_Transitions(t *testing.T) {
	all := []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusFulfilled, OrderStatusCancelled}
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusConfirmed}:   true,
		{OrderStatusPending, OrderStatusCancelled}:   true,
		{OrderStatusConfirmed, OrderStatusFulfilled}: true,
		{OrderStatusConfirmed, OrderStatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, OrderStatusFulfilled.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusPending.Terminal())
}

func TestOrder_TransitionTo(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	o := &Order{Status: OrderStatusPending}

	require.NoError(t, o.TransitionTo(OrderStatusConfirmed, at))
	assert.Equal(t, OrderStatusConfirmed, o.Status)
	assert.Equal(t, at, o.UpdatedAt)

	err := o.TransitionTo(OrderStatusPending, at)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, OrderStatusConfirmed, o.Status)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("Fulfilled")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFulfilled, st)

	_, err = ParseStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBilling_Validate(t *testing.T) {
	full := Billing{
		FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com", Phone: "+91 98765 43210",
		Address: "12 MG Road", City: "Pune", State: "MH", ZipCode: "411001",
	}
	require.NoError(t, full.Validate())

	tests := []struct {
		field string
		clear func(b *Billing)
	}{
		{"firstName", func(b *Billing) { b.FirstName = "" }},
		{"lastName", func(b *Billing) { b.LastName = " " }},
		{"email", func(b *Billing) { b.Email = "" }},
		{"phone", func(b *Billing) { b.Phone = "" }},
		{"address", func(b *Billing) { b.Address = "" }},
		{"city", func(b *Billing) { b.City = "" }},
		{"state", func(b *Billing) { b.State = "" }},
		{"zipCode", func(b *Billing) { b.ZipCode = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			b := full
			tt.clear(&b)

			err := b.Validate()
			assert.ErrorIs(t, err, ErrIncompleteBillingInfo)
			var be *IncompleteBillingError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.field, be.Field)
		})
	}

	// The first missing field in form order is reported.
	var be *IncompleteBillingError
	require.ErrorAs(t, Billing{City: "Pune"}.Validate(), &be)
	assert.Equal(t, "firstName", be.Field)
}

func TestNewID(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 30, 5, 0, time.UTC)
	a, b := NewID(at), NewID(at)

	assert.Regexp(t, regexp.MustCompile(`^SC-20261016093005-[0-9a-f-]{36}$`), a)
	assert.NotEqual(t, a, b)
}

func TestSynthetic(t *testing.T) {
	now := time.Now()
	o := Synthetic("SC-404", now)

	assert.Equal(t, "SC-404", o.ID)
	assert.Equal(t, OrderStatusConfirmed, o.Status)
	assert.Empty(t, o.Lines)
}

func TestCustomerMaySet(t *testing.T) {
	assert.True(t, CustomerMaySet(OrderStatusCancelled))
	assert.False(t, CustomerMaySet(OrderStatusFulfilled))
	assert.False(t, CustomerMaySet(OrderStatusConfirmed))
	assert.False(t, CustomerMaySet(OrderStatusPending))
}
