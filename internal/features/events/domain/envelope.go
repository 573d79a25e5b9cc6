package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is one domain event as stored in the outbox and sent to the broker.
type Envelope struct {
	ID          uuid.UUID       `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	Type        string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewEnvelope encodes payload into a new event for aggregateID.
func NewEnvelope(aggregateID, eventType string, payload any, at time.Time) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		Type:        eventType,
		Payload:     body,
		CreatedAt:   at.UTC(),
	}, nil
}
