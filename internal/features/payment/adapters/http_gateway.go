package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smartcity-orders/internal/core/httpclient"
	"smartcity-orders/internal/features/payment/domain"
)

const confirmationsPath = "/v1/confirmations"

// HTTPGateway confirms payments against a REST payment processor.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway creates a gateway client for baseURL.
// Deadlines come from the request context.
func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpclient.NewClient(0),
	}
}

type confirmationRequest struct {
	Reference string         `json:"reference"`
	Method    domain.Method  `json:"method"`
	Amount    int64          `json:"amount"`
	Details   domain.Payload `json:"details"`
}

type confirmationResponse struct {
	TransactionID string    `json:"transaction_id"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
	Reason        string    `json:"reason,omitempty"`
}

// Confirm posts the charge. 200 confirms, 402 declines, anything else is an error.
func (g *HTTPGateway) Confirm(ctx context.Context, charge domain.Charge) (domain.Confirmation, error) {
	body, err := json.Marshal(confirmationRequest{
		Reference: charge.Reference,
		Method:    charge.Method,
		Amount:    int64(charge.Amount),
		Details:   charge.Payload,
	})
	if err != nil {
		return domain.Confirmation{}, fmt.Errorf("failed to encode charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+confirmationsPath, bytes.NewReader(body))
	if err != nil {
		return domain.Confirmation{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", charge.Reference)

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Confirmation{}, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var out confirmationResponse
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return domain.Confirmation{}, fmt.Errorf("failed to decode gateway response: %w", err)
		}
		if out.TransactionID == "" {
			return domain.Confirmation{}, fmt.Errorf("gateway response has no transaction id")
		}
		if out.ConfirmedAt.IsZero() {
			out.ConfirmedAt = time.Now().UTC()
		}
		return domain.Confirmation{
			TransactionID: out.TransactionID,
			Method:        charge.Method,
			ConfirmedAt:   out.ConfirmedAt,
		}, nil
	case http.StatusPaymentRequired:
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if out.Reason == "" {
			return domain.Confirmation{}, domain.ErrPaymentDeclined
		}
		return domain.Confirmation{}, fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, out.Reason)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Confirmation{}, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
}
