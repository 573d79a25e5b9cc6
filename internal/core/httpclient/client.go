package httpclient

import (
	"context"
	"net/http"
	"time"

	"smartcity-orders/internal/core/logger"

	"go.uber.org/zap"
)

// RayIDHeader carries the inbound request id to downstream services.
const RayIDHeader = "X-Ray-ID"

type rayIDKey struct{}

// WithRayID returns a context whose outbound requests carry the given ray id.
func WithRayID(ctx context.Context, rayID string) context.Context {
	if rayID == "" {
		return ctx
	}
	return context.WithValue(ctx, rayIDKey{}, rayID)
}

// RayIDFrom extracts the ray id stored by WithRayID.
func RayIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(rayIDKey{}).(string)
	return id
}

// LoggingRoundTripper logs every outbound request and forwards the ray id.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	rayID := RayIDFrom(req.Context())

	if rayID != "" && req.Header.Get(RayIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(RayIDHeader, rayID)
	}

	log := logger.WithRayID(rayID)
	log.Debug("HTTP Request Started",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	)

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		log.Error("HTTP Request Failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	log.Debug("HTTP Request Completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client with logging middleware.
// A zero timeout leaves deadlines to the request context.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: http.DefaultTransport,
		},
		Timeout: timeout,
	}
}
