package webhook

import (
	"context"

	"github.com/mattjoyce/sigcheck/internal/delivery"
)

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks github.com/mattjoyce/sigcheck/internal/webhook DeliveryRecorder

// DeliveryRecorder stores verified deliveries.
type DeliveryRecorder interface {
	Record(ctx context.Context, req delivery.RecordRequest) (string, error)
}

// Config holds webhook server configuration.
type Config struct {
	Listen    string
	Endpoints []EndpointConfig

	// MetricsPath, when set, exposes Prometheus metrics on the same listener.
	MetricsPath string

	// MetricsToken, when set, is required as a bearer token on MetricsPath.
	MetricsToken string
}

// EndpointConfig defines a single webhook endpoint.
type EndpointConfig struct {
	// Path is the URL path for this webhook (e.g., "/" or "/hooks/contentful")
	Path string

	// Secret is the shared HMAC signing secret. Empty means misconfigured:
	// requests to this endpoint are answered with 500.
	Secret string

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64
}

// DeliveryResponse is the JSON response for verified deliveries.
type DeliveryResponse struct {
	DeliveryID string `json:"delivery_id"`
	Message    string `json:"message"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB
)

// Client-facing error messages. They never say why verification failed.
const (
	msgForbidden      = "forbidden"
	msgUnauthorized   = "unauthorized"
	msgMisconfigured  = "server misconfigured"
	msgTooLarge       = "payload too large"
	msgReadFailed     = "failed to read request body"
	msgRecordFailed   = "failed to record delivery"
	msgNotFound       = "endpoint not found"
	msgMethodNotAllow = "method not allowed"
)
