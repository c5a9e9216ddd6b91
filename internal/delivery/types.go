package delivery

import (
	"errors"
	"time"
)

// Delivery is one verified webhook request as stored in the delivery log.
type Delivery struct {
	ID         string
	Endpoint   string
	Method     string
	Path       string
	Topic      *string
	BodySize   int64
	BodyDigest string
	Payload    []byte
	RequestID  *string
	ReceivedAt time.Time
}

// RecordRequest carries what the webhook server knows about a verified request.
type RecordRequest struct {
	Endpoint  string
	Method    string
	Path      string
	Topic     string
	Body      []byte
	RequestID string
}

// ErrNotFound is returned by Get when no delivery has the given ID.
var ErrNotFound = errors.New("delivery not found")

const (
	defaultListLimit = 50
	maxListLimit     = 1000

	// Payloads above this size are stored by digest only.
	maxStoredPayload = 256 * 1024
)
