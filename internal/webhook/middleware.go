package webhook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattjoyce/sigcheck/internal/log"
	"github.com/mattjoyce/sigcheck/internal/metrics"
	"github.com/mattjoyce/sigcheck/internal/signature"
)

type ctxKey int

const rawBodyKey ctxKey = iota

// RawBody returns the request body bytes that passed signature verification.
func RawBody(ctx context.Context) []byte {
	b, _ := ctx.Value(rawBodyKey).([]byte)
	return b
}

// RequireSignature rejects requests whose X-Contentful-Signature does not
// match. A nil verifier means no secret is configured and yields 500.
//
// The body is read once, bounded by maxBody, verified, and then made
// available again both as r.Body and via RawBody.
func RequireSignature(v *signature.Verifier, endpoint string, maxBody int64, logger *slog.Logger) func(http.Handler) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	logger = log.WithEndpoint(logger, endpoint)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				metrics.Verifications.WithLabelValues(endpoint, metrics.OutcomeMissingSecret).Inc()
				logger.Error("webhook signing secret not configured")
				respondError(w, http.StatusInternalServerError, msgMisconfigured)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
			if err != nil {
				respondError(w, http.StatusInternalServerError, msgReadFailed)
				return
			}
			if int64(len(body)) > maxBody {
				respondError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
				return
			}

			req := signature.Request{
				Method:  r.Method,
				Path:    requestTarget(r),
				Headers: signature.FromHTTP(r.Header),
				Body:    body,
			}

			if err := v.Check(req); err != nil {
				outcome := outcomeFor(err)
				metrics.Verifications.WithLabelValues(endpoint, outcome).Inc()
				if errors.Is(err, signature.ErrMissingSecret) {
					logger.Error("webhook signing secret not configured")
					respondError(w, http.StatusInternalServerError, msgMisconfigured)
					return
				}
				logger.Warn("webhook signature verification failed",
					"reason", outcome,
					"request_id", middleware.GetReqID(r.Context()),
				)
				respondError(w, http.StatusForbidden, msgForbidden)
				return
			}
			metrics.Verifications.WithLabelValues(endpoint, metrics.OutcomeValid).Inc()

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := context.WithValue(r.Context(), rawBodyKey, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestTarget returns the path as the client sent it, query included,
// without percent-decoding.
func requestTarget(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, signature.ErrMissingSecret):
		return metrics.OutcomeMissingSecret
	case errors.Is(err, signature.ErrMissingCredentials):
		return metrics.OutcomeMissingCredentials
	default:
		return metrics.OutcomeSignatureMismatch
	}
}
