package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattjoyce/sigcheck/internal/auth"
	"github.com/mattjoyce/sigcheck/internal/delivery"
	"github.com/mattjoyce/sigcheck/internal/log"
	"github.com/mattjoyce/sigcheck/internal/metrics"
	"github.com/mattjoyce/sigcheck/internal/signature"
)

// Server represents the webhook HTTP server.
type Server struct {
	config   Config
	recorder DeliveryRecorder
	logger   *slog.Logger
	server   *http.Server

	// endpoints maps URL paths to their configurations
	endpoints map[string]*endpoint
}

type endpoint struct {
	EndpointConfig
	verifier *signature.Verifier
}

// New creates a new webhook server instance. Endpoints without a secret are
// still served so callers get a distinct 500 instead of a 404.
func New(config Config, recorder DeliveryRecorder, logger *slog.Logger) *Server {
	endpoints := make(map[string]*endpoint, len(config.Endpoints))
	for i := range config.Endpoints {
		ep := &endpoint{EndpointConfig: config.Endpoints[i]}
		if ep.MaxBodySize <= 0 {
			ep.MaxBodySize = DefaultMaxBodySize
		}

		v, err := signature.NewVerifier(ep.Secret)
		if err != nil {
			logger.Error("webhook endpoint has no signing secret", "endpoint", ep.Path, "error", err)
		}
		ep.verifier = v
		endpoints[ep.Path] = ep
	}

	return &Server{
		config:    config,
		recorder:  recorder,
		logger:    logger,
		endpoints: endpoints,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "endpoints", len(s.endpoints))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the configured HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, msgMethodNotAllow)
	})

	for path, ep := range s.endpoints {
		r.With(RequireSignature(ep.verifier, path, ep.MaxBodySize, s.logger)).
			Post(path, s.handleDelivery(path))
	}

	if s.config.MetricsPath != "" {
		deny := func(w http.ResponseWriter, _ *http.Request) {
			respondError(w, http.StatusUnauthorized, msgUnauthorized)
		}
		r.With(auth.RequireBearer(s.config.MetricsToken, deny)).
			Method(http.MethodGet, s.config.MetricsPath, metrics.Handler())
	}

	return r
}

// unmatchedRoute labels requests that hit no route so arbitrary paths
// cannot create new metric series.
const unmatchedRoute = "unmatched"

// loggingMiddleware logs HTTP requests (excludes sensitive payloads) and
// feeds the request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := strconv.Itoa(ww.Status())
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route, status).Observe(elapsed.Seconds())

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleDelivery records a request that already passed RequireSignature.
func (s *Server) handleDelivery(path string) http.HandlerFunc {
	logger := log.WithEndpoint(s.logger, path)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body := RawBody(ctx)
		topic := r.Header.Get(signature.HeaderTopic)

		id, err := s.recorder.Record(ctx, delivery.RecordRequest{
			Endpoint:  path,
			Method:    r.Method,
			Path:      requestTarget(r),
			Topic:     topic,
			Body:      body,
			RequestID: middleware.GetReqID(ctx),
		})
		if err != nil {
			logger.Error("failed to record webhook delivery", "error", err)
			respondError(w, http.StatusInternalServerError, msgRecordFailed)
			return
		}

		logger.Info("webhook delivery verified",
			"topic", topic,
			"delivery_id", id,
			"body_bytes", len(body),
		)

		respondJSON(w, http.StatusOK, DeliveryResponse{DeliveryID: id, Message: "verified"})
	}
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
