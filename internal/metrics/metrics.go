package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Verification outcomes.
const (
	OutcomeValid              = "valid"
	OutcomeMissingCredentials = "missing_credentials"
	OutcomeSignatureMismatch  = "signature_mismatch"
	OutcomeMissingSecret      = "missing_secret"
)

var (
	// Registry is the dedicated Prometheus registry for sigcheck.
	Registry = prometheus.NewRegistry()

	// Verifications counts signature checks by endpoint and outcome.
	Verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sigcheck_verifications_total", Help: "Webhook signature verifications by endpoint and outcome."},
		[]string{"endpoint", "outcome"},
	)
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sigcheck_http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "sigcheck_http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

var regOnce sync.Once

// Register adds the collectors to Registry. Safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(Verifications)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
