package metric

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/valtok-go/pkg/token"
)

const namespace = "valtok"

// Registry holds all application metrics. It implements token.Sink.
type Registry struct {
	registry *prometheus.Registry

	// Token provider metrics
	TokenOps      *prometheus.CounterVec
	TokenDuration *prometheus.HistogramVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter

	// Key ring metrics
	KeyRingReloads *prometheus.CounterVec
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus all valtok metrics.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.TokenOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "token",
		Name:      "operations_total",
		Help:      "Token operations by operation and outcome reason",
	}, []string{"op", "reason"})

	r.TokenDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "token",
		Name:      "operation_duration_seconds",
		Help:      "Token operation latency",
		Buckets:   []float64{.00001, .000025, .00005, .0001, .00025, .0005, .001, .005, .01},
	}, []string{"op"})

	r.RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	r.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	r.RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})

	r.KeyRingReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "keyring",
		Name:      "reloads_total",
		Help:      "Key ring reloads by result",
	}, []string{"result"})

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.TokenOps,
		r.TokenDuration,
		r.RequestsTotal,
		r.RequestDuration,
		r.RateLimited,
		r.KeyRingReloads,
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Observe implements token.Sink.
func (r *Registry) Observe(e token.Event) {
	r.TokenOps.WithLabelValues(string(e.Op), string(e.Reason)).Inc()
	r.TokenDuration.WithLabelValues(string(e.Op)).Observe(e.Duration.Seconds())
}

// RecordRequest records one served HTTP request. path must be a route
// pattern, not the raw URL, to bound cardinality.
func (r *Registry) RecordRequest(method, path string, status int, d time.Duration) {
	r.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// IncRateLimited counts a request rejected by the rate limiter.
func (r *Registry) IncRateLimited() {
	r.RateLimited.Inc()
}

// RecordKeyRingReload counts a key ring reload attempt.
func (r *Registry) RecordKeyRingReload(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.KeyRingReloads.WithLabelValues(result).Inc()
}

// Register adds extra collectors such as a KeyRingCollector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}
