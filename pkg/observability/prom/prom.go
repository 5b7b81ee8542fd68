// Package prom implements the observability hooks with Prometheus metrics.
//
// Each constructor registers its collectors on the given registerer, so
// tests can use a fresh prometheus.NewRegistry per case:
//
//	reg := prometheus.NewRegistry()
//	observability.SetSearchHooks(prom.NewSearchHooks(reg))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/causalhub/pkg/observability"
)

const namespace = "causalhub"

// SearchHooks records structure search metrics.
type SearchHooks struct {
	running    *prometheus.GaugeVec
	searches   *prometheus.CounterVec
	moves      *prometheus.CounterVec
	delta      *prometheus.HistogramVec
	candidates *prometheus.HistogramVec
	iterations *prometheus.HistogramVec
	duration   *prometheus.HistogramVec
}

// NewSearchHooks registers search metrics on reg.
func NewSearchHooks(reg prometheus.Registerer) *SearchHooks {
	f := promauto.With(reg)
	return &SearchHooks{
		running: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "searches_running",
			Help:      "Structure searches in progress",
		}, []string{"algorithm"}),
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Finished structure searches by outcome",
		}, []string{"algorithm", "outcome"}),
		moves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_moves_total",
			Help:      "Accepted search moves by kind",
		}, []string{"algorithm", "kind"}),
		delta: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_move_delta",
			Help:      "Score improvement of accepted moves",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"algorithm"}),
		candidates: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Candidate moves scored per iteration",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"algorithm"}),
		iterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_iterations",
			Help:      "Iterations per search",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"algorithm"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Wall time per search",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12),
		}, []string{"algorithm"}),
	}
}

func (h *SearchHooks) OnSearchStart(_ context.Context, algorithm string, _ int) {
	h.running.WithLabelValues(algorithm).Inc()
}

func (h *SearchHooks) OnMove(_ context.Context, algorithm, kind string, delta float64, candidates int) {
	h.moves.WithLabelValues(algorithm, kind).Inc()
	h.delta.WithLabelValues(algorithm).Observe(delta)
	h.candidates.WithLabelValues(algorithm).Observe(float64(candidates))
}

func (h *SearchHooks) OnSearchComplete(_ context.Context, algorithm string, iterations int, _ float64, d time.Duration, err error) {
	h.running.WithLabelValues(algorithm).Dec()
	h.searches.WithLabelValues(algorithm, outcome(err)).Inc()
	h.iterations.WithLabelValues(algorithm).Observe(float64(iterations))
	h.duration.WithLabelValues(algorithm).Observe(d.Seconds())
}

// CacheHooks records result cache metrics.
type CacheHooks struct {
	requests *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewCacheHooks registers cache metrics on reg.
func NewCacheHooks(reg prometheus.Registerer) *CacheHooks {
	f := promauto.With(reg)
	return &CacheHooks{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups and writes by key type and result",
		}, []string{"key_type", "result"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),
	}
}

func (h *CacheHooks) OnCacheHit(_ context.Context, keyType string) {
	h.requests.WithLabelValues(keyType, "hit").Inc()
}

func (h *CacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.requests.WithLabelValues(keyType, "miss").Inc()
}

func (h *CacheHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.requests.WithLabelValues(keyType, "set").Inc()
	h.bytes.WithLabelValues(keyType).Add(float64(size))
}

// HTTPHooks records API request metrics.
type HTTPHooks struct {
	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewHTTPHooks registers HTTP metrics on reg.
func NewHTTPHooks(reg prometheus.Registerer) *HTTPHooks {
	f := promauto.With(reg)
	return &HTTPHooks{
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests being served",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served requests by route and status",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Handler errors by route",
		}, []string{"method", "route"}),
	}
}

func (h *HTTPHooks) OnRequest(context.Context, string, string) {
	h.inflight.Inc()
}

func (h *HTTPHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.inflight.Dec()
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (h *HTTPHooks) OnError(_ context.Context, method, route string, _ error) {
	h.errors.WithLabelValues(method, route).Inc()
}

// Register creates all three hook sets on reg and installs them.
func Register(reg prometheus.Registerer) {
	observability.SetSearchHooks(NewSearchHooks(reg))
	observability.SetCacheHooks(NewCacheHooks(reg))
	observability.SetHTTPHooks(NewHTTPHooks(reg))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ observability.SearchHooks = (*SearchHooks)(nil)
	_ observability.CacheHooks  = (*CacheHooks)(nil)
	_ observability.HTTPHooks   = (*HTTPHooks)(nil)
)
