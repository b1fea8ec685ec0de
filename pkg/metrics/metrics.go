package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics tracks network resolution and request activity.
type Metrics struct {
	// Request metrics
	Requests           *prometheus.CounterVec // by mode: count, extract
	RequestsVetoed     prometheus.Counter
	RequestFailures    prometheus.Counter
	ResourcesFound     prometheus.Counter
	ResourcesExtracted prometheus.Counter
	LocationsScanned   prometheus.Histogram
	InterceptorPasses  *prometheus.CounterVec // by phase: pre, post

	// Last request statistics
	LastRequestFound     prometheus.Gauge
	LastRequestExtracted prometheus.Gauge

	// Network cache metrics
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	CacheEntries prometheus.Gauge
	CacheClears  prometheus.Counter

	// Cycle metrics
	Cycles prometheus.Counter

	registry prometheus.Gatherer
}

// New creates and registers the metrics. A nil registry uses a fresh one so
// several instances can coexist in one process.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corenet_requests_total",
			Help: "Total number of network requests",
		}, []string{"mode"}),
		RequestsVetoed: factory.NewCounter(prometheus.CounterOpts{
			Name: "corenet_requests_vetoed_total",
			Help: "Requests cancelled before touching any location",
		}),
		RequestFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "corenet_request_failures_total",
			Help: "Requests aborted by an interceptor error",
		}),
		ResourcesFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "corenet_resources_found_total",
			Help: "Total units matched by requests",
		}),
		ResourcesExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corenet_resources_extracted_total",
			Help: "Total units removed from locations",
		}),
		LocationsScanned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "corenet_request_locations",
			Help:    "Number of storage locations visited per request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		InterceptorPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corenet_interceptor_passes_total",
			Help: "Interceptor invocations",
		}, []string{"phase"}),

		LastRequestFound: factory.NewGauge(prometheus.GaugeOpts{
			Name: "corenet_last_request_found",
			Help: "Units matched by the most recent request",
		}),
		LastRequestExtracted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "corenet_last_request_extracted",
			Help: "Units extracted by the most recent request",
		}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "corenet_network_cache_hits_total",
			Help: "Network resolutions served from the cycle cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "corenet_network_cache_misses_total",
			Help: "Network resolutions derived from connectivity",
		}),
		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "corenet_network_cache_entries",
			Help: "Networks resolved in the current cycle",
		}),
		CacheClears: factory.NewCounter(prometheus.CounterOpts{
			Name: "corenet_network_cache_clears_total",
			Help: "Number of cache clears",
		}),

		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "corenet_cycles_total",
			Help: "Cycles run by the driver",
		}),

		registry: registry,
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterHandlers adds /metrics and /health to mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// StartMetricsServer starts a Prometheus metrics server on addr.
func StartMetricsServer(addr string, m *Metrics, logger *zap.Logger) *http.Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting metrics server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server
}

// Mode returns the request label for the extract flag.
func Mode(extract bool) string {
	if extract {
		return "extract"
	}
	return "count"
}

// The helpers below are safe to call on a nil *Metrics.

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) CacheMiss(entries int) {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
	m.CacheEntries.Set(float64(entries))
}

func (m *Metrics) CacheCleared() {
	if m == nil {
		return
	}
	m.CacheClears.Inc()
	m.CacheEntries.Set(0)
}

func (m *Metrics) RequestVetoed() {
	if m == nil {
		return
	}
	m.RequestsVetoed.Inc()
}

func (m *Metrics) RequestFailed() {
	if m == nil {
		return
	}
	m.RequestFailures.Inc()
}

func (m *Metrics) Intercepted(phase string) {
	if m == nil {
		return
	}
	m.InterceptorPasses.WithLabelValues(phase).Inc()
}

// RequestDone records a completed request and overwrites the last request gauges.
func (m *Metrics) RequestDone(extract bool, found, extracted, locations int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(Mode(extract)).Inc()
	m.ResourcesFound.Add(float64(found))
	m.ResourcesExtracted.Add(float64(extracted))
	m.LocationsScanned.Observe(float64(locations))
	m.LastRequestFound.Set(float64(found))
	m.LastRequestExtracted.Set(float64(extracted))
}

func (m *Metrics) CycleDone() {
	if m == nil {
		return
	}
	m.Cycles.Inc()
}
