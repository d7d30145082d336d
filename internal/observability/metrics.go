package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/constellation-tracker/internal/catalog"
)

// TrackerCollector bundles Prometheus metrics for the tracker's HTTP
// surface and propagation core, and provides helpers to wire them into the
// router.
//
// It implements catalog.MetricsRecorder and delivery.MetricsRecorder so
// the registry and coordinator can drive metric values directly.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	ScenarioSatellites  *prometheus.GaugeVec
	Materializations    *prometheus.HistogramVec
	UpstreamFetchErrors prometheus.Counter
	PropagationFailures prometheus.Counter
	PropagationBatches  *prometheus.HistogramVec
	ActiveStreams       prometheus.Gauge
}

// NewTrackerCollector registers tracker Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_http_requests_total",
		Help: "Total handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "status"})
	requests, err := registerCounterVec(reg, requests, "tracker_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route", "method"})
	durations, err = registerHistogramVec(reg, durations, "tracker_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	satellites := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_scenario_satellites",
		Help: "Satellite count per scenario as of its last materialization.",
	}, []string{"scenario"})
	satellites, err = registerGaugeVec(reg, satellites, "tracker_scenario_satellites")
	if err != nil {
		return nil, err
	}

	materializations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_materialization_duration_seconds",
		Help:    "Latency of satellite set materialization (fetch+parse or generation).",
		Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 5, 15, 30},
	}, []string{"scenario", "source"})
	materializations, err = registerHistogramVec(reg, materializations, "tracker_materialization_duration_seconds")
	if err != nil {
		return nil, err
	}

	fetchErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_upstream_fetch_failures_total",
		Help: "Failed upstream element data fetches.",
	})
	fetchErrors, err = registerCounter(reg, fetchErrors, "tracker_upstream_fetch_failures_total")
	if err != nil {
		return nil, err
	}

	propFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_propagation_failures_total",
		Help: "Satellites dropped from a batch because propagation failed.",
	})
	propFailures, err = registerCounter(reg, propFailures, "tracker_propagation_failures_total")
	if err != nil {
		return nil, err
	}

	propBatches := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_propagation_batch_duration_seconds",
		Help:    "Latency of propagating one satellite batch to a target time.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.025, 0.1, 0.5, 2, 10},
	}, []string{"scenario"})
	propBatches, err = registerHistogramVec(reg, propBatches, "tracker_propagation_batch_duration_seconds")
	if err != nil {
		return nil, err
	}

	streams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_active_streams",
		Help: "Currently connected SSE and WebSocket position streams.",
	})
	streams, err = registerGauge(reg, streams, "tracker_active_streams")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:            gatherer,
		HTTPRequests:        requests,
		HTTPDurations:       durations,
		ScenarioSatellites:  satellites,
		Materializations:    materializations,
		UpstreamFetchErrors: fetchErrors,
		PropagationFailures: propFailures,
		PropagationBatches:  propBatches,
		ActiveStreams:       streams,
	}, nil
}

// Middleware records request counts and durations for HTTP handlers,
// labeling by the chi route pattern rather than the raw path so satellite
// ids do not explode label cardinality.
func (c *TrackerCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetScenarioSatellites implements catalog.MetricsRecorder.
func (c *TrackerCollector) SetScenarioSatellites(scenarioID string, count int) {
	if c == nil || c.ScenarioSatellites == nil {
		return
	}
	c.ScenarioSatellites.WithLabelValues(scenarioID).Set(float64(count))
}

// ObserveMaterialization implements catalog.MetricsRecorder.
func (c *TrackerCollector) ObserveMaterialization(scenarioID, source string, d time.Duration) {
	if c == nil || c.Materializations == nil {
		return
	}
	c.Materializations.WithLabelValues(scenarioID, source).Observe(d.Seconds())
}

// IncUpstreamFetchFailures implements catalog.MetricsRecorder.
func (c *TrackerCollector) IncUpstreamFetchFailures() {
	if c == nil || c.UpstreamFetchErrors == nil {
		return
	}
	c.UpstreamFetchErrors.Inc()
}

// AddPropagationFailures implements delivery.MetricsRecorder.
func (c *TrackerCollector) AddPropagationFailures(n int) {
	if c == nil || c.PropagationFailures == nil || n <= 0 {
		return
	}
	c.PropagationFailures.Add(float64(n))
}

// ObservePropagationBatch implements delivery.MetricsRecorder.
func (c *TrackerCollector) ObservePropagationBatch(scenarioID string, satellites int, d time.Duration) {
	if c == nil || c.PropagationBatches == nil {
		return
	}
	c.PropagationBatches.WithLabelValues(scenarioID).Observe(d.Seconds())
}

// StreamStarted and StreamEnded track the active stream gauge.
func (c *TrackerCollector) StreamStarted() {
	if c != nil && c.ActiveStreams != nil {
		c.ActiveStreams.Inc()
	}
}

func (c *TrackerCollector) StreamEnded() {
	if c != nil && c.ActiveStreams != nil {
		c.ActiveStreams.Dec()
	}
}

// ObserveCacheStats registers counter views over the element cache's
// cumulative hit/miss counts.
func (c *TrackerCollector) ObserveCacheStats(reg prometheus.Registerer, cache *catalog.ElementCache) error {
	if c == nil || cache == nil {
		return nil
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "tracker_element_cache_hits_total",
		Help: "Element cache hits.",
	}, func() float64 {
		h, _ := cache.Stats()
		return float64(h)
	})
	if err := reg.Register(hits); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}

	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "tracker_element_cache_misses_total",
		Help: "Element cache misses (absent or expired entries).",
	}, func() float64 {
		_, m := cache.Stats()
		return float64(m)
	})
	if err := reg.Register(misses); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE streaming keeps working
// behind the metrics middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
