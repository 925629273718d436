// Package metrics registers the Prometheus instrumentation for the orrery
// service: tick timing, orbit sampling, revolution events, HTTP traffic,
// and SSE stream accounting.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsorrery_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jsorrery_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	tickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jsorrery_tick_duration_seconds",
			Help:    "Wall time spent advancing all bodies by one tick.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 2, 14),
		},
	)

	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jsorrery_ticks_total",
			Help: "Total simulation ticks processed.",
		},
	)

	revolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsorrery_revolutions_total",
			Help: "Completed revolutions per body.",
		},
		[]string{"body"},
	)

	orbitSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsorrery_orbit_samples_total",
			Help: "Orbit path sampling runs per body.",
		},
		[]string{"body"},
	)

	orbitVertices = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jsorrery_orbit_vertices",
			Help:    "Vertices emitted per sampled orbit path.",
			Buckets: prometheus.LinearBuckets(100, 100, 10),
		},
	)

	streamConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsorrery_stream_connections_total",
			Help: "SSE stream connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jsorrery_streams_active",
			Help: "Currently connected SSE streams.",
		},
	)

	streamMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jsorrery_stream_messages_total",
			Help: "SSE data messages sent.",
		},
	)

	streamBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jsorrery_stream_bytes_total",
			Help: "Bytes written to SSE streams.",
		},
	)

	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsorrery_stream_errors_total",
			Help: "SSE stream errors by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		tickDurationSeconds,
		ticksTotal,
		revolutionsTotal,
		orbitSamplesTotal,
		orbitVertices,
		streamConnections,
		streamsActive,
		streamMessages,
		streamBytes,
		streamErrors,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTick records one simulation tick.
func RecordTick(d time.Duration) {
	tickDurationSeconds.Observe(d.Seconds())
	ticksTotal.Inc()
}

// RecordRevolution records a completed revolution for the named body.
func RecordRevolution(body string) {
	revolutionsTotal.WithLabelValues(body).Inc()
}

// ObserveOrbitSample records one orbit sampling run and its vertex count.
func ObserveOrbitSample(body string, vertices int) {
	orbitSamplesTotal.WithLabelValues(body).Inc()
	orbitVertices.Observe(float64(vertices))
}

// IncStreamConnections records a stream connect/disconnect event.
func IncStreamConnections(event string) {
	streamConnections.WithLabelValues(event).Inc()
}

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() { streamsActive.Inc() }

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamMessages records one SSE data message.
func IncStreamMessages() { streamMessages.Inc() }

// AddStreamBytes records bytes written to a stream.
func AddStreamBytes(n int64) { streamBytes.Add(float64(n)) }

// IncStreamErrors records a stream error of the given kind.
func IncStreamErrors(kind string) { streamErrors.WithLabelValues(kind).Inc() }

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE handlers downstream of the
// middleware still see a flushable connection.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// knownRoutes are the exact paths served, used as metric labels as-is.
var knownRoutes = map[string]bool{
	"/":                  true,
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/v1/state":      true,
	"/api/v1/bodies":     true,
	"/api/v1/angle":      true,
	"/api/v1/satellites": true,
	"/api/v1/stream":     true,
	"/api/v1/epoch":      true,
	"/app.js":            true,
	"/styles.css":        true,
}

// normalizeRoute collapses parameterized body routes to a single label and
// unknown paths to "other", keeping label cardinality bounded against bot
// traffic.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/bodies/"); ok {
		switch {
		case strings.HasSuffix(rest, "/position"):
			return "/api/v1/bodies/{name}/position"
		case strings.HasSuffix(rest, "/orbit"):
			return "/api/v1/bodies/{name}/orbit"
		case !strings.Contains(rest, "/"):
			return "/api/v1/bodies/{name}"
		}
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
