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
			Name: "darksky_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "darksky_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	cacheBucketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darksky_window_cache_buckets_total",
			Help: "Month buckets looked up in the window store, by operation and result.",
		},
		[]string{"op", "result"},
	)

	recordsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "darksky_window_records_written_total",
			Help: "Window records appended to the store.",
		},
	)

	storeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darksky_window_store_errors_total",
			Help: "Window store failures by operation.",
		},
		[]string{"op"},
	)

	generationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "darksky_window_generation_duration_seconds",
			Help:    "Time to generate dark instants for one month bucket.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	darkInstantsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "darksky_dark_instants_generated_total",
			Help: "Dark instants produced by bucket generation.",
		},
	)

	sessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "darksky_sessions_extracted_total",
			Help: "Observing sessions returned to callers.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darksky_stream_connections_total",
			Help: "Warmup progress stream connections by event.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "darksky_streams_active",
			Help: "Open warmup progress streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "darksky_stream_messages_total",
			Help: "SSE messages sent.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "darksky_stream_bytes_total",
			Help: "SSE bytes sent.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darksky_stream_errors_total",
			Help: "Warmup stream failures by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(cacheBucketsTotal)
	prometheus.MustRegister(recordsWrittenTotal)
	prometheus.MustRegister(storeErrorsTotal)
	prometheus.MustRegister(generationDurationSeconds)
	prometheus.MustRegister(darkInstantsTotal)
	prometheus.MustRegister(sessionsTotal)
	prometheus.MustRegister(streamConnectionsTotal)
	prometheus.MustRegister(streamsActive)
	prometheus.MustRegister(streamMessagesTotal)
	prometheus.MustRegister(streamBytesTotal)
	prometheus.MustRegister(streamErrorsTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncBucketHit and IncBucketMiss count store lookups for one month bucket.
func IncBucketHit(op string)  { cacheBucketsTotal.WithLabelValues(op, "hit").Inc() }
func IncBucketMiss(op string) { cacheBucketsTotal.WithLabelValues(op, "miss").Inc() }

// IncRecordsWritten counts one appended record.
func IncRecordsWritten() { recordsWrittenTotal.Inc() }

// IncStoreErrors counts a failed store read or write.
func IncStoreErrors(op string) { storeErrorsTotal.WithLabelValues(op).Inc() }

// RecordGeneration observes one bucket generation.
func RecordGeneration(d time.Duration, instants int) {
	generationDurationSeconds.Observe(d.Seconds())
	darkInstantsTotal.Add(float64(instants))
}

// AddSessions counts sessions handed back to a caller.
func AddSessions(n int) { sessionsTotal.Add(float64(n)) }

// IncStreamConnections counts a stream "connect" or "disconnect".
func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }

func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }

func IncStreamMessages()       { streamMessagesTotal.Inc() }
func AddStreamBytes(n int64)   { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(r string) { streamErrorsTotal.WithLabelValues(r).Inc() }

// knownRoutes are recorded under their own path label.
var knownRoutes = map[string]bool{
	"/":                                     true,
	"/healthz":                              true,
	"/readyz":                               true,
	"/metrics":                              true,
	"/api/v1/optimal-times":                 true,
	"/api/v1/optimal-times/generate":        true,
	"/api/v1/optimal-times/generate/stream": true,
	"/api/v1/target-sessions":               true,
	"/api/v1/targets/search":                true,
	"/api/v1/cache/stats":                   true,
	"/api/v1/nights":                        true,
	"/openapi.yaml":                         true,
}

const targetsPrefix = "/api/v1/targets/"

// normalizeRoute maps a request path to a bounded label set. Target lookups
// collapse to one label; anything unrecognised becomes "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if id, ok := strings.CutPrefix(path, targetsPrefix); ok && id != "" && !strings.Contains(id, "/") {
		return targetsPrefix + "{id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
