// Package metrics exposes the reward layer's Prometheus collectors.
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
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "reward_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reward_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reward_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	rewardGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reward_layer",
			Subsystem: "rewards",
			Name:      "grants_total",
			Help:      "Total number of reward grant attempts by outcome.",
		},
		[]string{"status"},
	)

	rewardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reward_layer",
			Subsystem: "rewards",
			Name:      "grant_duration_seconds",
			Help:      "Duration of reward grant processing including confirmation.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
		},
		[]string{"status"},
	)

	tokensPaid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reward_layer",
			Subsystem: "rewards",
			Name:      "tokens_paid_base_units_total",
			Help:      "Total token base units transferred to users.",
		},
	)

	tokensBurned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reward_layer",
			Subsystem: "rewards",
			Name:      "tokens_burned_base_units_total",
			Help:      "Total token base units sent to the burn address.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		rewardGrants,
		rewardDuration,
		tokensPaid,
		tokensBurned,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordGrant records the outcome of one reward grant attempt. Paid and
// burned are base units actually moved on chain.
func RecordGrant(status string, duration time.Duration, paid, burned int64) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	rewardGrants.WithLabelValues(status).Inc()
	rewardDuration.WithLabelValues(status).Observe(duration.Seconds())
	if paid > 0 {
		tokensPaid.Add(float64(paid))
	}
	if burned > 0 {
		tokensBurned.Add(float64(burned))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 1 {
		return "/" + parts[0]
	}
	return "/" + parts[0] + "/" + parts[1]
}
