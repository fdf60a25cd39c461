// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/pipeline"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	URLAttemptsTotal    *prometheus.CounterVec
	URLAttemptDuration  *prometheus.HistogramVec
	StagesTotal         *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	JobsTotal           *prometheus.CounterVec
	JobsInQueue         prometheus.Gauge
}

// New registers every collector on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusfeed_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campusfeed_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		URLAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusfeed_url_attempts_total",
			Help: "URL extraction attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		URLAttemptDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campusfeed_url_attempt_duration_seconds",
			Help:    "Duration of URL extraction attempts.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"strategy"}),
		StagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusfeed_pipeline_stages_total",
			Help: "Pipeline stage completions; kind is empty on success.",
		}, []string{"stage", "kind"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campusfeed_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusfeed_parse_jobs_total",
			Help: "Async parse jobs by final status.",
		}, []string{"status"}),
		JobsInQueue: f.NewGauge(prometheus.GaugeOpts{
			Name: "campusfeed_parse_jobs_in_queue",
			Help: "Async parse jobs waiting for a worker.",
		}),
	}
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveURLAttempt matches extract.WithAttemptObserver.
func (m *Metrics) ObserveURLAttempt(strategy, outcome string, elapsed time.Duration) {
	m.URLAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
	m.URLAttemptDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveStage matches pipeline.StageObserver.
func (m *Metrics) ObserveStage(stage pipeline.Stage, kind common.Kind, elapsed time.Duration) {
	m.StagesTotal.WithLabelValues(string(stage), string(kind)).Inc()
	m.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

// ObserveJob matches async.WithCompletionHook.
func (m *Metrics) ObserveJob(status constants.JobStatus) {
	m.JobsTotal.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) SetQueueDepth(depth int) { m.JobsInQueue.Set(float64(depth)) }

// Middleware records every request under its chi route pattern so path
// parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
