package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/pipeline"
)

func TestObservers(t *testing.T) {
	m := New()
	m.ObserveURLAttempt("reader", "ok", time.Second)
	m.ObserveURLAttempt("reader", "ok", time.Second)
	m.ObserveURLAttempt("direct", "anti_bot", time.Second)
	m.ObserveStage(pipeline.StageModel, common.KindModelError, time.Second)

	if got := testutil.ToFloat64(m.URLAttemptsTotal.WithLabelValues("reader", "ok")); got != 2 {
		t.Errorf("reader ok = %v", got)
	}
	if got := testutil.ToFloat64(m.StagesTotal.WithLabelValues("model", string(common.KindModelError))); got != 1 {
		t.Errorf("model stage = %v", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/"+id, nil))
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/events/{id}", "404")); got != 2 {
		t.Errorf("counter = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "campusfeed_http_requests_total") {
		t.Error("metrics output missing http counter")
	}
}

func TestJobHooks(t *testing.T) {
	m := New()
	m.ObserveJob(constants.JobStatusSucceeded)
	m.ObserveJob(constants.JobStatusFailed)
	m.ObserveJob(constants.JobStatusSucceeded)
	m.SetQueueDepth(3)

	if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues("SUCCEEDED")); got != 2 {
		t.Errorf("succeeded = %v", got)
	}
	if got := testutil.ToFloat64(m.JobsInQueue); got != 3 {
		t.Errorf("depth = %v", got)
	}
}
