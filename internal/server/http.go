package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/async"
	"github.com/joseph-ayodele/campus-feed/internal/auth"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/metrics"
	"github.com/joseph-ayodele/campus-feed/internal/repository"
)

// Parser runs the ingestion pipeline once.
type Parser interface {
	Parse(ctx context.Context, req entity.ParseRequest) (entity.ParseResult, error)
}

type Dashboard interface {
	Dashboard(ctx context.Context) entity.DashboardStats
}

type Exporter interface {
	ExportEventsXLSX(ctx context.Context, f entity.EventFilter) ([]byte, error)
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType, filename string) (string, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps are the collaborators of the admin HTTP API. Jobs, Uploader, Metrics
// and UploadsDir are optional.
type Deps struct {
	Parser     Parser
	Jobs       async.Queue
	Events     repository.EventRepository
	Stats      Dashboard
	Export     Exporter
	Uploader   Uploader
	Gate       *auth.Gate
	Metrics    *metrics.Metrics
	DB         HealthChecker
	UploadsDir string
	Logger     *slog.Logger
}

type HTTPServer struct {
	Deps
	logger *slog.Logger
}

func NewHTTPServer(d Deps) *HTTPServer {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{Deps: d, logger: logger}
}

// Routes builds the router.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}
	if s.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.UploadsDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.With(s.requireWrite).Post("/ai/parse", s.handleParse)
		r.With(s.requireWrite).Post("/ai/jobs", s.handleSubmitJob)
		r.Get("/ai/jobs/{id}", s.handleGetJob)

		r.Get("/events", s.handleListEvents)
		r.With(s.requireWrite).Post("/events", s.handleCreateEvent)
		r.Get("/events/export.xlsx", s.handleExport)
		r.Get("/events/{id}", s.handleGetEvent)
		r.With(s.requireWrite).Patch("/events/{id}", s.handlePatchEvent)
		r.With(s.requireWrite).Post("/events/{id}/top", s.handleSetTop)
		r.With(s.requireWrite).Post("/events/{id}/status", s.handleSetStatus)
		r.With(s.requireWrite).Delete("/events/{id}", s.handleDeleteEvent)

		r.With(s.requireWrite).Post("/upload", s.handleUpload)
		r.Get("/stats", s.handleStats)
	})
	return r
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		logger := s.logger.With("request_id", reqID)
		ctx := common.WithRequestID(r.Context(), reqID)
		ctx = common.WithLogger(ctx, logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Gate == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, ok := s.Gate.FromRequest(r)
		if !ok {
			writeError(w, r, common.NewAppError("UNAUTHORIZED", "missing or invalid bearer token", common.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithIdentity(r.Context(), id)))
	})
}

func (s *HTTPServer) requireWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Gate == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, _ := common.IdentityFromContext(r.Context())
		if !auth.AllowWrite(id) {
			writeError(w, r, common.NewAppError("FORBIDDEN", "role "+id.Role+" may not modify events", common.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.HealthCheck(r.Context(), 2*time.Second); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error onto an HTTP status.
func statusOf(err error) int {
	if k := common.KindOf(err); k != "" {
		return k.HTTPStatus()
	}
	switch {
	case errors.Is(err, common.ErrNotFound), errors.Is(err, async.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, async.ErrQueueClosed), errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var errUnavailable = errors.New("feature not configured")

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := common.UserMessage(err)
	var ae *common.AppError
	if errors.As(err, &ae) && common.KindOf(err) == "" {
		msg = ae.Message
	}
	if status == http.StatusInternalServerError {
		common.LoggerFromContext(r.Context(), nil).Error("http.request.failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func decodeJSON(r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		return common.NewAppError("INVALID_INPUT", "invalid JSON body: "+err.Error(), common.ErrInvalidInput)
	}
	return nil
}

// maxParseBody fits a base64 poster of MaxUploadBytes plus the envelope.
const maxParseBody = constants.MaxUploadBytes*4/3 + 64<<10

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, common.NewAppError("INVALID_INPUT", "job id must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}
