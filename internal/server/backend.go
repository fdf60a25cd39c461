package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/extract"
	"github.com/joseph-ayodele/campus-feed/internal/metrics"
	"github.com/joseph-ayodele/campus-feed/internal/ocr"
)

type Recognizer interface {
	RecognizeBytes(ctx context.Context, data []byte) (ocr.Result, error)
}

type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// BackendServer is the OCR and page-rendering sidecar the pipeline calls
// over HTTP. Content may be nil when no browser is available.
type BackendServer struct {
	ocr     Recognizer
	content ContentExtractor
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBackendServer(rec Recognizer, content ContentExtractor, m *metrics.Metrics, logger *slog.Logger) *BackendServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackendServer{ocr: rec, content: content, metrics: m, logger: logger}
}

func (b *BackendServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if b.metrics != nil {
		r.Use(b.metrics.Middleware)
		r.Handle("/metrics", b.metrics.Handler())
	}
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "renderer": b.content != nil})
	})
	r.Post("/api/ocr", b.handleOCR)
	r.Post("/api/extract-content", b.handleExtractContent)
	return r
}

// handleOCR accepts {"image": base64 or data URI} or a multipart "image"
// (or "file") part.
func (b *BackendServer) handleOCR(w http.ResponseWriter, r *http.Request) {
	data, err := readImage(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ocr.Reply{Error: err.Error()})
		return
	}
	res, err := b.ocr.RecognizeBytes(r.Context(), data)
	if err != nil {
		b.logger.Error("ocrd.ocr.failed", "bytes", len(data), "error", err)
		writeJSON(w, http.StatusInternalServerError, ocr.Reply{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ocr.Reply{
		Success:    true,
		Text:       res.Text,
		Language:   res.Language,
		Confidence: res.Confidence,
		DurationMS: res.Duration.Milliseconds(),
		Warnings:   res.Warnings,
	})
}

func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxParseBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
			return nil, err
		}
		for _, field := range []string{"image", "file"} {
			f, _, err := r.FormFile(field)
			if err != nil {
				continue
			}
			defer f.Close()
			return io.ReadAll(f)
		}
		return nil, errMissingImage
	}
	var req ocr.Request
	if err := decodeJSON(r, maxParseBody, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Image) == "" {
		return nil, errMissingImage
	}
	data, _, _, err := extract.DecodeImagePayload(req.Image)
	return data, err
}

var errMissingImage = invalid("no image provided")

type extractContentReply struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (b *BackendServer) handleExtractContent(w http.ResponseWriter, r *http.Request) {
	if b.content == nil {
		writeJSON(w, http.StatusServiceUnavailable, extractContentReply{Error: "no browser renderer configured"})
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, 64<<10, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, extractContentReply{Error: err.Error()})
		return
	}
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeJSON(w, http.StatusBadRequest, extractContentReply{Error: "url must be an absolute http(s) URL"})
		return
	}
	content, err := b.content.Extract(r.Context(), u.String())
	if err != nil {
		b.logger.Error("ocrd.extract_content.failed", "url", u.String(), "error", err)
		writeJSON(w, http.StatusBadGateway, extractContentReply{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, extractContentReply{Success: true, Content: content})
}
