// Command ocrd is the OCR and page-rendering sidecar. It answers
// POST /api/ocr and POST /api/extract-content.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/metrics"
	"github.com/joseph-ayodele/campus-feed/internal/ocr"
	"github.com/joseph-ayodele/campus-feed/internal/render"
	"github.com/joseph-ayodele/campus-feed/internal/server"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := cfg.Backend
	engine := ocr.NewEngine(ocr.Config{
		Tesseract:     b.Tesseract,
		TesseractLang: b.TesseractLang,
		TessdataDir:   b.TessdataDir,
		HeicConverter: b.HeicConverter,
		TSVConfidence: b.TSVConfidence,
	}, logger)

	var content server.ContentExtractor
	renderer, err := render.NewRenderer(b, logger)
	if err != nil {
		logger.Error("renderer unavailable; /api/extract-content disabled", "error", err)
	} else {
		defer func() {
			if err := renderer.Close(); err != nil {
				logger.Warn("closing renderer", "error", err)
			}
		}()
		content = render.NewContentService(renderer, logger)
	}

	srv := &http.Server{
		Addr:              b.Addr,
		Handler:           server.NewBackendServer(engine, content, metrics.New(), logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("ocrd listening", "addr", b.Addr, "tesseract", b.Tesseract, "lang", b.TesseractLang, "renderer", b.Renderer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("ocrd failed", "error", err)
		os.Exit(1)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	logger.Info("ocrd stopped")
}
