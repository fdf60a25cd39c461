// Package core assembles the ingestion pipeline from configuration. Every
// binary that parses content builds it here so they agree on wiring.
package core

import (
	"log/slog"

	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/extract"
	"github.com/joseph-ayodele/campus-feed/internal/llm/openai"
	"github.com/joseph-ayodele/campus-feed/internal/metrics"
	"github.com/joseph-ayodele/campus-feed/internal/ocr"
	"github.com/joseph-ayodele/campus-feed/internal/pipeline"
	"github.com/joseph-ayodele/campus-feed/internal/storage"
)

// Processor is the assembled pipeline plus the collaborators the HTTP
// surface shares with it.
type Processor struct {
	*pipeline.Pipeline

	// Uploader is nil when storage is disabled.
	Uploader *storage.PosterUploader
	// UploadsDir is set for the local store so the server can serve it.
	UploadsDir string
	Provider   string
}

// NewProcessor wires extractors, the model client and optional metrics.
func NewProcessor(cfg *common.Config, m *metrics.Metrics, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Extract.Validate(); err != nil {
		return nil, err
	}
	out := &Processor{}

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	if store != nil {
		out.Uploader = storage.NewPosterUploader(store, logger)
		if ls, ok := store.(*storage.LocalStore); ok {
			out.UploadsDir = ls.Dir()
		}
	}

	strategies, err := extract.BuildStrategies(cfg.Extract, logger)
	if err != nil {
		return nil, err
	}
	urlOpts := []extract.URLOption{
		extract.WithContentBounds(cfg.Extract.MinContentLength, cfg.Extract.MaxContentLength),
		extract.WithAntiBotMarkers(cfg.Extract.AntiBotMarkers),
	}
	if m != nil {
		urlOpts = append(urlOpts, extract.WithAttemptObserver(m.ObserveURLAttempt))
	}

	ocrClient := ocr.NewClient(cfg.Extract.BackendURL, cfg.Extract.OCRTimeout, logger)
	imgOpts := []extract.ImageOption{
		extract.WithQRKeywords(cfg.Extract.QRKeywords),
		extract.WithOCRServiceHint(ocrClient.Endpoint()),
	}
	if out.Uploader != nil {
		imgOpts = append(imgOpts, extract.WithUploader(out.Uploader))
	}

	extractors := pipeline.Extractors{
		Text:  extract.NewTextExtractor(),
		URL:   extract.NewURLExtractor(strategies, logger, urlOpts...),
		Image: extract.NewImageExtractor(ocrClient, logger, imgOpts...),
	}

	model := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	out.Provider = model.Provider()
	if out.Provider == "" {
		logger.Warn("core.llm.unconfigured", "hint", "set ZHIPU_API_KEY or DEEPSEEK_API_KEY; parse requests will fail with MissingCredential")
	}

	var popts []pipeline.Option
	if m != nil {
		popts = append(popts, pipeline.WithStageObserver(m.ObserveStage))
	}
	out.Pipeline = pipeline.New(extractors, model, logger, popts...)
	logger.Info("core.pipeline.ready",
		"provider", out.Provider,
		"strategies", cfg.Extract.Strategies,
		"ocr", ocrClient.Endpoint(),
		"storage", cfg.Storage.Driver,
	)
	return out, nil
}
