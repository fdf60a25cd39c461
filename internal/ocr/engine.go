package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/campus-feed/constants"
)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "chi_sim+eng"
	TessdataDir   string
	HeicConverter string
	PSM           int // 0 keeps tesseract's default
	OEM           int
	TSVConfidence bool
	TempDir       string
}

type Result struct {
	Text       string
	Language   string
	Duration   time.Duration
	Confidence float32 // 0 when TSV confidence is disabled
	Warnings   []string
}

// Engine runs tesseract on poster images.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type EngineOption func(*Engine)

// WithRunner replaces the process runner; tests use it to stub tesseract.
func WithRunner(r Runner) EngineOption {
	return func(e *Engine) { e.runner = r }
}

func NewEngine(cfg Config, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "chi_sim+eng"
	}
	e := &Engine{cfg: cfg, runner: execRunner{}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Recognize decodes base64 image data and runs OCR on it.
func (e *Engine) Recognize(ctx context.Context, imageBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(imageBase64))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	res, err := e.RecognizeBytes(ctx, data)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// RecognizeBytes writes data to a scratch file and runs tesseract over it.
func (e *Engine) RecognizeBytes(ctx context.Context, data []byte) (Result, error) {
	start := time.Now()
	if len(data) == 0 {
		return Result{}, fmt.Errorf("empty image")
	}
	mime := http.DetectContentType(data)
	if isHEIC(data) {
		mime = "image/heic"
	}

	dir, err := os.MkdirTemp(e.cfg.TempDir, "campusfeed-ocr-*")
	if err != nil {
		return Result{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "poster."+constants.ExtForMIME(mime))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Result{}, fmt.Errorf("write scratch image: %w", err)
	}
	if mime == "image/heic" {
		if path, err = convertHEIC(ctx, e.runner, e.logger, e.cfg.HeicConverter, path); err != nil {
			return Result{}, err
		}
	}

	out, errb, err := e.runner.Run(ctx, e.logger, e.cfg.Tesseract, e.args(path)...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	res := Result{
		Text:     Normalize(string(out)),
		Language: e.cfg.TesseractLang,
	}
	if e.cfg.TSVConfidence {
		tsv, _, terr := e.runner.Run(ctx, e.logger, e.cfg.Tesseract, append(e.args(path), "tsv")...)
		if terr != nil {
			res.Warnings = append(res.Warnings, "tsv confidence: "+terr.Error())
		} else {
			res.Confidence = meanTSVConfidence(string(tsv))
		}
	}
	res.Duration = time.Since(start)

	e.logger.Info("ocr.recognize.ok",
		"mime", mime,
		"chars", len([]rune(res.Text)),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir D]
func (e *Engine) args(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

// isHEIC sniffs the ISO BMFF ftyp brand; DetectContentType does not know HEIC.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}
