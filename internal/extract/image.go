package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// ImageExtractor reads poster text through OCR. Uploading the poster is a
// side effect whose failure only produces a warning.
type ImageExtractor struct {
	ocr      OCR
	uploader Uploader
	qr       QRDetector
	ocrHint  string
	logger   *slog.Logger
}

type ImageOption func(*ImageExtractor)

// WithUploader enables poster upload for data URI payloads.
func WithUploader(u Uploader) ImageOption {
	return func(e *ImageExtractor) { e.uploader = u }
}

func WithQRKeywords(keywords []string) ImageOption {
	return func(e *ImageExtractor) {
		if len(keywords) > 0 {
			e.qr = QRDetector{Keywords: keywords}
		}
	}
}

// WithOCRServiceHint names the OCR endpoint in failure remediation.
func WithOCRServiceHint(endpoint string) ImageOption {
	return func(e *ImageExtractor) { e.ocrHint = endpoint }
}

func NewImageExtractor(ocr OCR, logger *slog.Logger, opts ...ImageOption) *ImageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &ImageExtractor{ocr: ocr, qr: QRDetector{Keywords: DefaultQRKeywords}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *ImageExtractor) Extract(ctx context.Context, content string) (Result, error) {
	data, mime, b64, err := DecodeImagePayload(content)
	if err != nil {
		return Result{}, e.ocrFailure("invalid image payload", err)
	}

	var res Result
	if e.uploader != nil && IsDataURI(content) {
		publicURL, uerr := e.uploader.UploadPoster(ctx, data, mime)
		if uerr != nil {
			e.logger.Warn("extract.image.upload_failed", "mime", mime, "bytes", len(data), "error", uerr)
			res.Warnings = append(res.Warnings, "poster upload failed: "+uerr.Error())
		} else {
			e.logger.Info("extract.image.uploaded", "url", publicURL, "bytes", len(data))
			res.ImageURL = publicURL
		}
	}

	if e.ocr == nil {
		return res, e.ocrFailure("no OCR service configured", nil)
	}
	text, err := e.ocr.Recognize(ctx, b64)
	if err != nil {
		return res, e.ocrFailure("OCR request failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return res, e.ocrFailure("no text recognized in image", nil)
	}

	res.Text = text
	res.Method = "image-ocr"
	res.HasQRCode = e.qr.Detect(text)
	e.logger.Info("extract.image.ok", "chars", RuneLen(text), "has_qr", res.HasQRCode)
	return res, nil
}

func (e *ImageExtractor) ocrFailure(msg string, cause error) error {
	pe := common.NewPipelineError(common.KindOCRFailed, msg, cause)
	hint := "请确认 OCR 服务已启动"
	if e.ocrHint != "" {
		hint = fmt.Sprintf("请确认 OCR 服务已启动 (%s)", e.ocrHint)
	}
	return pe.WithRemediation(hint)
}
