// Package pipeline routes an ingestion request through extraction, the
// model and normalization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/extract"
	"github.com/joseph-ayodele/campus-feed/internal/llm"
)

// ImagePlaceholder replaces poster payloads in raw_content.
const ImagePlaceholder = constants.ImagePlaceholder

// Extractors holds one extractor per input type.
type Extractors struct {
	Text  extract.Extractor
	URL   extract.Extractor
	Image extract.Extractor
}

func (x Extractors) forType(t constants.InputType) extract.Extractor {
	switch t {
	case constants.InputText:
		return x.Text
	case constants.InputURL:
		return x.URL
	case constants.InputImage:
		return x.Image
	}
	return nil
}

// StageObserver is told how each stage ended; kind is empty on success.
type StageObserver func(stage Stage, kind common.Kind, elapsed time.Duration)

type Pipeline struct {
	extractors Extractors
	model      llm.Completer
	observe    StageObserver
	logger     *slog.Logger
}

type Option func(*Pipeline)

func WithStageObserver(fn StageObserver) Option {
	return func(p *Pipeline) { p.observe = fn }
}

func New(extractors Extractors, model llm.Completer, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		extractors: extractors,
		model:      model,
		observe:    func(Stage, common.Kind, time.Duration) {},
		logger:     logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse runs one request end to end. Every call runs every stage; nothing is
// cached. On failure the returned result carries only Logs and Warnings.
func (p *Pipeline) Parse(ctx context.Context, req entity.ParseRequest) (entity.ParseResult, error) {
	var res entity.ParseResult
	logf := func(format string, args ...any) { res.Logs = append(res.Logs, fmt.Sprintf(format, args...)) }
	fail := func(stage Stage, err error) (entity.ParseResult, error) {
		logf("❌ 解析失败: %s", failureLine(err))
		p.logger.Warn("pipeline.parse.failed", "stage", stage, "kind", common.KindOf(err), "error", err)
		res.Event = entity.ParsedEvent{}
		return res, &StageError{Stage: stage, Err: err}
	}

	kind, lang, content, err := validateRequest(req)
	if err != nil {
		p.observe(StageInput, common.KindOf(err), 0)
		return fail(StageInput, err)
	}
	ex := p.extractors.forType(kind)
	if ex == nil {
		err := common.NewPipelineError(common.KindUnsupportedInputType, fmt.Sprintf("no extractor configured for %q", kind), nil)
		p.observe(StageInput, common.KindOf(err), 0)
		return fail(StageInput, err)
	}
	p.logger.Info("pipeline.parse.start", "type", kind, "language", lang, "content_chars", extract.RuneLen(content))
	logf("🚀 开始解析（类型: %s，语言: %s）", kind, lang)

	start := time.Now()
	extracted, err := ex.Extract(ctx, content)
	res.Warnings = append(res.Warnings, extracted.Warnings...)
	res.ImageURL = extracted.ImageURL
	for _, w := range extracted.Warnings {
		logf("⚠️ %s", w)
	}
	p.observe(StageExtract, common.KindOf(err), time.Since(start))
	if err != nil {
		return fail(StageExtract, err)
	}
	logf("📄 内容提取完成（%s），共 %d 字", extracted.Method, extract.RuneLen(extracted.Text))
	if kind == constants.InputImage {
		if extracted.HasQRCode {
			logf("🔍 二维码检测: 检测到二维码相关文字")
		} else {
			logf("🔍 二维码检测: 未检测到二维码")
		}
	}

	systemPrompt, err := llm.BuildSystemPrompt(lang)
	if err != nil {
		p.observe(StagePrompt, common.KindOf(err), 0)
		return fail(StagePrompt, err)
	}
	userMessage := llm.BuildUserMessage(kind, extracted.Text, extracted.HasQRCode, lang)

	start = time.Now()
	reply, err := p.model.Complete(ctx, systemPrompt, userMessage)
	p.observe(StageModel, common.KindOf(err), time.Since(start))
	if err != nil {
		return fail(StageModel, err)
	}

	start = time.Now()
	event, err := llm.NormalizeReply(reply, p.logger)
	p.observe(StageNormalize, common.KindOf(err), time.Since(start))
	if err != nil {
		return fail(StageNormalize, err)
	}

	if p.postprocess(&event, kind, lang, content, extracted) {
		logf("📝 自动补充二维码报名信息")
	}
	res.Event = event
	logf("✅ AI 解析成功: %s", event.Title)
	p.logger.Info("pipeline.parse.ok",
		"type", kind,
		"method", extracted.Method,
		"event_type", event.Type,
		"warnings", len(res.Warnings),
	)
	return res, nil
}

func validateRequest(req entity.ParseRequest) (constants.InputType, constants.Language, string, error) {
	kind, ok := constants.ParseInputType(string(req.Type))
	if !ok {
		return "", "", "", common.NewPipelineError(common.KindUnsupportedInputType,
			fmt.Sprintf("unsupported input type %q (want text, url or image)", req.Type), nil)
	}
	content := req.Content
	if strings.TrimSpace(content) == "" {
		return "", "", "", common.NewPipelineError(common.KindEmptyInput, "content is empty", nil)
	}
	if kind != constants.InputText {
		content = strings.TrimSpace(content)
	}
	lang, ok := constants.ParseLanguage(string(req.Language))
	if !ok {
		return "", "", "", common.NewPipelineError(common.KindUnsupportedLanguage,
			fmt.Sprintf("unsupported language %q (want zh, en or zh-en)", req.Language), nil)
	}
	return kind, lang, content, nil
}

// postprocess applies the input-specific fixes the model cannot be trusted
// with. It reports whether the QR registration link was filled in.
func (p *Pipeline) postprocess(ev *entity.ParsedEvent, kind constants.InputType, lang constants.Language, content string, ex extract.Result) bool {
	switch kind {
	case constants.InputText, constants.InputURL:
		ev.RawContent = content
		if extract.IsDataURI(content) {
			ev.RawContent = ImagePlaceholder
		}
	case constants.InputImage:
		ev.RawContent = ImagePlaceholder
		if ex.HasQRCode && strings.TrimSpace(ev.KeyInfo.Link) == "" {
			strs, _ := lang.Strings()
			ev.KeyInfo.Link = strs.QRRegistrationLink
			return true
		}
	}
	return false
}

// failureLine is the operator-facing log line for err.
func failureLine(err error) string {
	switch common.KindOf(err) {
	case common.KindInvalidCredential:
		return "API Key 验证失败"
	case common.KindMissingCredential:
		return "API Key 未配置"
	}
	var pe *common.PipelineError
	if errors.As(err, &pe) {
		return common.UserMessage(pe)
	}
	return err.Error()
}
