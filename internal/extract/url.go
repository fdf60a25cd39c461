package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// Strategy is one way of turning a URL into readable text.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, rawURL string) (string, error)
}

// contentLimiter is implemented by strategies whose output may exceed the
// extractor-wide maximum.
type contentLimiter interface {
	MaxContentLength() int
}

var (
	// ErrNotApplicable means the strategy does not handle this URL; it is skipped silently.
	ErrNotApplicable = errors.New("strategy not applicable")
	// ErrBlocked means the strategy was served a verification challenge.
	ErrBlocked = errors.New("anti-bot challenge served")
)

// Outcome labels for attempt observers.
const (
	OutcomeOK       = "ok"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomeTooShort = "too_short"
	OutcomeAntiBot  = "anti_bot"
)

type URLExtractor struct {
	strategies []Strategy
	minLen     int
	maxLen     int
	antiBot    AntiBotDetector
	observe    func(strategy, outcome string, elapsed time.Duration)
	logger     *slog.Logger
}

type URLOption func(*URLExtractor)

func WithContentBounds(minLen, maxLen int) URLOption {
	return func(e *URLExtractor) {
		if minLen > 0 {
			e.minLen = minLen
		}
		if maxLen > 0 {
			e.maxLen = maxLen
		}
	}
}

func WithAntiBotMarkers(markers []string) URLOption {
	return func(e *URLExtractor) {
		if len(markers) > 0 {
			e.antiBot = NewAntiBotDetector(markers)
		}
	}
}

// WithAttemptObserver registers a callback run after every strategy attempt.
func WithAttemptObserver(fn func(strategy, outcome string, elapsed time.Duration)) URLOption {
	return func(e *URLExtractor) { e.observe = fn }
}

// NewURLExtractor tries strategies in the given order until one yields usable content.
func NewURLExtractor(strategies []Strategy, logger *slog.Logger, opts ...URLOption) *URLExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &URLExtractor{
		strategies: strategies,
		minLen:     100,
		maxLen:     5000,
		antiBot:    NewAntiBotDetector(nil),
		observe:    func(string, string, time.Duration) {},
		logger:     logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *URLExtractor) Extract(ctx context.Context, content string) (Result, error) {
	rawURL := strings.TrimSpace(content)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Result{}, common.NewPipelineError(common.KindFetchFailed,
			fmt.Sprintf("invalid url %q", rawURL), err)
	}

	var (
		warnings   []string
		sawAntiBot bool
		sawShort   bool
		lastErr    error
	)
	for _, s := range e.strategies {
		start := time.Now()
		text, err := s.Attempt(ctx, rawURL)
		elapsed := time.Since(start)

		switch {
		case errors.Is(err, ErrNotApplicable):
			e.observe(s.Name(), OutcomeSkipped, elapsed)
			continue
		case errors.Is(err, ErrBlocked):
			sawAntiBot = true
			warnings = append(warnings, s.Name()+": anti-bot challenge")
			e.logger.Warn("extract.url.attempt_failed", "strategy", s.Name(), "url", rawURL, "reason", OutcomeAntiBot)
			e.observe(s.Name(), OutcomeAntiBot, elapsed)
			continue
		case err != nil:
			lastErr = fmt.Errorf("%s: %w", s.Name(), err)
			warnings = append(warnings, lastErr.Error())
			e.logger.Warn("extract.url.attempt_failed", "strategy", s.Name(), "url", rawURL, "reason", OutcomeFailed, "error", err)
			e.observe(s.Name(), OutcomeFailed, elapsed)
			continue
		}

		text = strings.TrimSpace(text)
		if e.antiBot.Blocked(text) {
			sawAntiBot = true
			warnings = append(warnings, s.Name()+": anti-bot challenge")
			e.logger.Warn("extract.url.attempt_failed", "strategy", s.Name(), "url", rawURL, "reason", OutcomeAntiBot)
			e.observe(s.Name(), OutcomeAntiBot, elapsed)
			continue
		}
		if n := RuneLen(text); n <= e.minLen {
			sawShort = true
			warnings = append(warnings, fmt.Sprintf("%s: content too short (%d chars)", s.Name(), n))
			e.logger.Warn("extract.url.attempt_failed", "strategy", s.Name(), "url", rawURL, "reason", OutcomeTooShort, "chars", n)
			e.observe(s.Name(), OutcomeTooShort, elapsed)
			continue
		}

		limit := e.maxLen
		if l, ok := s.(contentLimiter); ok && l.MaxContentLength() > 0 {
			limit = l.MaxContentLength()
		}
		e.observe(s.Name(), OutcomeOK, elapsed)
		e.logger.Info("extract.url.ok", "strategy", s.Name(), "url", rawURL, "chars", RuneLen(text), "elapsed_ms", elapsed.Milliseconds())
		return Result{
			Text:     TruncateRunes(text, limit),
			Method:   "url:" + s.Name(),
			Warnings: warnings,
		}, nil
	}

	switch {
	case sawAntiBot:
		return Result{Warnings: warnings}, common.NewPipelineError(common.KindAntiBotBlocked,
			"page requires human verification", nil).WithRemediation(AntiBotGuidance)
	case sawShort:
		return Result{Warnings: warnings}, common.NewPipelineError(common.KindContentTooShort,
			"网页内容过短或无法提取，请尝试复制文章内容后使用文本方式识别", nil)
	default:
		return Result{Warnings: warnings}, common.NewPipelineError(common.KindFetchFailed,
			"无法获取网页内容", lastErr)
	}
}
