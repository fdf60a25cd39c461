package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

const chromeUserAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36`

// ChromedpRenderer renders pages with chromedp. Each render gets its own
// browser tab under one shared allocator.
type ChromedpRenderer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	logger   *slog.Logger
}

func NewChromedpRenderer(remoteURL string, timeout time.Duration, logger *slog.Logger) *ChromedpRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	var allocCtx context.Context
	var cancel context.CancelFunc
	if remoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), remoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.UserAgent(chromeUserAgent),
		)
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return &ChromedpRenderer{allocCtx: allocCtx, cancel: cancel, timeout: timeout, logger: logger}
}

func (r *ChromedpRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	taskCtx, cancelTask := chromedp.NewContext(r.allocCtx)
	defer cancelTask()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, r.timeout)
	defer cancelTimeout()

	// propagate caller cancellation into the browser task
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	start := time.Now()
	var page string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		r.logger.Warn("render.chromedp.failed", "url", pageURL, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("chromedp: %w", err)
	}
	return page, nil
}

func (r *ChromedpRenderer) Close() error {
	r.cancel()
	return nil
}
