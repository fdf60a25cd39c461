// Package render loads pages in a headless browser and turns them into
// markdown for the extract-content endpoint.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"

	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/extract"
)

// Renderer returns the outer HTML of a page after scripts have run.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
	Close() error
}

// NewRenderer picks the browser driver named by cfg.Renderer.
func NewRenderer(cfg common.BackendConfig, logger *slog.Logger) (Renderer, error) {
	switch strings.ToLower(cfg.Renderer) {
	case "", "rod":
		return NewRodRenderer(cfg.BrowserURL, cfg.RenderTimeout, logger), nil
	case "chromedp":
		return NewChromedpRenderer(cfg.BrowserURL, cfg.RenderTimeout, logger), nil
	default:
		return nil, common.NewAppError("INVALID_CONFIG", fmt.Sprintf("unknown renderer %q", cfg.Renderer), nil)
	}
}

// Article containers on known hosts; the first match wins.
var (
	articleIDs     = []string{"js_content", "img-content"}
	articleClasses = []string{"rich_media_content", "article-content", "post-content"}
)

// ContentService renders a page and converts its article body to markdown.
type ContentService struct {
	renderer Renderer
	conv     *converter.Converter
	logger   *slog.Logger
}

func NewContentService(r Renderer, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		renderer: r,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
}

func (s *ContentService) Extract(ctx context.Context, pageURL string) (string, error) {
	page, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	md, err := s.ToMarkdown(page, pageURL)
	if err != nil {
		return "", err
	}
	s.logger.Info("render.extract.ok", "url", pageURL, "html_bytes", len(page), "chars", extract.RuneLen(md))
	return md, nil
}

// ToMarkdown converts the article container of page, or the whole document
// when no container is found.
func (s *ContentService) ToMarkdown(page, pageURL string) (string, error) {
	doc, err := extract.ParseHTML(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	src := page
	if n := extract.FindContainer(doc, articleIDs, articleClasses); n != nil {
		var buf bytes.Buffer
		if err := html.Render(&buf, n); err == nil {
			src = buf.String()
		}
	}

	md, err := s.conv.ConvertString(src, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(md) == "" {
		// markup the converter rejects still has readable text
		return extract.BodyText(doc), nil
	}
	return strings.TrimSpace(md), nil
}
