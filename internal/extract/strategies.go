package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxPageBytes caps how much of a fetched page is read.
const maxPageBytes = 8 << 20

// weixinHost serves articles whose body lives in a known container.
const weixinHost = "mp.weixin.qq.com"

// BackendStrategy asks the extract-content collaborator to render the page.
// It only applies to hosts listed in domains.
type BackendStrategy struct {
	baseURL string
	domains []string
	maxLen  int
	client  *http.Client
	logger  *slog.Logger
}

func NewBackendStrategy(baseURL string, domains []string, timeout time.Duration, maxLen int, logger *slog.Logger) *BackendStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &BackendStrategy{
		baseURL: strings.TrimRight(baseURL, "/"),
		domains: domains,
		maxLen:  maxLen,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (s *BackendStrategy) Name() string          { return "backend" }
func (s *BackendStrategy) MaxContentLength() int { return s.maxLen }

type extractContentReply struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Error   string `json:"error"`
}

func (s *BackendStrategy) Attempt(ctx context.Context, rawURL string) (string, error) {
	if s.baseURL == "" || !hostMatches(rawURL, s.domains) {
		return "", ErrNotApplicable
	}
	raw, status, err := common.SendJSON(ctx, s.client, s.baseURL+"/api/extract-content",
		map[string]string{"url": rawURL}, nil, s.logger)
	if err != nil && raw == nil {
		return "", err
	}

	var reply extractContentReply
	if jerr := json.Unmarshal(raw, &reply); jerr != nil {
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("decode extract-content reply: %w", jerr)
	}
	if err != nil || !reply.Success {
		msg := reply.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", status)
		}
		return "", fmt.Errorf("extract-content failed: %s", msg)
	}
	return StripTags(reply.Content), nil
}

// ReaderStrategy goes through a public reader proxy that returns page text.
type ReaderStrategy struct {
	prefix string
	client *http.Client
}

func NewReaderStrategy(prefix string, timeout time.Duration) *ReaderStrategy {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ReaderStrategy{prefix: prefix, client: &http.Client{Timeout: timeout}}
}

func (s *ReaderStrategy) Name() string { return "reader" }

func (s *ReaderStrategy) Attempt(ctx context.Context, rawURL string) (string, error) {
	if s.prefix == "" {
		return "", ErrNotApplicable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.prefix+rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/plain")

	body, err := fetch(s.client, req)
	if err != nil {
		return "", err
	}
	return StripTags(string(body)), nil
}

// DirectStrategy fetches the page itself and pulls text out of the markup.
type DirectStrategy struct {
	client  *http.Client
	antiBot AntiBotDetector
}

func NewDirectStrategy(timeout time.Duration, markers []string) *DirectStrategy {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DirectStrategy{client: &http.Client{Timeout: timeout}, antiBot: NewAntiBotDetector(markers)}
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Attempt(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	body, err := fetch(s.client, req)
	if err != nil {
		return "", err
	}
	if s.antiBot.Blocked(string(body)) {
		return "", ErrBlocked
	}

	doc, err := ParseHTML(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	if hostMatches(rawURL, []string{weixinHost}) {
		if text := ContainerText(doc, []string{"js_content"}, []string{"rich_media_content"}); RuneLen(text) > 200 {
			return text, nil
		}
	}
	return BodyText(doc), nil
}

// BuildStrategies assembles the configured strategy chain in order.
func BuildStrategies(cfg common.ExtractConfig, logger *slog.Logger) ([]Strategy, error) {
	out := make([]Strategy, 0, len(cfg.Strategies))
	for _, name := range cfg.Strategies {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "backend":
			out = append(out, NewBackendStrategy(cfg.BackendURL, cfg.BackendDomains, cfg.BackendTimeout, cfg.BackendMaxContentLength, logger))
		case "reader":
			out = append(out, NewReaderStrategy(cfg.ReaderURL, cfg.ReaderTimeout))
		case "direct":
			out = append(out, NewDirectStrategy(cfg.DirectTimeout, cfg.AntiBotMarkers))
		default:
			return nil, common.NewAppError("INVALID_CONFIG", fmt.Sprintf("unknown url strategy %q", name), nil)
		}
	}
	if len(out) == 0 {
		return nil, common.NewAppError("INVALID_CONFIG", "no url strategies configured", nil)
	}
	return out, nil
}

func fetch(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return body, nil
}

func hostMatches(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
