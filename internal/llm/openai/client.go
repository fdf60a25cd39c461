package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

const (
	remediationMissingKey = "AI API Key 未配置。请配置 ZHIPU_API_KEY 或 DEEPSEEK_API_KEY，然后重启服务"
	remediationInvalidKey = "AI API Key 无效。请检查 ZHIPU_API_KEY 或 DEEPSEEK_API_KEY 是否正确，然后重启服务"
)

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// WithHTTPClient swaps the transport. Used by tests and custom proxies.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.http = h
	}
	return c
}

// Provider returns the resolved provider name, or "" when unconfigured.
func (c *Client) Provider() string { return c.cfg.Provider.Name }

// Complete sends systemPrompt and userMessage in JSON mode and returns the
// reply content.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if c.cfg.Provider.APIKey == "" {
		return "", common.NewPipelineError(common.KindMissingCredential,
			"no model credential configured", nil).WithRemediation(remediationMissingKey)
	}

	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"provider", c.cfg.Provider.Name,
		"model", c.cfg.Provider.Model,
		"temp", c.cfg.Temperature,
		"user_len", len(userMessage),
	)

	body := map[string]any{
		"model":           c.cfg.Provider.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage},
		},
	}

	endpoint := strings.TrimRight(c.cfg.Provider.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.Provider.APIKey}
	raw, status, err := common.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.complete.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", classifyFailure(status, raw, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewPipelineError(common.KindModelError, "decode completion response", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewPipelineError(common.KindModelError, "no choices in completion response", nil)
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"reply_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// classifyFailure separates credential problems from every other provider failure.
func classifyFailure(status int, raw []byte, err error) error {
	msg := providerMessage(raw)
	if status == http.StatusUnauthorized || status == http.StatusForbidden || (status == 0 && looksLikeAuthError(msg)) {
		return common.NewPipelineError(common.KindInvalidCredential,
			fmt.Sprintf("provider rejected credential (status %d): %s", status, msg), nil).WithRemediation(remediationInvalidKey)
	}
	if msg == "" {
		return common.NewPipelineError(common.KindModelError, "completion request failed", err)
	}
	return common.NewPipelineError(common.KindModelError, fmt.Sprintf("provider error (status %d): %s", status, msg), nil)
}

func providerMessage(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &e) == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// looksLikeAuthError is consulted only when no HTTP status is available.
func looksLikeAuthError(msg string) bool {
	return strings.Contains(msg, "Authentication") ||
		strings.Contains(msg, "401") ||
		strings.Contains(strings.ToLower(msg), "api key")
}
