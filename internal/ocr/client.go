package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// Client calls the OCR endpoint of the ocrd sidecar.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/ocr",
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Endpoint is the full OCR URL, used in operator hints.
func (c *Client) Endpoint() string { return c.endpoint }

// Request and Reply are the /api/ocr wire shapes.
type Request struct {
	Image string `json:"image"`
}

type Reply struct {
	Success    bool     `json:"success"`
	Text       string   `json:"text,omitempty"`
	Error      string   `json:"error,omitempty"`
	Language   string   `json:"language,omitempty"`
	Confidence float32  `json:"confidence,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

func (c *Client) Recognize(ctx context.Context, imageBase64 string) (string, error) {
	raw, status, err := common.SendJSON(ctx, c.http, c.endpoint, Request{Image: imageBase64}, nil, c.logger)
	if err != nil && raw == nil {
		return "", err
	}

	var reply Reply
	if jerr := json.Unmarshal(raw, &reply); jerr != nil {
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("decode ocr reply: %w", jerr)
	}
	if reply.Error != "" {
		return "", fmt.Errorf("ocr service: %s", reply.Error)
	}
	if err != nil {
		return "", fmt.Errorf("ocr service status %d: %w", status, err)
	}
	return reply.Text, nil
}
