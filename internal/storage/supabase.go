package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// SupabaseStore writes to a Supabase storage bucket over its REST API.
type SupabaseStore struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
	logger  *slog.Logger
}

func NewSupabaseStore(baseURL, key, bucket string, timeout time.Duration, logger *slog.Logger) (*SupabaseStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" || key == "" {
		return nil, common.NewAppError("INVALID_CONFIG", "SUPABASE_URL and a service key are required for supabase storage", nil)
	}
	if bucket == "" {
		bucket = constants.PosterBucket
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SupabaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bucket:  bucket,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

func (s *SupabaseStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectPath := url.PathEscape(s.bucket) + "/" + escapeKey(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/storage/v1/object/"+objectPath, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "false")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode/100 != 2 {
		s.logger.Warn("storage.supabase.put_failed", "status", resp.StatusCode, "key", key, "body", string(body))
		return "", fmt.Errorf("supabase storage status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return s.PublicURL(key), nil
}

// PublicURL is where a public bucket serves key.
func (s *SupabaseStore) PublicURL(key string) string {
	return s.baseURL + "/storage/v1/object/public/" + url.PathEscape(s.bucket) + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
