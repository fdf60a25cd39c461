package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// Store writes an object and returns the URL it is publicly served from.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New builds the store selected by cfg.Driver. "none" yields a nil Store.
func New(cfg common.StorageConfig, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return nil, nil
	case "supabase":
		s, err := NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket, cfg.RequestTimeout, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "local":
		s, err := NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, common.NewAppError("INVALID_CONFIG", fmt.Sprintf("unknown storage driver %q", cfg.Driver), nil)
	}
}

var reUnsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PosterUploader names and stores poster images.
type PosterUploader struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

func NewPosterUploader(store Store, logger *slog.Logger) *PosterUploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PosterUploader{store: store, now: time.Now, logger: logger}
}

// UploadPoster stores data as poster_<unix-ms>.<ext>.
func (u *PosterUploader) UploadPoster(ctx context.Context, data []byte, contentType string) (string, error) {
	return u.Upload(ctx, data, contentType, "")
}

// Upload stores data under posters/. A non-empty filename is kept, sanitized,
// as a suffix: poster_<unix-ms>_<filename>.
func (u *PosterUploader) Upload(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	if u == nil || u.store == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	if len(data) == 0 {
		return "", common.NewAppError("INVALID_INPUT", "empty file", common.ErrInvalidInput)
	}
	if len(data) > constants.MaxUploadBytes {
		return "", common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("file too large: %d bytes (max %d)", len(data), constants.MaxUploadBytes), common.ErrInvalidInput)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", common.NewAppError("INVALID_INPUT", fmt.Sprintf("unsupported content type %q", contentType), common.ErrInvalidInput)
	}

	key := PosterKey(u.now(), contentType, filename)
	publicURL, err := u.store.Put(ctx, key, data, contentType)
	if err != nil {
		u.logger.Error("storage.poster.upload_failed", "key", key, "bytes", len(data), "error", err)
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	u.logger.Info("storage.poster.uploaded", "key", key, "bytes", len(data), "url", publicURL)
	return publicURL, nil
}

// PosterKey is the object key for a poster uploaded at t.
func PosterKey(t time.Time, contentType, filename string) string {
	ts := t.UnixMilli()
	name := strings.Trim(reUnsafeName.ReplaceAllString(path.Base(filename), "_"), "_")
	if filename == "" || name == "" || name == "." {
		return fmt.Sprintf("poster_%d.%s", ts, constants.ExtForMIME(contentType))
	}
	return fmt.Sprintf("poster_%d_%s", ts, name)
}
