package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/campus-feed/constants"
)

// LocalStore keeps posters on disk; the HTTP server serves the directory
// under publicBase.
type LocalStore struct {
	dir        string
	publicBase string
	logger     *slog.Logger
}

func NewLocalStore(dir, publicBase string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(filepath.Join(dir, constants.PosterBucket), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, publicBase: strings.TrimRight(publicBase, "/"), logger: logger}, nil
}

// Dir is the root directory objects are written under.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	clean := filepath.Clean("/" + key)[1:]
	if clean == "" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	full := filepath.Join(s.dir, constants.PosterBucket, clean)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", full, err)
	}
	s.logger.Debug("storage.local.put", "path", full, "bytes", len(data))
	return s.publicBase + "/" + constants.PosterBucket + "/" + filepath.ToSlash(clean), nil
}
