// Package ingest feeds poster images from a local folder through the
// parsing pipeline, once over a directory or continuously from a watcher.
package ingest

import (
	"context"

	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/repository"
)

// FileResult is the per-file outcome.
type FileResult struct {
	Path         string `json:"path"`
	HashHex      string `json:"sha256"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
	Title        string `json:"title,omitempty"`
	EventID      int    `json:"event_id,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	Err          string `json:"error,omitempty"`
}

// DirStats summarizes a directory run.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

type Parser interface {
	Parse(ctx context.Context, req entity.ParseRequest) (entity.ParseResult, error)
}

// EventSaver persists parsed posters. Optional.
type EventSaver interface {
	Create(ctx context.Context, in entity.EventInput, action repository.SaveAction, publishedBy *int) (entity.Event, error)
}
