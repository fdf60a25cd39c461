package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/repository"
)

// FSIngestor reads posters from the local filesystem. Files are identified
// by content hash so a poster copied twice is parsed once per process.
type FSIngestor struct {
	parser   Parser
	saver    EventSaver
	action   repository.SaveAction
	language constants.Language
	exts     map[string]struct{}
	logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]FileResult
}

type Option func(*FSIngestor)

// WithSaver stores every parsed poster with the given action.
func WithSaver(s EventSaver, action repository.SaveAction) Option {
	return func(i *FSIngestor) { i.saver, i.action = s, action }
}

func WithLanguage(lang constants.Language) Option {
	return func(i *FSIngestor) { i.language = lang }
}

func WithExtensions(exts []string) Option {
	return func(i *FSIngestor) { i.exts = ExtSet(exts) }
}

func NewFSIngestor(parser Parser, logger *slog.Logger, opts ...Option) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	i := &FSIngestor{
		parser: parser,
		action: repository.SaveDraft,
		exts:   defaultExts,
		logger: logger,
		seen:   make(map[string]FileResult),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// IngestPath parses one poster file. A returned error means the file could
// not be read; pipeline failures are reported in FileResult.Err.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (FileResult, error) {
	out := FileResult{Path: path}
	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.Path = abs
	if !allowed(abs, i.exts) {
		return out, common.NewAppError("INVALID_INPUT", fmt.Sprintf("unsupported or missing extension %q", filepath.Ext(abs)), common.ErrInvalidInput)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return out, fmt.Errorf("stat: %w", err)
	}
	if info.Size() > constants.MaxUploadBytes {
		return out, common.NewAppError("INVALID_INPUT", fmt.Sprintf("%s is larger than %d bytes", abs, constants.MaxUploadBytes), common.ErrInvalidInput)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}
	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])

	i.mu.Lock()
	prev, dup := i.seen[out.HashHex]
	i.mu.Unlock()
	if dup {
		prev.Path = abs
		prev.Deduplicated = true
		i.logger.Info("ingest.file.deduplicated", "path", abs, "sha256", out.HashHex)
		return prev, nil
	}

	req := entity.ParseRequest{
		Type:     constants.InputImage,
		Content:  dataURI(abs, data),
		Language: i.language,
	}
	res, err := i.parser.Parse(ctx, req)
	out.ImageURL = res.ImageURL
	if err != nil {
		out.ErrorKind = string(common.KindOf(err))
		out.Err = common.UserMessage(err)
		i.logger.Warn("ingest.file.parse_failed", "path", abs, "kind", out.ErrorKind, "error", err)
		return out, nil
	}
	out.Title = res.Event.Title

	if i.saver != nil {
		ev, err := i.saver.Create(ctx, toInput(res), i.action, nil)
		if err != nil {
			out.Err = err.Error()
			i.logger.Error("ingest.file.save_failed", "path", abs, "error", err)
			return out, nil
		}
		out.EventID = ev.ID
	}

	i.mu.Lock()
	i.seen[out.HashHex] = out
	i.mu.Unlock()
	i.logger.Info("ingest.file.parsed", "path", abs, "title", out.Title, "event_id", out.EventID)
	return out, nil
}

func toInput(res entity.ParseResult) entity.EventInput {
	ev := res.Event
	ki := ev.KeyInfo
	return entity.EventInput{
		Title:      ev.Title,
		Type:       ev.Type,
		Tags:       ev.Tags,
		KeyInfo:    &ki,
		Summary:    ev.Summary,
		RawContent: ev.RawContent,
		ImageURL:   res.ImageURL,
	}
}

func dataURI(path string, data []byte) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(ct, "image/") {
		ct = http.DetectContentType(data)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
}
