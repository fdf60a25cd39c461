package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string // watched recursively
	AllowedExts map[string]struct{}
	InitialScan bool          // emit files already present
	Debounce    time.Duration // coalesce write bursts while a file is copied
}

// StartWatcher emits poster paths created or written under cfg.Roots. Both
// channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = defaultExts
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	var initial []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && allowed(path, cfg.AllowedExts) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			_ = w.Close()
			return nil, nil, err
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(evCh)
		defer w.Close()

		for _, p := range initial {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		pending := map[string]*time.Timer{}
		fire := make(chan string)
		send := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				for _, t := range pending {
					t.Stop()
				}
				return
			case name := <-fire:
				delete(pending, name)
				if !send(name) {
					return
				}
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("ingest.watch.add_dir_failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if !allowed(e.Name, cfg.AllowedExts) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					continue
				}
				if cfg.Debounce <= 0 {
					if !send(e.Name) {
						return
					}
					continue
				}
				if t, ok := pending[e.Name]; ok {
					t.Reset(cfg.Debounce)
					continue
				}
				name := e.Name
				pending[name] = time.AfterFunc(cfg.Debounce, func() {
					select {
					case fire <- name:
					case <-ctx.Done():
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Watch parses posters as they appear until ctx is done. onResult may be nil.
func (i *FSIngestor) Watch(ctx context.Context, cfg WatchConfig, onResult func(FileResult)) error {
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = i.exts
	}
	paths, errs, err := StartWatcher(ctx, cfg, i.logger)
	if err != nil {
		return err
	}
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return ctx.Err()
			}
			if IsHidden(p) {
				continue
			}
			res, err := i.IngestPath(ctx, p)
			if err != nil {
				res.Err = err.Error()
				i.logger.Warn("ingest.watch.file_failed", "path", p, "error", err)
			}
			if onResult != nil {
				onResult(res)
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}
}
