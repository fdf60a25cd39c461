// Command parse runs the ingestion pipeline from the command line.
//
//	parse -type text -content "明晚七点篮球赛"
//	parse -type image -file poster.png -lang en
//	parse -dir ./posters [-save] [-watch]
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/core"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/ingest"
	repo "github.com/joseph-ayodele/campus-feed/internal/repository"
	"github.com/joseph-ayodele/campus-feed/internal/server"
)

func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		kind    = flag.String("type", "text", "input type: text, url or image")
		content = flag.String("content", "", "message text or article URL; '-' reads stdin")
		file    = flag.String("file", "", "read content from a file; image files are sent as data URIs")
		lang    = flag.String("lang", "", "output language: zh, en or zh-en")
		dir     = flag.String("dir", "", "parse every poster image under this directory")
		watch   = flag.Bool("watch", false, "with -dir, keep watching for new posters")
		save    = flag.Bool("save", false, "with -dir, store parsed posters as drafts (needs DB_URL)")
	)
	flag.Parse()

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc, err := core.NewProcessor(cfg, nil, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	if *dir != "" {
		os.Exit(runDir(ctx, cfg, proc, logger, *dir, constants.Language(*lang), *watch, *save))
	}

	req := entity.ParseRequest{Type: constants.InputType(*kind), Language: constants.Language(*lang)}
	switch {
	case *file != "":
		req.Content, err = readFile(*file, req.Type)
	case *content == "-":
		var b []byte
		b, err = io.ReadAll(os.Stdin)
		req.Content = string(b)
	default:
		req.Content = *content
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	res, perr := proc.Parse(ctx, req)
	_, body := server.ParseResponse(res, perr)
	writeJSON(body)
	if perr != nil {
		os.Exit(1)
	}
}

func readFile(path string, kind constants.InputType) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if kind != constants.InputImage {
		return string(b), nil
	}
	return "data:" + http.DetectContentType(b) + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

func runDir(ctx context.Context, cfg *common.Config, proc *core.Processor, logger *slog.Logger, dir string, lang constants.Language, watch, save bool) int {
	opts := []ingest.Option{ingest.WithLanguage(lang)}
	if save {
		if err := cfg.Validate(); err != nil {
			printError("Error: -save needs a database: %v\n", err)
			return 2
		}
		db, err := repo.Open(ctx, cfg.Database, logger)
		if err != nil {
			printError("Error: %v\n", err)
			return 1
		}
		defer db.Close()
		opts = append(opts, ingest.WithSaver(repo.NewEventRepository(db, logger), repo.SaveDraft))
	}
	ing := ingest.NewFSIngestor(proc, logger, opts...)

	if watch {
		err := ing.Watch(ctx, ingest.WatchConfig{Roots: []string{dir}, InitialScan: true, Debounce: 500 * time.Millisecond}, func(r ingest.FileResult) { writeJSON(r) })
		if err != nil && ctx.Err() == nil {
			printError("Error: %v\n", err)
			return 1
		}
		return 0
	}

	results, stats, err := ing.IngestDirectory(ctx, dir, true)
	for _, r := range results {
		writeJSON(r)
	}
	writeJSON(stats)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if stats.Failed > 0 {
		return 1
	}
	return 0
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
