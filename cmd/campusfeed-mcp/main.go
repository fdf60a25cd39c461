// Command campusfeed-mcp serves the parse_event tool over MCP stdio.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/core"
	"github.com/joseph-ayodele/campus-feed/internal/server"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	// stdout carries the protocol
	logger := common.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc, err := core.NewProcessor(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	srv := server.NewMCPServer(proc, constants.Version, logger)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("mcp server exited", "error", err)
		os.Exit(1)
	}
}
