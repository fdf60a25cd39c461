package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/async"
	"github.com/joseph-ayodele/campus-feed/internal/auth"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/core"
	"github.com/joseph-ayodele/campus-feed/internal/export"
	"github.com/joseph-ayodele/campus-feed/internal/metrics"
	repo "github.com/joseph-ayodele/campus-feed/internal/repository"
	"github.com/joseph-ayodele/campus-feed/internal/server"
	"github.com/joseph-ayodele/campus-feed/internal/stats"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("campusfeedd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("schema migrated")
	}

	m := metrics.New()
	proc, err := core.NewProcessor(cfg, m, logger)
	if err != nil {
		return err
	}

	events := repo.NewEventRepository(db, logger)
	loc, err := stats.LoadLocation(cfg.Stats.Timezone)
	if err != nil {
		return err
	}
	dashboard := stats.NewService(repo.NewStatsReader(db), events, logger, stats.WithLocation(loc))
	exporter := export.NewService(events, loc, logger)

	gate, err := auth.NewGate(cfg.Auth, logger)
	if err != nil {
		return err
	}

	jobStore, closeStore, err := async.NewJobStore(ctx, cfg.Jobs, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing job store", "error", err)
		}
	}()
	queue := async.NewProcessorQueue(proc, jobStore, logger,
		async.WithWorkers(cfg.Jobs.Workers),
		async.WithQueueSize(cfg.Jobs.QueueSize),
		async.WithProcessTimeout(cfg.Jobs.Timeout),
		async.WithCompletionHook(m.ObserveJob),
		async.WithDepthHook(m.SetQueueDepth),
	)

	deps := server.Deps{
		Parser:     proc,
		Jobs:       queue,
		Events:     events,
		Stats:      dashboard,
		Export:     exporter,
		Gate:       gate,
		Metrics:    m,
		DB:         db,
		UploadsDir: proc.UploadsDir,
		Logger:     logger,
	}
	if proc.Uploader != nil {
		deps.Uploader = proc.Uploader
	}

	errCh := make(chan error, 2)

	var httpSrv *http.Server
	if cfg.Server.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           server.NewHTTPServer(deps).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http listening", "addr", cfg.Server.HTTPAddr, "version", constants.Version)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	svc := server.NewGRPCService(proc, events, dashboard, logger)
	grpcSrv, hs := server.NewGRPCServer(svc, gate)
	reflection.Register(grpcSrv)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	hs.Shutdown()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}
	grpcDone := make(chan struct{})
	go func() { grpcSrv.GracefulStop(); close(grpcDone) }()
	select {
	case <-grpcDone:
	case <-shutdownCtx.Done():
		grpcSrv.Stop()
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
	return nil
}
