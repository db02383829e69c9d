package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/athleon/perform/internal/coach"
	"github.com/athleon/perform/internal/config"
	"github.com/athleon/perform/internal/embeddings"
	"github.com/athleon/perform/internal/events"
	"github.com/athleon/perform/internal/fallback"
	"github.com/athleon/perform/internal/judge"
	"github.com/athleon/perform/internal/media"
	"github.com/athleon/perform/internal/server"
	"github.com/athleon/perform/internal/storage"
)

func main() {
	// Configure logger
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05",
		}),
	)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded environment from .env")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	preprocessor, err := media.NewPreprocessor(logger)
	if err != nil {
		return err
	}

	embedder := embeddings.NewService(4)
	defer embedder.Close()

	if err := storage.InitSchema(ctx, cfg.DatabaseDSN); err != nil {
		return err
	}
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseDSN, embedder, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	judgeClient := judge.NewClient(judge.Options{
		Endpoint: cfg.OpenRouterEndpoint,
		APIKey:   cfg.OpenRouterAPIKey,
		Model:    cfg.OpenRouterModel,
		Referer:  cfg.FrontendURL,
		Title:    "Athleon",
	}, logger)
	if !judgeClient.Configured() {
		logger.Warn("OPENROUTER_API_KEY not set; analyses will use synthetic results")
	}

	synth := fallback.New(time.Now().UnixNano())
	analyzer := coach.NewService(judgeClient, preprocessor, synth, logger)

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.Connect(cfg.NATSURL, logger)
		if err != nil {
			// Notifications are best-effort; run without them.
			logger.Warn("event publishing disabled", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	srv := server.New(analyzer, store, publisher, cfg.UploadDir, logger)
	defer srv.Close()
	e := srv.Echo()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- e.Start(cfg.Addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", "error", err)
	}
	return nil
}
