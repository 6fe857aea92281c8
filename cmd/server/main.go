package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rohits-web03/filepod/internal/api"
	"github.com/rohits-web03/filepod/internal/api/handlers"
	"github.com/rohits-web03/filepod/internal/api/services"
	"github.com/rohits-web03/filepod/internal/config"
	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/objectstore"
	"github.com/rohits-web03/filepod/internal/repositories"
)

// memoryEndpoint selects the in-process object store instead of S3.
const memoryEndpoint = "memory"

// @title FilePod API
// @version 1.0
// @description Personal cloud storage with shareable links.
// @BasePath /
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "filepod:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	logger := logging.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repositories.Connect(cfg.DB_URL)
	if err != nil {
		return err
	}
	if err := repositories.Migrate(db); err != nil {
		return err
	}
	logger.Info("database ready")

	objects, err := openObjectStore(ctx, cfg.S3)
	if err != nil {
		return err
	}

	opts, err := api.OptionsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("router options: %w", err)
	}

	h := handlers.New(handlers.Deps{
		Config:  cfg,
		Store:   repositories.NewStore(db),
		Objects: objects,
		Google:  services.NewGoogleOAuthConfig(cfg.Google),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(h, opts),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: downloads and archives stream for as long as they need.
		IdleTimeout: 120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting FilePod server", zap.String("addr", server.Addr), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped")
	return nil
}

func openObjectStore(ctx context.Context, cfg config.S3Config) (objectstore.Store, error) {
	if cfg.Endpoint == memoryEndpoint {
		logging.L().Warn("using in-memory object store; uploads are lost on restart")
		return objectstore.NewMemory(), nil
	}
	store, err := objectstore.NewS3Store(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
