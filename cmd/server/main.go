package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-optimizer/internal/adapter/cache"
	httpadapter "cv-optimizer/internal/adapter/http"
	repo "cv-optimizer/internal/adapter/repository"
	"cv-optimizer/internal/auth"
	"cv-optimizer/internal/config"
	"cv-optimizer/internal/cryptox"
	"cv-optimizer/internal/infrastructure/migration"
	"cv-optimizer/internal/janitor"
	"cv-optimizer/internal/model"
	"cv-optimizer/internal/render"
	"cv-optimizer/internal/usecase"
	"cv-optimizer/pkg/ai"
	infra "cv-optimizer/pkg/infrastructure"
	"cv-optimizer/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cipher, err := cryptox.NewCipher(cfg.Auth.SecretKey)
	if err != nil {
		return err
	}

	aiClient, err := ai.NewClient(ai.Options{
		Timeout:       cfg.AI.Timeout,
		GoogleBaseURL: cfg.AI.GoogleBaseURL,
		GroqBaseURL:   cfg.AI.GroqBaseURL,
		Schema:        model.Schema,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	renderer, err := render.New(infra.NewChromedpRenderer(cfg.PDF.ChromePath, cfg.PDF.Timeout))
	if err != nil {
		return err
	}

	statusCache := cache.NewStatusCache(ctx, cfg.Redis.URL, cfg.Redis.StatusCacheTTL, logger)
	defer statusCache.Close()

	authSvc := usecase.NewAuthService(store, auth.NewHMACService(cfg.Auth.SecretKey, cfg.Auth.TokenExpires))
	settings := usecase.NewSettingsService(store, store, cipher, cfg.AI.FallbackKeys())
	manager := usecase.NewManager(usecase.ManagerDeps{
		CVs:       store,
		Users:     store,
		Keys:      settings,
		Optimizer: aiClient,
		Renderer:  renderer,
		Cache:     statusCache,
		Logger:    logger,
	})

	jan := janitor.New(manager, cfg.Janitor.Schedule, cfg.Janitor.StaleAfter, logger)
	if err := jan.Start(ctx); err != nil {
		return err
	}
	defer jan.Stop()

	h := httpadapter.NewHandler(authSvc, usecase.NewProfileService(store, renderer), settings, manager, cfg.App.AppName)
	app := httpadapter.NewApp(h, authSvc, httpadapter.AppOptions{
		AppName:     cfg.App.AppName,
		CORSOrigins: cfg.App.CORSOrigins,
		Static:      web.Files,
		Logger:      logger,
	})

	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "port", cfg.App.HTTPPort)
		errc <- app.Listen(":" + cfg.App.HTTPPort)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := manager.Wait(shutdownCtx); err != nil {
		logger.Warn("generation runs still in flight; the janitor settles them on next start", "error", err)
	}
	return nil
}

// openStore connects to Postgres and migrates it. Without DATABASE_URL the
// server runs on an in-memory store.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (usecase.Store, func(), error) {
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return repo.NewMemoryStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	pool, err := infra.NewPool(connectCtx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.RunMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return repo.NewPostgresStore(pool), pool.Close, nil
}
