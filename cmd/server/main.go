package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/facegate/internal/camera"
	"github.com/saturnino-fabrica-de-software/facegate/internal/capture"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/face"
	"github.com/saturnino-fabrica-de-software/facegate/internal/match"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
	"github.com/saturnino-fabrica-de-software/facegate/internal/stream"
	"github.com/saturnino-fabrica-de-software/facegate/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local .env is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Facegate",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	// Database pool
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Face provider
	faceProvider, err := face.NewFaceProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to create face provider: %w", err)
	}
	if closer, ok := faceProvider.(interface{ Close() }); ok {
		defer closer.Close()
	}

	// Repositories and services
	galleryRepo := repository.NewGalleryRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	matcher := match.New(faceProvider)
	galleryService := service.NewGalleryService(galleryRepo, matcher)
	authService := service.NewAuthService(accountRepo)

	// Capture loop and stream fanout
	hub := stream.NewHub()
	engine := capture.NewEngine(
		camera.OpenDevice,
		cfg.CameraIndex,
		faceProvider,
		matcher,
		galleryRepo,
		hub,
		logger,
	)

	sessions := session.NewManager(cfg.SessionSecret)
	defer sessions.Stop()

	// Setup router
	router := web.NewRouter(logger, &web.Dependencies{
		Gallery:  galleryService,
		Auth:     authService,
		Engine:   engine,
		Hub:      hub,
		Sessions: sessions,
		DB:       pool,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	engine.Stop()
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
