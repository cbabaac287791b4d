package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/songbook/pkg/songbook/admin"
	"github.com/tendant/songbook/pkg/songbook/config"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("No .env file loaded", "err", err)
	}

	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		usage, err := config.EnvUsage()
		if err != nil {
			slog.Error("Failed to describe configuration", "err", err)
			os.Exit(1)
		}
		fmt.Println(usage)
		return
	}

	cfg, err := config.Load(config.WithEnv(""))
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.ServerConfig, logger *slog.Logger) error {
	ctx := context.Background()

	rt, err := cfg.BuildService(ctx)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer rt.Close()

	authenticator, err := cfg.BuildAuthenticator()
	if err != nil {
		return fmt.Errorf("failed to build authenticator: %w", err)
	}

	if stats, err := admin.New(rt.Repository).Statistics(ctx); err != nil {
		logger.Warn("Failed to read catalog statistics", "err", err)
	} else {
		logger.Info("Catalog loaded",
			"songs", stats.TotalCount,
			"without_media", stats.WithoutMedia,
			"missing_metadata_image", stats.MissingMetadataImage)
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	if err := mountRoutes(server.R, cfg, rt, authenticator, logger); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.R,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Songbook server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"record_store", cfg.RecordStore,
			"blob_store", cfg.BlobStore)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Pending media deletions are drained by rt.Close
	logger.Info("Server exiting", "orphans", len(rt.Cleaner.Orphans()))
	return nil
}
