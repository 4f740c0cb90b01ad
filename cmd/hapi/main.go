package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/psws-hapi/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/psws-hapi/internal/adapter/http"
	"github.com/couchcryptid/psws-hapi/internal/catalog"
	"github.com/couchcryptid/psws-hapi/internal/config"
	"github.com/couchcryptid/psws-hapi/internal/observability"
	"github.com/couchcryptid/psws-hapi/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	// A missing .env is the normal production case.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cat, err := catalog.Load(cfg.CatalogFile, clockwork.NewRealClock())
	if err != nil {
		logger.Error("failed to load catalog", "file", cfg.CatalogFile, "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "file", cfg.CatalogFile, "datasets", len(cat.Datasets()))

	selector := filestore.NewSelector(cfg.DataDir, logger)
	extractor := pipeline.New(selector, filestore.OpenStream, logger, metrics, cfg.DecodeWorkers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, selector, extractor, cat, logger, metrics, httpadapter.Options{
		RateLimit: cfg.DataRateLimit,
		RateBurst: cfg.DataRateBurst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("serving data", "data_dir", cfg.DataDir, "decode_workers", cfg.DecodeWorkers)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
