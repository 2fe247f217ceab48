package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/api"
	"github.com/dvloznov/wallet-dashboard/internal/api/handlers"
	"github.com/dvloznov/wallet-dashboard/internal/config"
	"github.com/dvloznov/wallet-dashboard/internal/export"
	"github.com/dvloznov/wallet-dashboard/internal/gcsuploader"
	infraBQ "github.com/dvloznov/wallet-dashboard/internal/infra/bigquery"
	"github.com/dvloznov/wallet-dashboard/internal/jobs"
	"github.com/dvloznov/wallet-dashboard/internal/jobs/inmemory"
	"github.com/dvloznov/wallet-dashboard/internal/logger"
	"golang.org/x/time/rate"
)

func main() {
	log := logger.New()
	cfg := config.Load(log)
	log = logger.NewWithLevel(cfg.LogLevel)

	// Parse command-line flags
	var (
		port   = flag.String("port", cfg.Server.Port, "HTTP server port")
		bucket = flag.String("bucket", cfg.Server.Bucket, "GCS bucket for daily exports (or set GCS_BUCKET env)")
	)
	flag.Parse()

	ctx := context.Background()

	repo, err := infraBQ.NewBigQueryRepository(ctx, infraBQ.Tables{
		Project: cfg.Server.ProjectID,
		Dataset: cfg.Server.DatasetID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	// Exports need a bucket; without one the export endpoints only list.
	var publisher jobs.Publisher
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, inmemory.DefaultWorkers, jobStore, logger.Component(log, "jobs"))

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - export jobs will be disabled")
	} else {
		storage, err := gcsuploader.NewGCSStorageService(ctx, *bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage service")
		}
		defer storage.Close()

		exporter := export.NewService(repo, repo, storage, logger.Component(log, "export"))
		if err := jobQueue.Start(workerCtx, exporter.HandleJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to start export worker")
		}
		publisher = jobQueue
		log.Info().Str("bucket", *bucket).Msg("Export worker started")
	}

	historyHandler, err := handlers.NewHistoryHandler(repo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create history handler")
	}

	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	}
	if cfg.Server.APIKey == "" {
		log.Warn().Msg("FUNCTIONS_API_KEY not set - API key auth disabled")
	}

	handler := api.NewRouter(api.Handlers{
		History: historyHandler,
		Exports: handlers.NewExportsHandler(repo, publisher, log),
		Jobs:    handlers.NewJobsHandler(jobStore, log),
	}, api.Options{
		APIKey:  cfg.Server.APIKey,
		Limiter: limiter,
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("prefix", api.Prefix).Msg("Starting functions server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight exports
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
