package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/wallet-dashboard/internal/config"
	"github.com/dvloznov/wallet-dashboard/internal/export"
	"github.com/dvloznov/wallet-dashboard/internal/gcsuploader"
	infraBQ "github.com/dvloznov/wallet-dashboard/internal/infra/bigquery"
	"github.com/dvloznov/wallet-dashboard/internal/logger"
	"github.com/rs/zerolog"
)

// The worker builds daily exports outside the API server, for use from a
// scheduler. Without -every it exports one date and exits.
func main() {
	log := logger.New()
	cfg := config.Load(log)
	log = logger.NewWithLevel(cfg.LogLevel)

	var (
		dateStr = flag.String("date", "", "Date to export (YYYY-MM-DD), defaults to yesterday (UTC)")
		format  = flag.String("format", "csv", "csv or xlsx")
		bucket  = flag.String("bucket", cfg.Server.Bucket, "GCS bucket for exports (or set GCS_BUCKET env)")
		every   = flag.Duration("every", 0, "Keep running and export the previous day at this interval")
	)
	flag.Parse()

	exportFormat, err := export.ParseFormat(*format)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -format")
	}
	if *bucket == "" {
		log.Fatal().Msg("-bucket or GCS_BUCKET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := infraBQ.NewBigQueryRepository(ctx, infraBQ.Tables{
		Project: cfg.Server.ProjectID,
		Dataset: cfg.Server.DatasetID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	storage, err := gcsuploader.NewGCSStorageService(ctx, *bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage service")
	}
	defer storage.Close()

	exporter := export.NewService(repo, repo, storage, logger.Component(log, "export"))

	if *every <= 0 {
		date := yesterday()
		if *dateStr != "" {
			if date, err = civil.ParseDate(*dateStr); err != nil {
				log.Fatal().Err(err).Msg("Invalid -date")
			}
		}
		if !runOnce(ctx, exporter, date, exportFormat, log) {
			os.Exit(1)
		}
		return
	}

	log.Info().Dur("every", *every).Msg("Worker started, waiting for the next run")

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		runOnce(ctx, exporter, yesterday(), exportFormat, log)
		select {
		case <-ctx.Done():
			log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func yesterday() civil.Date {
	return civil.DateOf(time.Now().UTC()).AddDays(-1)
}

func runOnce(ctx context.Context, exporter *export.Service, date civil.Date, format export.Format, log zerolog.Logger) bool {
	row, err := exporter.RunDaily(ctx, date, format)
	if err != nil {
		log.Error().Err(err).Str("date", date.String()).Msg("Daily export failed")
		return false
	}
	log.Info().
		Str("date", date.String()).
		Str("file", row.FileName).
		Int64("records", row.RecordCount).
		Str("url", row.FileURL).
		Msg("Daily export written")
	return true
}
