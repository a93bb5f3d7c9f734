package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pennyflow/pennyflow/internal/analytics"
	"github.com/pennyflow/pennyflow/internal/archive"
	"github.com/pennyflow/pennyflow/internal/budget"
	"github.com/pennyflow/pennyflow/internal/config"
	"github.com/pennyflow/pennyflow/internal/jobs/inmemory"
	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/logger"
	"github.com/pennyflow/pennyflow/internal/notify"
	"github.com/pennyflow/pennyflow/internal/recurring"
	"github.com/pennyflow/pennyflow/internal/report"
	"github.com/pennyflow/pennyflow/internal/schedule"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New("scheduler")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New("scheduler")
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))

	store, err := ledger.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := notify.NewClient(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.From)

	var insights report.TextGenerator
	if !cfg.Insights.Disabled {
		client, err := report.NewGenAIClient(ctx, cfg.Insights.Model)
		if err != nil {
			// Reports fall back to static insights; no reason to die.
			log.Warn().Err(err).Msg("Insights client unavailable, using fallbacks")
		} else {
			insights = client
		}
	}

	var archiver report.Archiver
	if cfg.Archive.Bucket != "" {
		gcs, err := archive.NewGCSArchive(ctx, cfg.Archive.Bucket, cfg.Archive.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create report archive")
		}
		defer gcs.Close()
		archiver = gcs
	}

	var exporter report.Exporter
	if cfg.Analytics.Dataset != "" {
		bq, err := analytics.NewBigQueryExporter(ctx, cfg.Analytics.ProjectID,
			cfg.Analytics.Dataset, cfg.Analytics.Table, cfg.Analytics.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create analytics exporter")
		}
		defer bq.Close()
		exporter = bq
	}

	// Recurring jobs are dispatched to the in-process queue and consumed
	// by this same binary's worker pool.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Options{
		BufferSize:       cfg.Queue.BufferSize,
		WorkerCount:      cfg.Queue.WorkerCount,
		PerUserPerMinute: cfg.Queue.PerUserPerMinute,
	}, jobStore)

	processor := recurring.NewProcessor(store, log)
	if err := jobQueue.Start(ctx, processor.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	dispatcher := recurring.NewDispatcher(store, jobQueue, log)
	monitor := budget.NewMonitor(store, mailer, log)
	generator := report.NewGenerator(store, mailer, insights, archiver, exporter, log)

	log.Info().Msg("Scheduler started")

	var wg sync.WaitGroup

	// Budget alerts every six hours.
	runOnSchedule(ctx, &wg, schedule.NextSixHourly, func(now time.Time) {
		if _, err := monitor.RunCycle(ctx, now); err != nil {
			log.Error().Err(err).Msg("Budget check cycle failed")
		}
	})

	// Recurring dispatch daily at midnight.
	runOnSchedule(ctx, &wg, schedule.NextDaily, func(now time.Time) {
		if _, err := dispatcher.RunCycle(ctx, now); err != nil {
			log.Error().Err(err).Msg("Recurring dispatch cycle failed")
		}
	})

	// Monthly reports on the 1st.
	runOnSchedule(ctx, &wg, schedule.NextMonthly, func(now time.Time) {
		if _, err := generator.RunCycle(ctx, now); err != nil {
			log.Error().Err(err).Msg("Report cycle failed")
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down scheduler...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during queue shutdown")
	}

	wg.Wait()
	log.Info().Msg("Scheduler exited")
}

// runOnSchedule sleeps until each trigger time computed by next and invokes
// run with it. Exits when ctx is canceled.
func runOnSchedule(ctx context.Context, wg *sync.WaitGroup, next func(time.Time) time.Time, run func(time.Time)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			at := next(time.Now())
			timer := time.NewTimer(time.Until(at))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case now := <-timer.C:
				run(now)
			}
		}
	}()
}
