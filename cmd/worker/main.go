// Command worker analyses a batch of statement files through the job queue
// and records each job in a bolt job store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/funster-a/hackathon-backend/internal/api/handlers"
	"github.com/funster-a/hackathon-backend/internal/config"
	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/extractor"
	"github.com/funster-a/hackathon-backend/internal/gcsuploader"
	"github.com/funster-a/hackathon-backend/internal/jobs"
	"github.com/funster-a/hackathon-backend/internal/jobs/boltstore"
	"github.com/funster-a/hackathon-backend/internal/jobs/inmemory"
	"github.com/funster-a/hackathon-backend/internal/logger"
	"github.com/funster-a/hackathon-backend/internal/oracle"
	"github.com/funster-a/hackathon-backend/internal/pipeline"
	"github.com/funster-a/hackathon-backend/internal/policy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		storePath = flag.String("store", cfg.JobsDB, "bolt job store path (or set JOBS_DB env)")
		locale    = flag.String("locale", "ru", "ru, kz or en")
		workers   = flag.Int("workers", cfg.JobWorkers, "concurrent analyses")
	)
	flag.Parse()

	// Initialize logger
	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if flag.NArg() == 0 || *storePath == "" {
		log.Fatal().Msg("Usage: worker -store jobs.db FILE...")
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	o, err := oracle.New(ctx, cfg.Oracle)
	if err != nil {
		log.Warn().Err(err).Msg("No oracle configured - every analysis will return the fallback record")
		o = nil
	}
	pol, err := policy.Load(ctx, cfg.PolicyRules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category policy")
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid analyzer settings")
	}
	analyzer := pipeline.NewAnalyzer(o, nil, pol, opts...)

	// Initialize job store and queue
	jobStore, err := boltstore.Open(*storePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open job store")
	}
	defer jobStore.Close()

	jobQueue := inmemory.NewQueue(flag.NArg(), *workers, jobStore)
	if err := jobQueue.Start(ctx, handlers.AnalyzeJobRunner(analyzer)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	var ids []string
	for _, file := range flag.Args() {
		text, err := readStatement(ctx, file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("Skipping statement")
			continue
		}
		job := &jobs.AnalyzeJob{
			Text:   text,
			Locale: domain.ParseLocale(*locale),
			Source: gcsuploader.ExtractFilename(file),
		}
		if err := jobQueue.PublishAnalyze(ctx, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to enqueue job")
		}
		ids = append(ids, job.GetID())
	}

	log.Info().Int("jobs", len(ids)).Msg("Jobs enqueued, waiting for workers")
	waitForJobs(ctx, jobStore, ids)

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	for _, id := range ids {
		job, err := jobStore.GetJob(context.Background(), id)
		if err != nil {
			continue
		}
		total := 0.0
		if job.Result != nil {
			total = job.Result.TotalSpent
		}
		fmt.Printf("%s  %-30s %-9s fallback=%-5t total=%.2f\n", job.JobID, job.Source, job.Status, job.Fallback, total)
	}
}

func readStatement(ctx context.Context, location string) (string, error) {
	data, err := gcsuploader.ReadObject(ctx, location)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(strings.ToLower(location), ".pdf") {
		return string(data), nil
	}
	text, err := extractor.ExtractText(data)
	if err != nil {
		// Still analysed; empty text yields the fallback record.
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("file", location).Msg("PDF text extraction failed")
		return "", nil
	}
	return text, nil
}

func waitForJobs(ctx context.Context, store jobs.JobStore, ids []string) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		done := 0
		for _, id := range ids {
			job, err := store.GetJob(ctx, id)
			if err == nil && (job.Status == jobs.JobStatusCompleted || job.Status == jobs.JobStatusFailed) {
				done++
			}
		}
		if done == len(ids) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
