package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/funster-a/hackathon-backend/internal/api/handlers"
	"github.com/funster-a/hackathon-backend/internal/api/middleware"
	"github.com/funster-a/hackathon-backend/internal/categorizer"
	"github.com/funster-a/hackathon-backend/internal/config"
	infraBQ "github.com/funster-a/hackathon-backend/internal/infra/bigquery"
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

	// Parse command-line flags
	var (
		port  = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		model = flag.String("model", cfg.ModelPath, "categorizer model path or gs:// URI (or set MODEL_PATH env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := logger.WithContext(context.Background(), log)

	o, err := oracle.New(ctx, cfg.Oracle)
	if err != nil {
		log.Warn().Err(err).Msg("No oracle configured - every analysis will return the fallback record")
		o = nil
	}

	var classifier pipeline.Classifier
	if *model != "" {
		m, err := categorizer.Load(ctx, *model)
		if err != nil {
			log.Warn().Err(err).Str("model", *model).Msg("Categorizer model not loaded - using merchant keywords")
		} else {
			classifier = m
			log.Info().
				Str("model", *model).
				Int("categories", len(m.Categories())).
				Int("vocabulary", m.VocabularySize()).
				Msg("Categorizer model loaded")
		}
	}

	pol, err := policy.Load(ctx, cfg.PolicyRules)
	if err != nil {
		log.Fatal().Err(err).Str("rules", cfg.PolicyRules).Msg("Failed to load category policy")
	}

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid analyzer settings")
	}
	if cfg.AuditEnabled() {
		auditRepo, err := infraBQ.NewAuditRepository(ctx, cfg.AuditProject, cfg.AuditDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create audit repository")
		}
		defer auditRepo.Close()
		if err := auditRepo.EnsureTable(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare audit table")
		}
		opts = append(opts, pipeline.WithAuditSink(auditRepo))
	}

	analyzer := pipeline.NewAnalyzer(o, classifier, pol, opts...)

	// Initialize job infrastructure
	var jobStore jobs.JobStore
	if cfg.JobsDB != "" {
		boltStore, err := boltstore.Open(cfg.JobsDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open job store")
		}
		defer boltStore.Close()
		jobStore = boltStore
	} else {
		jobStore = inmemory.NewStore()
	}
	jobQueue := inmemory.NewQueue(cfg.JobCapacity, cfg.JobWorkers, jobStore)

	// Start workers in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.JobWorkers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, handlers.AnalyzeJobRunner(analyzer)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      newRouter(cfg, analyzer, o, jobStore, jobQueue, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OracleTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("oracle", oracleName(o)).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

func newRouter(cfg config.Config, analyzer *pipeline.Analyzer, o oracle.Oracle, store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) http.Handler {
	analyzeHandler := handlers.NewAnalyzeHandler(analyzer, log)
	chatHandler := handlers.NewChatHandler(o, cfg.OracleTimeout, log)
	jobsHandler := handlers.NewJobsHandler(store, publisher, log)

	mux := http.NewServeMux()

	// Analysis endpoints
	mux.HandleFunc("/api/analyze", middleware.Method(http.MethodPost, analyzeHandler.AnalyzePDF))
	mux.HandleFunc("/api/analyze/text", middleware.Method(http.MethodPost, analyzeHandler.AnalyzeText))
	mux.HandleFunc("/api/categorize", middleware.Method(http.MethodPost, analyzeHandler.Categorize))
	mux.HandleFunc("/api/chat", middleware.Method(http.MethodPost, chatHandler.Chat))

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			jobsHandler.ListJobs(w, r)
		case http.MethodPost:
			jobsHandler.CreateJob(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", middleware.Method(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		// Extract job ID from path
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	}))

	// Health check endpoint
	mux.HandleFunc("/health", handlers.Health)

	// Apply middleware
	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(log)(
				middleware.CORS(
					middleware.Auth(cfg.APIKey)(mux),
				),
			),
		),
	)
}

func oracleName(o oracle.Oracle) string {
	if o == nil {
		return "none"
	}
	return o.Name()
}
