// Command migrate prepares the BigQuery audit table for analysis runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/funster-a/hackathon-backend/internal/config"
	infraBQ "github.com/funster-a/hackathon-backend/internal/infra/bigquery"
	"github.com/funster-a/hackathon-backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		projectID = flag.String("project", cfg.AuditProject, "GCP project ID (or set AUDIT_PROJECT env)")
		datasetID = flag.String("dataset", cfg.AuditDataset, "BigQuery dataset ID (or set AUDIT_DATASET env)")
	)
	flag.Parse()

	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *projectID == "" || *datasetID == "" {
		log.Fatal().Msg("Error: -project and -dataset are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewAuditRepository(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create audit repository")
	}
	defer repo.Close()

	if err := repo.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	fmt.Printf("Audit table ready in %s.%s\n", *projectID, *datasetID)
}
