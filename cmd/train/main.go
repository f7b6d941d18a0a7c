package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/funster-a/hackathon-backend/internal/categorizer"
	"github.com/funster-a/hackathon-backend/internal/config"
	"github.com/funster-a/hackathon-backend/internal/dataset"
	"github.com/funster-a/hackathon-backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		csvPath = flag.String("csv", "", "labelled transactions CSV (amount,description,category)")
		bqTable = flag.String("bq-table", "", "BigQuery table with amount, description, category columns")
		project = flag.String("project", cfg.AuditProject, "BigQuery project for -bq-table")
		out     = flag.String("out", cfg.ModelPath, "output path or gs:// URI for the model")
	)
	flag.Parse()

	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if (*csvPath == "") == (*bqTable == "") {
		log.Fatal().Msg("Usage: train (-csv FILE | -bq-table DATASET.TABLE) [-out PATH]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var records []categorizer.Record
	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open CSV")
		}
		records, err = dataset.ReadCSV(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read CSV")
		}
	} else {
		if *project == "" {
			log.Fatal().Msg("-project (or AUDIT_PROJECT) is required with -bq-table")
		}
		client, err := bigquery.NewClient(ctx, *project)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer client.Close()
		if records, err = dataset.ReadBigQuery(ctx, client, *bqTable); err != nil {
			log.Fatal().Err(err).Msg("Failed to read BigQuery table")
		}
	}

	log.Info().Int("records", len(records)).Msg("Loaded training data")

	model, stats, err := categorizer.Train(records)
	if errors.Is(err, categorizer.ErrInsufficientData) {
		log.Fatal().Err(err).Msg("Not enough expense records to train - no model written")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}

	if err := categorizer.Save(ctx, model, *out); err != nil {
		log.Fatal().Err(err).Msg("Failed to save model")
	}

	log.Info().
		Int("documents", stats.Documents).
		Int("skipped", stats.Skipped).
		Int("categories", stats.Categories).
		Int("vocabulary", stats.Vocabulary).
		Str("out", *out).
		Msg("Model trained")
	fmt.Printf("Model with %d categories written to %s\n", stats.Categories, *out)
}
