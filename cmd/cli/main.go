package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/funster-a/hackathon-backend/internal/categorizer"
	"github.com/funster-a/hackathon-backend/internal/config"
	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/extractor"
	"github.com/funster-a/hackathon-backend/internal/gcsuploader"
	infraBQ "github.com/funster-a/hackathon-backend/internal/infra/bigquery"
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
	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "categorize":
		runCategorize(cfg, log)
	case "analyze":
		runAnalyze(cfg, log)
	case "model":
		runModel(cfg, log)
	case "upload":
		runUpload(log)
	case "runs":
		runRuns(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Kaspi statement analyzer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  categorize  Categorize transaction descriptions")
	fmt.Println("  analyze     Analyze a statement (text or PDF, local or gs://)")
	fmt.Println("  model       Inspect a trained categorizer model")
	fmt.Println("  upload      Copy a statement file to GCS")
	fmt.Println("  runs        List recent analysis runs from the audit table")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func loadModel(ctx context.Context, location string, log zerolog.Logger) pipeline.Classifier {
	if location == "" {
		return nil
	}
	m, err := categorizer.Load(ctx, location)
	if err != nil {
		log.Warn().Err(err).Msg("Categorizer model not loaded - using merchant keywords")
		return nil
	}
	return m
}

func runCategorize(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("categorize", flag.ExitOnError)
	model := fs.String("model", cfg.ModelPath, "model path or gs:// URI")
	fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		log.Fatal().Msg("Usage: cli categorize [-model PATH] DESCRIPTION...")
	}

	ctx := logger.WithContext(context.Background(), log)
	pol, err := policy.Load(ctx, cfg.PolicyRules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category policy")
	}
	analyzer := pipeline.NewAnalyzer(nil, loadModel(ctx, *model, log), pol)

	for _, desc := range fs.Args() {
		color.New(color.BgWhite, color.FgBlack).Printf(" %-40s", desc)
		color.New(color.BgGreen, color.FgBlack).Printf(" %s ", analyzer.Categorize(desc))
		fmt.Println()
	}
}

func runAnalyze(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fs.String("file", "", "statement file (.pdf or text), local path or gs:// URI")
	locale := fs.String("locale", "ru", "ru, kz or en")
	asJSON := fs.Bool("json", false, "print the record as JSON")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Usage: cli analyze -file PATH [-locale ru|kz|en] [-json]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OracleTimeout+time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	data, err := gcsuploader.ReadObject(ctx, *file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement")
	}

	text := string(data)
	if strings.HasSuffix(strings.ToLower(*file), ".pdf") {
		if text, err = extractor.ExtractText(data); err != nil {
			log.Warn().Err(err).Msg("PDF text extraction failed")
			text = ""
		}
	}

	o, err := oracle.New(ctx, cfg.Oracle)
	if err != nil {
		log.Warn().Err(err).Msg("No oracle configured")
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
	res := analyzer.Analyze(ctx, text, domain.ParseLocale(*locale))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(res.Record)
		return
	}
	printResult(res)
}

func printResult(res pipeline.Result) {
	rec := res.Record
	if res.Fallback {
		color.New(color.BgRed, color.FgWhite).Printf(" FALLBACK ")
		fmt.Printf(" step=%s reason=%v\n", res.FailedStep, res.Reason)
	} else {
		color.New(color.BgGreen, color.FgBlack).Printf(" OK ")
		fmt.Printf(" recovery=%s\n", res.RecoveryStage)
	}
	fmt.Printf("\nTotal spent: %.2f   Forecast: %.2f\n\n", rec.TotalSpent, rec.ForecastNextMonth)

	for _, c := range rec.Categories {
		color.New(color.BgWhite, color.FgBlack).Printf(" %-30s", c.Name)
		color.New(color.BgYellow, color.FgBlack).Printf(" %12.2f ", c.Amount)
		color.New(color.BgBlue, color.FgWhite).Printf(" %5.1f%% ", c.Percent)
		fmt.Println()
	}
	if len(rec.Subscriptions) > 0 {
		fmt.Println("\nSubscriptions:")
		for _, s := range rec.Subscriptions {
			fmt.Printf("  %-30s %10.2f\n", s.Name, s.Cost)
		}
	}
	for _, v := range res.Violations {
		color.New(color.FgYellow).Printf("warning: %s\n", v)
	}
	if rec.Advice != "" {
		fmt.Printf("\n%s\n", rec.Advice)
	}
}

func runModel(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("model", flag.ExitOnError)
	model := fs.String("model", cfg.ModelPath, "model path or gs:// URI")
	explain := fs.String("explain", "", "show per-category scores for this description")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	m, err := categorizer.Load(ctx, *model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load model")
	}

	fmt.Printf("Model %s: %d categories, %d tokens in vocabulary\n\n", *model, len(m.Categories()), m.VocabularySize())
	for _, c := range m.Categories() {
		fmt.Printf("  %-30s prior=%.4f\n", c, m.Prior(c))
	}

	if *explain == "" {
		return
	}
	fmt.Printf("\nTokens: %s\n", strings.Join(categorizer.Tokenize(*explain), " "))
	for i, s := range m.Scores(*explain, true) {
		p := color.New(color.BgWhite, color.FgBlack)
		if i == 0 {
			p = color.New(color.BgGreen, color.FgBlack)
		}
		p.Printf(" %-30s %10.4f ", s.Category, s.LogScore)
		fmt.Println()
	}
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to local statement file")
	dest := fs.String("dest", "", "destination gs://bucket/object URI")
	fs.Parse(os.Args[2:])

	if *filePath == "" || !gcsuploader.IsGCSURI(*dest) {
		log.Fatal().Msg("Usage: cli upload -file PATH -dest gs://BUCKET/OBJECT")
	}

	ctx := logger.WithContext(context.Background(), log)
	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	contentType := "text/plain"
	if strings.HasSuffix(strings.ToLower(*filePath), ".pdf") {
		contentType = "application/pdf"
	}
	if err := gcsuploader.WriteObject(ctx, *dest, data, contentType); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, *dest)
}

func runRuns(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	since := fs.Duration("since", 24*time.Hour, "how far back to look")
	limit := fs.Int("limit", 20, "maximum rows")
	fs.Parse(os.Args[2:])

	if !cfg.AuditEnabled() {
		log.Fatal().Msg("AUDIT_PROJECT and AUDIT_DATASET must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewAuditRepository(ctx, cfg.AuditProject, cfg.AuditDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create audit repository")
	}
	defer repo.Close()

	rows, err := repo.ListRecentRuns(ctx, time.Now().Add(-*since), *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list runs")
	}

	for _, r := range rows {
		status := color.New(color.BgGreen, color.FgBlack)
		if r.Status == infraBQ.StatusFallback {
			status = color.New(color.BgRed, color.FgWhite)
		}
		color.New(color.BgYellow, color.FgBlack).Printf(" %s ", r.StartedTS.Format(time.RFC3339))
		status.Printf(" %-8s ", r.Status)
		fmt.Printf(" %s %s %s %s\n", r.RunID, r.Locale, r.FailedStep, r.RecoveryStage)
	}
	fmt.Printf("\n%d runs\n", len(rows))
}
