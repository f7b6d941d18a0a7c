// Package config reads service settings from the environment and an
// optional .env file. Real environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/funster-a/hackathon-backend/internal/oracle"
)

// DefaultEnvFile is read by Load when it exists.
const DefaultEnvFile = ".env"

// Config holds every setting the binaries share.
type Config struct {
	Port      string
	APIKey    string // empty disables API key checks
	LogLevel  string
	LogFormat string

	Oracle        oracle.Config
	OracleTimeout time.Duration

	MinTextLength  int      // shortest statement text sent to the oracle
	RecoveryStages []string // empty: the full repair chain

	ModelPath   string // local path or gs:// URI of the categorizer artifact
	PolicyRules string // local path or gs:// URI of extra merchant rules

	AuditProject string
	AuditDataset string

	JobsDB      string // bolt file; empty keeps jobs in memory
	JobWorkers  int
	JobCapacity int
}

// Load reads DefaultEnvFile if present, then the environment.
func Load() (Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile is Load with an explicit env file. A missing file is not an error.
func LoadFile(path string) (Config, error) {
	file := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			file = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	get := func(key, def string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		if v, ok := file[key]; ok && v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:      get("PORT", "8080"),
		APIKey:    get("API_KEY", ""),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "console"),
		Oracle: oracle.Config{
			Provider:        get("ORACLE_PROVIDER", oracle.ProviderGemini),
			GeminiAPIKey:    get("GEMINI_API_KEY", ""),
			GeminiModel:     get("GEMINI_MODEL", oracle.DefaultGeminiModel),
			AnthropicAPIKey: get("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  get("ANTHROPIC_MODEL", oracle.DefaultAnthropicModel),
		},
		ModelPath:    get("MODEL_PATH", "model.json"),
		PolicyRules:  get("POLICY_RULES", ""),
		AuditProject: get("AUDIT_PROJECT", ""),
		AuditDataset: get("AUDIT_DATASET", ""),
		JobsDB:       get("JOBS_DB", ""),
	}

	var err error
	if cfg.OracleTimeout, err = time.ParseDuration(get("ORACLE_TIMEOUT", "60s")); err != nil {
		return Config{}, fmt.Errorf("config: ORACLE_TIMEOUT: %w", err)
	}
	if cfg.MinTextLength, err = strconv.Atoi(get("MIN_TEXT_LENGTH", "50")); err != nil || cfg.MinTextLength < 0 {
		return Config{}, fmt.Errorf("config: MIN_TEXT_LENGTH must be a non-negative integer")
	}
	if stages := get("RECOVERY_STAGES", ""); stages != "" {
		for _, st := range strings.Split(stages, ",") {
			if st = strings.TrimSpace(st); st != "" {
				cfg.RecoveryStages = append(cfg.RecoveryStages, st)
			}
		}
	}
	if cfg.JobWorkers, err = strconv.Atoi(get("JOB_WORKERS", "5")); err != nil || cfg.JobWorkers < 1 {
		return Config{}, fmt.Errorf("config: JOB_WORKERS must be a positive integer")
	}
	if cfg.JobCapacity, err = strconv.Atoi(get("JOB_QUEUE_CAPACITY", "100")); err != nil || cfg.JobCapacity < 1 {
		return Config{}, fmt.Errorf("config: JOB_QUEUE_CAPACITY must be a positive integer")
	}
	return cfg, nil
}

// AuditEnabled reports whether analysis runs should be written to BigQuery.
func (c Config) AuditEnabled() bool {
	return c.AuditProject != "" && c.AuditDataset != ""
}
