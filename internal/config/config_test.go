package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "ORACLE_PROVIDER", "ORACLE_TIMEOUT", "JOBS_DB", "JOB_WORKERS", "AUDIT_PROJECT", "AUDIT_DATASET", "MIN_TEXT_LENGTH", "RECOVERY_STAGES"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.Oracle.Provider != "gemini" || cfg.OracleTimeout != 60*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.JobWorkers != 5 || cfg.JobsDB != "" || cfg.AuditEnabled() {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.MinTextLength != 50 || cfg.RecoveryStages != nil {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile_AnalyzerTuning(t *testing.T) {
	t.Setenv("MIN_TEXT_LENGTH", "10")
	t.Setenv("RECOVERY_STAGES", "direct, truncation,")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.MinTextLength != 10 {
		t.Errorf("MinTextLength = %d, want 10", cfg.MinTextLength)
	}
	if len(cfg.RecoveryStages) != 2 || cfg.RecoveryStages[0] != "direct" || cfg.RecoveryStages[1] != "truncation" {
		t.Errorf("RecoveryStages = %q", cfg.RecoveryStages)
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "PORT=9000\nORACLE_PROVIDER=anthropic\nANTHROPIC_API_KEY=sk-file\nORACLE_TIMEOUT=15s\n" +
		"AUDIT_PROJECT=proj\nAUDIT_DATASET=hackathon\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ORACLE_TIMEOUT", "")
	t.Setenv("ORACLE_PROVIDER", "")
	t.Setenv("AUDIT_PROJECT", "")
	t.Setenv("AUDIT_DATASET", "")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("Port = %q, want env value 7000", cfg.Port)
	}
	if cfg.Oracle.Provider != "anthropic" || cfg.Oracle.AnthropicAPIKey != "sk-file" {
		t.Errorf("Oracle = %+v", cfg.Oracle)
	}
	if cfg.OracleTimeout != 15*time.Second {
		t.Errorf("OracleTimeout = %v", cfg.OracleTimeout)
	}
	if !cfg.AuditEnabled() {
		t.Error("AuditEnabled() = false")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Setenv("ORACLE_TIMEOUT", "soon")
	if _, err := LoadFile(""); err == nil {
		t.Error("LoadFile() accepted ORACLE_TIMEOUT=soon")
	}

	t.Setenv("ORACLE_TIMEOUT", "")
	t.Setenv("JOB_WORKERS", "0")
	if _, err := LoadFile(""); err == nil {
		t.Error("LoadFile() accepted JOB_WORKERS=0")
	}

	t.Setenv("JOB_WORKERS", "")
	t.Setenv("MIN_TEXT_LENGTH", "-1")
	if _, err := LoadFile(""); err == nil {
		t.Error("LoadFile() accepted MIN_TEXT_LENGTH=-1")
	}
}
