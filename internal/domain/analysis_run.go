package domain

import "time"

// AnalysisRun describes one pass of a statement through the analysis
// pipeline. It is written to the audit store.
type AnalysisRun struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Locale        Locale
	Oracle        string
	TextLength    int
	FailedStep    string // empty on success
	Fallback      bool
	Reason        string
	RecoveryStage string
	RawSnippet    string
	Categories    int
	Transactions  int
	Violations    []string
}
