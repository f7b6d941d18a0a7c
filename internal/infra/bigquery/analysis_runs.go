package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/funster-a/hackathon-backend/internal/domain"
)

// Run statuses stored in the status column.
const (
	StatusSuccess  = "SUCCESS"
	StatusFallback = "FALLBACK"
)

const maxReasonLen = 2000

// AnalysisRunRow is one row of the analysis_runs table.
type AnalysisRunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Locale string `bigquery:"locale"`
	Oracle string `bigquery:"oracle"` // NULLABLE

	Status        string `bigquery:"status"`
	FailedStep    string `bigquery:"failed_step"`    // NULLABLE
	ErrorMessage  string `bigquery:"error_message"`  // NULLABLE
	RecoveryStage string `bigquery:"recovery_stage"` // NULLABLE

	TextLength       int64 `bigquery:"text_length"`
	CategoryCount    int64 `bigquery:"category_count"`
	TransactionCount int64 `bigquery:"transaction_count"`

	RawSnippet string   `bigquery:"raw_snippet"` // NULLABLE
	Violations []string `bigquery:"violations"`  // REPEATED
}

// RowFromRun converts a pipeline run into its table representation.
func RowFromRun(run *domain.AnalysisRun) *AnalysisRunRow {
	row := &AnalysisRunRow{
		RunID:            run.RunID,
		StartedTS:        run.StartedAt,
		Locale:           string(run.Locale),
		Oracle:           run.Oracle,
		Status:           StatusSuccess,
		FailedStep:       run.FailedStep,
		ErrorMessage:     run.Reason,
		RecoveryStage:    run.RecoveryStage,
		TextLength:       int64(run.TextLength),
		CategoryCount:    int64(run.Categories),
		TransactionCount: int64(run.Transactions),
		RawSnippet:       run.RawSnippet,
		Violations:       append([]string{}, run.Violations...),
	}
	if run.Fallback {
		row.Status = StatusFallback
	}
	if !run.FinishedAt.IsZero() {
		row.FinishedTS = bigquery.NullTimestamp{Timestamp: run.FinishedAt, Valid: true}
	}
	if len(row.ErrorMessage) > maxReasonLen {
		row.ErrorMessage = row.ErrorMessage[:maxReasonLen]
	}
	return row
}
