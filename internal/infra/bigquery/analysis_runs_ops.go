// Package bigquery stores analysis run audit rows in BigQuery.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/logger"
)

const analysisRunsTable = "analysis_runs"

// AuditRepository writes analysis runs to <project>.<dataset>.analysis_runs.
// It satisfies pipeline.AuditSink.
type AuditRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewAuditRepository creates a repository with its own BigQuery client.
func NewAuditRepository(ctx context.Context, projectID, datasetID string) (*AuditRepository, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("NewAuditRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewAuditRepository: creating client: %w", err)
	}
	return &AuditRepository{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (r *AuditRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *AuditRepository) table() *bigquery.Table {
	return r.client.DatasetInProject(r.projectID, r.datasetID).Table(analysisRunsTable)
}

// EnsureTable creates the analysis_runs table, partitioned by day on
// started_ts, unless it already exists.
func (r *AuditRepository) EnsureTable(ctx context.Context) error {
	schema, err := bigquery.InferSchema(AnalysisRunRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}

	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "started_ts",
		},
	}
	if err := r.table().Create(ctx, meta); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("EnsureTable: creating %s.%s: %w", r.datasetID, analysisRunsTable, err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("dataset", r.datasetID).
		Str("table", analysisRunsTable).
		Msg("Created audit table")
	return nil
}

// RecordRun streams one run into the table.
func (r *AuditRepository) RecordRun(ctx context.Context, run *domain.AnalysisRun) error {
	if run == nil || run.RunID == "" {
		return fmt.Errorf("RecordRun: run ID is required")
	}
	if err := r.table().Inserter().Put(ctx, RowFromRun(run)); err != nil {
		return fmt.Errorf("RecordRun: inserting run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRecentRuns returns the newest runs started after since, newest first.
func (r *AuditRepository) ListRecentRuns(ctx context.Context, since time.Time, limit int) ([]*AnalysisRunRow, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM `+"`%s.%s.%s`"+`
		WHERE started_ts >= @since
		ORDER BY started_ts DESC
		LIMIT @limit
	`, r.projectID, r.datasetID, analysisRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "since", Value: since},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: query read: %w", err)
	}

	var rows []*AnalysisRunRow
	for {
		var row AnalysisRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentRuns: iterating rows: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
