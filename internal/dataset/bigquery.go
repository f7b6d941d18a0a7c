package dataset

import (
	"context"
	"fmt"
	"regexp"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/funster-a/hackathon-backend/internal/categorizer"
)

var tableRef = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+){1,2}$`)

type labelledRow struct {
	Amount      bigquery.NullFloat64 `bigquery:"amount"`
	Description bigquery.NullString  `bigquery:"description"`
	Category    bigquery.NullString  `bigquery:"category"`
}

// TrainingQuery returns the SELECT used to read labelled rows from table,
// given as dataset.table or project.dataset.table.
func TrainingQuery(table string) (string, error) {
	if !tableRef.MatchString(table) {
		return "", fmt.Errorf("TrainingQuery: invalid table reference %q", table)
	}
	return fmt.Sprintf("SELECT amount, description, category FROM `%s`", table), nil
}

// ReadBigQuery reads labelled transactions from a BigQuery table with
// amount, description and category columns. Rows with a NULL in any of them
// are skipped.
func ReadBigQuery(ctx context.Context, client *bigquery.Client, table string) ([]categorizer.Record, error) {
	sql, err := TrainingQuery(table)
	if err != nil {
		return nil, err
	}

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadBigQuery: query read: %w", err)
	}

	var records []categorizer.Record
	for {
		var row labelledRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadBigQuery: iterating rows: %w", err)
		}
		if r, ok := row.record(); ok {
			records = append(records, r)
		}
	}
	return records, nil
}

func (row labelledRow) record() (categorizer.Record, bool) {
	if !row.Amount.Valid || !row.Description.Valid || !row.Category.Valid {
		return categorizer.Record{}, false
	}
	return categorizer.Record{
		Amount:      row.Amount.Float64,
		Description: row.Description.StringVal,
		Category:    row.Category.StringVal,
	}, true
}
