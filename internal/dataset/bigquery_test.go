package dataset

import (
	"testing"

	"cloud.google.com/go/bigquery"

	"github.com/funster-a/hackathon-backend/internal/categorizer"
)

func TestTrainingQuery(t *testing.T) {
	tests := []struct {
		table   string
		want    string
		wantErr bool
	}{
		{table: "finance.labelled", want: "SELECT amount, description, category FROM `finance.labelled`"},
		{table: "my-proj.finance.labelled", want: "SELECT amount, description, category FROM `my-proj.finance.labelled`"},
		{table: "labelled", wantErr: true},
		{table: "finance.labelled; DROP TABLE x", wantErr: true},
		{table: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			got, err := TrainingQuery(tt.table)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TrainingQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("TrainingQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLabelledRowRecord(t *testing.T) {
	row := labelledRow{
		Amount:      bigquery.NullFloat64{Float64: -2500, Valid: true},
		Description: bigquery.NullString{StringVal: "Magnum", Valid: true},
		Category:    bigquery.NullString{StringVal: "Groceries", Valid: true},
	}
	got, ok := row.record()
	if !ok || got != (categorizer.Record{Amount: -2500, Description: "Magnum", Category: "Groceries"}) {
		t.Errorf("record() = %+v, %v", got, ok)
	}

	row.Category.Valid = false
	if _, ok := row.record(); ok {
		t.Error("record() accepted a NULL category")
	}
}
