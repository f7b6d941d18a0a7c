// Package dataset reads labelled transactions for training the categorizer.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/funster-a/hackathon-backend/internal/categorizer"
	"github.com/funster-a/hackathon-backend/internal/domain"
)

// Required CSV columns. Extra columns are ignored.
const (
	ColumnAmount      = "amount"
	ColumnDescription = "description"
	ColumnCategory    = "category"
)

// ReadCSV parses a header-prefixed CSV of labelled transactions.
// Amounts are read with domain.ParseAmount, so statement formatting such as
// "- 1 500,00" is accepted.
func ReadCSV(r io.Reader) ([]categorizer.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("ReadCSV: empty input")
		}
		return nil, fmt.Errorf("ReadCSV: reading header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range []string{ColumnAmount, ColumnDescription, ColumnCategory} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("ReadCSV: missing required column %q", col)
		}
	}

	var records []categorizer.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: line %d: %w", line, err)
		}

		amountText, ok := field(row, idx[ColumnAmount])
		if !ok {
			return nil, fmt.Errorf("ReadCSV: line %d: missing amount", line)
		}
		amount, err := domain.ParseAmount(amountText)
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: line %d: %w", line, err)
		}
		description, _ := field(row, idx[ColumnDescription])
		category, _ := field(row, idx[ColumnCategory])

		records = append(records, categorizer.Record{
			Amount:      amount,
			Description: description,
			Category:    category,
		})
	}
	return records, nil
}

func field(row []string, i int) (string, bool) {
	if i >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[i])
	return v, v != ""
}
