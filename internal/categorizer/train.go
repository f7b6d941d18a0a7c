package categorizer

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInsufficientData is returned by Train when the dataset has no expense
// records or no usable tokens.
var ErrInsufficientData = errors.New("categorizer: insufficient training data")

// Record is one labelled transaction. Negative amounts are expenses.
type Record struct {
	Amount      float64
	Description string
	Category    string
}

// Stats summarises a training run.
type Stats struct {
	Documents  int
	Skipped    int
	Categories int
	Vocabulary int
}

// Train builds a Laplace-smoothed model from records. Records with
// amount >= 0 are incoming funds and are skipped.
func Train(records []Record) (*Model, Stats, error) {
	var (
		stats       Stats
		order       []string
		docCounts   = make(map[string]int)
		tokenCounts = make(map[string]map[string]int)
		tokenTotals = make(map[string]int)
		vocabulary  = make(map[string]struct{})
	)

	for _, rec := range records {
		category := strings.TrimSpace(rec.Category)
		if rec.Amount >= 0 || category == "" {
			stats.Skipped++
			continue
		}
		if _, seen := docCounts[category]; !seen {
			order = append(order, category)
			tokenCounts[category] = make(map[string]int)
		}
		docCounts[category]++
		stats.Documents++

		for tok := range Tokens(rec.Description) {
			tokenCounts[category][tok]++
			tokenTotals[category]++
			vocabulary[tok] = struct{}{}
		}
	}

	if stats.Documents == 0 {
		return nil, stats, errors.Wrap(ErrInsufficientData, "no expense records")
	}
	if len(vocabulary) == 0 {
		return nil, stats, errors.Wrap(ErrInsufficientData, "empty vocabulary")
	}

	m := &Model{
		categories:        order,
		priors:            make(map[string]float64, len(order)),
		likelihoods:       make(map[string]map[string]float64, len(order)),
		defaultLikelihood: make(map[string]float64, len(order)),
		vocabulary:        vocabulary,
	}

	v := float64(len(vocabulary))
	for _, c := range order {
		m.priors[c] = float64(docCounts[c]) / float64(stats.Documents)

		denom := float64(tokenTotals[c]) + v
		m.likelihoods[c] = make(map[string]float64, len(tokenCounts[c]))
		for tok, n := range tokenCounts[c] {
			m.likelihoods[c][tok] = float64(n+1) / denom
		}
		m.defaultLikelihood[c] = 1 / denom
	}

	stats.Categories = len(order)
	stats.Vocabulary = len(vocabulary)
	return m, stats, nil
}
