package categorizer

import (
	"math"
	"sort"
)

// Model is a trained multinomial naive Bayes classifier over transaction
// descriptions. A Model is immutable once built and safe for concurrent use.
type Model struct {
	categories        []string // first-seen order, used for tie-breaking
	priors            map[string]float64
	likelihoods       map[string]map[string]float64
	defaultLikelihood map[string]float64
	vocabulary        map[string]struct{}
}

// Score is the log score of one category for a description.
type Score struct {
	Category string
	LogScore float64
}

// Categories returns the model's categories in tie-break order.
func (m *Model) Categories() []string {
	return append([]string(nil), m.categories...)
}

// Prior returns the prior probability of category c.
func (m *Model) Prior(c string) float64 {
	return m.priors[c]
}

// VocabularySize returns the number of distinct training tokens.
func (m *Model) VocabularySize() int {
	return len(m.vocabulary)
}

// Classify returns the most likely category for description. Descriptions
// without any recognisable token get the category with the highest prior.
// Ties go to the category that appears first in the model.
func (m *Model) Classify(description string) string {
	tokens := Tokenize(description)
	if len(tokens) == 0 {
		return m.topPrior()
	}

	best := ""
	bestScore := math.Inf(-1)
	for _, s := range m.score(tokens) {
		if best == "" || s.LogScore > bestScore {
			best, bestScore = s.Category, s.LogScore
		}
	}
	return best
}

// Scores returns the log score of every category for description, in model
// order, highest first when sorted is true.
func (m *Model) Scores(description string, sorted bool) []Score {
	scores := m.score(Tokenize(description))
	if sorted {
		sort.SliceStable(scores, func(i, j int) bool {
			return scores[i].LogScore > scores[j].LogScore
		})
	}
	return scores
}

func (m *Model) score(tokens []string) []Score {
	scores := make([]Score, 0, len(m.categories))
	for _, c := range m.categories {
		s := math.Log(m.priors[c])
		for _, tok := range tokens {
			s += math.Log(m.likelihood(c, tok))
		}
		scores = append(scores, Score{Category: c, LogScore: s})
	}
	return scores
}

func (m *Model) likelihood(c, tok string) float64 {
	if _, known := m.vocabulary[tok]; known {
		if p, ok := m.likelihoods[c][tok]; ok {
			return p
		}
	}
	return m.defaultLikelihood[c]
}

func (m *Model) topPrior() string {
	best := ""
	for _, c := range m.categories {
		if best == "" || m.priors[c] > m.priors[best] {
			best = c
		}
	}
	return best
}
