package categorizer

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/funster-a/hackathon-backend/internal/gcsuploader"
	"github.com/pkg/errors"
)

// artifact is the persisted form of a Model. The first four keys match the
// JSON written by the original Python trainer, so its models load as well.
type artifact struct {
	CategoryPriors    map[string]float64            `json:"category_priors"`
	TokenLikelihoods  map[string]map[string]float64 `json:"token_likelihoods"`
	DefaultLikelihood map[string]float64            `json:"default_likelihood"`
	Vocabulary        []string                      `json:"vocabulary"`
	Categories        []string                      `json:"categories,omitempty"`
}

// MarshalJSON encodes the model artifact.
func (m *Model) MarshalJSON() ([]byte, error) {
	vocab := make([]string, 0, len(m.vocabulary))
	for tok := range m.vocabulary {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)

	return json.Marshal(artifact{
		CategoryPriors:    m.priors,
		TokenLikelihoods:  m.likelihoods,
		DefaultLikelihood: m.defaultLikelihood,
		Vocabulary:        vocab,
		Categories:        m.categories,
	})
}

// Decode builds a Model from artifact bytes.
func Decode(data []byte) (*Model, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "decode model artifact")
	}
	if len(a.CategoryPriors) == 0 {
		return nil, errors.New("decode model artifact: no categories")
	}

	order := a.Categories
	if len(order) == 0 {
		// Artifacts without an explicit order tie-break alphabetically.
		for c := range a.CategoryPriors {
			order = append(order, c)
		}
		sort.Strings(order)
	}

	m := &Model{
		categories:        make([]string, 0, len(order)),
		priors:            a.CategoryPriors,
		likelihoods:       a.TokenLikelihoods,
		defaultLikelihood: a.DefaultLikelihood,
		vocabulary:        make(map[string]struct{}, len(a.Vocabulary)),
	}
	if m.likelihoods == nil {
		m.likelihoods = make(map[string]map[string]float64)
	}
	for _, c := range order {
		if _, ok := a.CategoryPriors[c]; !ok {
			return nil, errors.Errorf("decode model artifact: category %q has no prior", c)
		}
		if a.DefaultLikelihood[c] <= 0 {
			return nil, errors.Errorf("decode model artifact: category %q has no default likelihood", c)
		}
		m.categories = append(m.categories, c)
	}
	for _, tok := range a.Vocabulary {
		m.vocabulary[tok] = struct{}{}
	}
	return m, nil
}

// Save writes the model to a local path or a gs://bucket/object URI.
func Save(ctx context.Context, m *Model, location string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode model artifact")
	}
	if err := gcsuploader.WriteObject(ctx, location, data, "application/json"); err != nil {
		return errors.Wrapf(err, "save model to %s", location)
	}
	return nil
}

// Load reads a model from a local path or a gs://bucket/object URI.
func Load(ctx context.Context, location string) (*Model, error) {
	data, err := gcsuploader.ReadObject(ctx, location)
	if err != nil {
		return nil, errors.Wrapf(err, "load model from %s", location)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load model from %s", location)
	}
	return m, nil
}
