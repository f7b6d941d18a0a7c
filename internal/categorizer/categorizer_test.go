package categorizer

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func exampleRecords() []Record {
	return []Record{
		{Amount: -1500, Description: "Magnum", Category: "Products"},
		{Amount: -850, Description: "Yandex Go", Category: "Taxi"},
		{Amount: 2000, Description: "Salary", Category: "Income"},
	}
}

func mustTrain(t *testing.T, records []Record) *Model {
	t.Helper()
	m, _, err := Train(records)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return m
}

func TestTrain_Probabilities(t *testing.T) {
	m, stats, err := Train(exampleRecords())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	want := Stats{Documents: 2, Skipped: 1, Categories: 2, Vocabulary: 3}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Products", "Taxi"}, m.Categories()); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}

	approx := func(name string, got, want float64) {
		t.Helper()
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	approx("prior[Products]", m.Prior("Products"), 0.5)
	approx("prior[Taxi]", m.Prior("Taxi"), 0.5)
	// |V| = 3 (magnum, yandex, go); Products has 1 token, Taxi has 2.
	approx("likelihood[Products][magnum]", m.likelihoods["Products"]["magnum"], 2.0/4.0)
	approx("default[Products]", m.defaultLikelihood["Products"], 1.0/4.0)
	approx("likelihood[Taxi][yandex]", m.likelihoods["Taxi"]["yandex"], 2.0/5.0)
	approx("default[Taxi]", m.defaultLikelihood["Taxi"], 1.0/5.0)

	if m.Prior("Income") != 0 {
		t.Errorf("income records must be filtered out")
	}
}

func TestTrain_InsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
	}{
		{"empty", nil},
		{"only income", []Record{{Amount: 2000, Description: "Salary", Category: "Income"}}},
		{"zero amount", []Record{{Amount: 0, Description: "Refund", Category: "Other"}}},
		{"no tokens", []Record{{Amount: -10, Description: "1234 !!", Category: "Other"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, err := Train(tt.records)
			if !errors.Is(err, ErrInsufficientData) {
				t.Errorf("Train() error = %v, want ErrInsufficientData", err)
			}
			if m != nil {
				t.Errorf("Train() returned a model on failure")
			}
		})
	}
}

func TestClassify_EndToEnd(t *testing.T) {
	m := mustTrain(t, exampleRecords())

	tests := []struct {
		description string
		want        string
	}{
		{"Magnum Mega", "Products"},
		{"YANDEX GO 12.03", "Taxi"},
		{"Glovo", "Products"}, // unseen: smaller Products denominator wins
		{"", "Products"},      // highest prior, tie broken by order
		{"12345 ₸", "Products"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := m.Classify(tt.description); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	records := []Record{
		{Amount: -100, Description: "Spotify", Category: "Subscriptions"},
		{Amount: -200, Description: "Netflix", Category: "Subscriptions"},
		{Amount: -300, Description: "Magnum", Category: "Products"},
		{Amount: -400, Description: "Small", Category: "Products"},
	}
	m1 := mustTrain(t, records)
	m2 := mustTrain(t, records)

	for _, d := range []string{"Spotify Family", "Magnum Small", "unknown merchant", ""} {
		first := m1.Classify(d)
		if second := m1.Classify(d); second != first {
			t.Errorf("Classify(%q) not stable: %q then %q", d, first, second)
		}
		if other := m2.Classify(d); other != first {
			t.Errorf("Classify(%q) differs between identical models: %q vs %q", d, first, other)
		}
	}
}

func TestClassify_ZeroTokensUsesHighestPrior(t *testing.T) {
	m := mustTrain(t, []Record{
		{Amount: -1, Description: "Uber", Category: "Taxi"},
		{Amount: -1, Description: "Magnum", Category: "Products"},
		{Amount: -1, Description: "Small", Category: "Products"},
	})
	if got := m.Classify("!!! 42"); got != "Products" {
		t.Errorf("Classify() = %q, want Products", got)
	}
}

func TestScores_Sorted(t *testing.T) {
	m := mustTrain(t, exampleRecords())
	scores := m.Scores("yandex", true)
	if len(scores) != 2 || scores[0].Category != "Taxi" {
		t.Fatalf("Scores() = %+v, want Taxi first", scores)
	}
	if scores[0].LogScore < scores[1].LogScore {
		t.Errorf("Scores() not sorted: %+v", scores)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	m := mustTrain(t, exampleRecords())
	location := filepath.Join(t.TempDir(), "models", "expense_classifier.json")

	if err := Save(context.Background(), m, location); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(context.Background(), location)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff(m.Categories(), loaded.Categories()); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	for _, d := range []string{"Magnum Mega", "Yandex Go", "Glovo", ""} {
		if got, want := loaded.Classify(d), m.Classify(d); got != want {
			t.Errorf("loaded.Classify(%q) = %q, want %q", d, got, want)
		}
	}
}

func TestDecode_LegacyArtifact(t *testing.T) {
	legacy := []byte(`{
		"category_priors": {"Taxi": 0.5, "Products": 0.5},
		"token_likelihoods": {"Taxi": {"uber": 0.5}, "Products": {"magnum": 0.5}},
		"default_likelihood": {"Taxi": 0.25, "Products": 0.25},
		"vocabulary": ["uber", "magnum"]
	}`)

	m, err := Decode(legacy)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Products", "Taxi"}, m.Categories()); diff != "" {
		t.Errorf("legacy order mismatch (-want +got):\n%s", diff)
	}
	if got := m.Classify("UBER trip"); got != "Taxi" {
		t.Errorf("Classify() = %q, want Taxi", got)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for name, data := range map[string]string{
		"not json":      `{`,
		"no categories": `{"category_priors": {}}`,
		"no default":    `{"category_priors": {"A": 1}, "default_likelihood": {}}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(data)); err == nil {
				t.Errorf("Decode(%s) succeeded, want error", data)
			}
		})
	}
}
