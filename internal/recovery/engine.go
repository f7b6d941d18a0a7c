package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/funster-a/hackathon-backend/internal/logger"
)

// ErrUnrecoverable is returned when no stage produced parseable JSON.
var ErrUnrecoverable = errors.New("recovery: response is not recoverable JSON")

// Stage names of DefaultStages, in order.
const (
	StageDirect     = "direct"
	StageWhitespace = "whitespace"
	StageReextract  = "reextract"
	StageTruncation = "truncation"
)

// Stage is one repair step. Rewrite must be total: it never fails, at worst
// it returns its input unchanged.
type Stage struct {
	Name    string
	Rewrite func(string) string
}

// Result is the outcome of a successful recovery.
type Result struct {
	Value any    // decoded JSON value
	Stage string // name of the stage whose output parsed
	Text  string // the text that parsed
}

// Engine runs stages in order. Each stage rewrites the output of the
// previous one, so later stages see every earlier repair.
type Engine struct {
	stages []Stage
}

// NewEngine builds an engine from stages. With no stages it uses DefaultStages.
func NewEngine(stages ...Stage) *Engine {
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	return &Engine{stages: stages}
}

// DefaultStages returns the standard repair chain.
func DefaultStages() []Stage {
	return []Stage{
		{Name: StageDirect, Rewrite: func(s string) string { return s }},
		{Name: StageWhitespace, Rewrite: RepairWhitespace},
		{Name: StageReextract, Rewrite: braceSpan},
		{Name: StageTruncation, Rewrite: RepairTruncation},
	}
}

// StagesByName picks stages from DefaultStages, in the order given.
func StagesByName(names ...string) ([]Stage, error) {
	byName := make(map[string]Stage)
	for _, st := range DefaultStages() {
		byName[st.Name] = st
	}
	out := make([]Stage, 0, len(names))
	for _, n := range names {
		st, ok := byName[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("recovery: unknown stage %q", n)
		}
		out = append(out, st)
	}
	return out, nil
}

// Stages returns the names of the configured stages.
func (e *Engine) Stages() []string {
	names := make([]string, len(e.stages))
	for i, st := range e.stages {
		names[i] = st.Name
	}
	return names
}

// Recover parses text, applying repair stages until one parses.
func (e *Engine) Recover(ctx context.Context, text string) (Result, error) {
	log := logger.FromContext(ctx)

	current := text
	var lastErr error
	for _, st := range e.stages {
		current = st.Rewrite(current)

		var v any
		if err := json.Unmarshal([]byte(current), &v); err != nil {
			lastErr = err
			log.Debug().
				Str("stage", st.Name).
				Err(err).
				Msg("Recovery stage did not produce valid JSON")
			continue
		}
		return Result{Value: v, Stage: st.Name, Text: current}, nil
	}

	if lastErr == nil {
		return Result{}, ErrUnrecoverable
	}
	return Result{}, fmt.Errorf("%w: %w", ErrUnrecoverable, lastErr)
}
