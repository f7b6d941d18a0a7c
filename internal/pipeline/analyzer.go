package pipeline

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/funster-a/hackathon-backend/internal/config"
	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/logger"
	"github.com/funster-a/hackathon-backend/internal/oracle"
	"github.com/funster-a/hackathon-backend/internal/policy"
	"github.com/funster-a/hackathon-backend/internal/recovery"
)

// Classifier assigns a category to a transaction description.
// *categorizer.Model satisfies it.
type Classifier interface {
	Classify(description string) string
}

// AuditSink stores a record of every analysis run.
type AuditSink interface {
	RecordRun(ctx context.Context, run *domain.AnalysisRun) error
}

// Result is the outcome of one analysis.
type Result struct {
	RunID         string
	Record        *domain.FinancialRecord
	Fallback      bool
	Reason        error // why the fallback was served; nil otherwise
	FailedStep    string
	RecoveryStage string
	Dropped       []DroppedTransaction
	Violations    []Violation
}

// Analyzer turns statement text into a FinancialRecord. It holds no mutable
// state and is safe for concurrent use.
type Analyzer struct {
	oracle        oracle.Oracle
	model         Classifier
	policy        *policy.Policy
	engine        *recovery.Engine
	audit         AuditSink
	timeout       time.Duration
	minTextLength int
	pipeline      *Pipeline
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTimeout bounds each oracle call. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithAuditSink records every run to sink.
func WithAuditSink(sink AuditSink) Option {
	return func(a *Analyzer) { a.audit = sink }
}

// WithEngine replaces the default recovery engine.
func WithEngine(e *recovery.Engine) Option {
	return func(a *Analyzer) { a.engine = e }
}

// WithMinTextLength changes the shortest text sent to the oracle.
func WithMinTextLength(n int) Option {
	return func(a *Analyzer) { a.minTextLength = n }
}

// OptionsFromConfig returns the analyzer options selected by cfg.
func OptionsFromConfig(cfg config.Config) ([]Option, error) {
	opts := []Option{
		WithTimeout(cfg.OracleTimeout),
		WithMinTextLength(cfg.MinTextLength),
	}
	if len(cfg.RecoveryStages) > 0 {
		stages, err := recovery.StagesByName(cfg.RecoveryStages...)
		if err != nil {
			return nil, fmt.Errorf("OptionsFromConfig: %w", err)
		}
		opts = append(opts, WithEngine(recovery.NewEngine(stages...)))
	}
	return opts, nil
}

// NewAnalyzer wires an analyzer. model may be nil, in which case Categorize
// relies on policy keywords alone. A nil policy means policy.Default().
func NewAnalyzer(o oracle.Oracle, model Classifier, p *policy.Policy, opts ...Option) *Analyzer {
	if p == nil {
		p = policy.Default()
	}
	a := &Analyzer{
		oracle:        o,
		model:         model,
		policy:        p,
		engine:        recovery.NewEngine(),
		timeout:       DefaultOracleTimeout,
		minTextLength: MinTextLength,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.pipeline = NewPipeline(
		&CheckLengthStep{MinLength: a.minTextLength},
		&CallOracleStep{Oracle: o, SystemPrompt: BuildSystemPrompt(p), Timeout: a.timeout},
		&SanitizeStep{},
		&RecoverStep{Engine: a.engine},
		&ValidateStep{},
		&PolicyStep{Policy: p},
		&ConsistencyStep{},
	)
	return a
}

// Policy returns the category policy in use.
func (a *Analyzer) Policy() *policy.Policy { return a.policy }

// Oracle returns the configured oracle, which may be nil.
func (a *Analyzer) Oracle() oracle.Oracle { return a.oracle }

// AnalyzeStatementText returns the record for text, or the fallback record
// when analysis fails. It never returns nil.
func (a *Analyzer) AnalyzeStatementText(ctx context.Context, text string, locale domain.Locale) *domain.FinancialRecord {
	return a.Analyze(ctx, text, locale).Record
}

// Analyze is AnalyzeStatementText with diagnostics.
func (a *Analyzer) Analyze(ctx context.Context, text string, locale domain.Locale) Result {
	started := time.Now().UTC()
	runID := uuid.NewString()

	log := logger.FromContext(ctx).With().
		Str("run_id", runID).
		Str("locale", string(locale)).
		Logger()
	ctx = logger.WithContext(ctx, log)

	state := &AnalysisState{RunID: runID, Text: text, Locale: locale}
	err := a.execute(ctx, state)

	res := Result{
		RunID:         runID,
		RecoveryStage: state.RecoveryStage,
		Dropped:       state.Dropped,
		Violations:    state.Violations,
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("stage", state.Stage).
			Str("raw_snippet", snippet(state.RawReply)).
			Msg("Analysis failed, serving fallback record")
		res.Record = a.policy.Apply(FallbackRecord(), locale)
		res.Fallback = true
		res.Reason = err
		res.FailedStep = state.Stage
	} else {
		res.Record = state.Record
		log.Info().
			Str("recovery_stage", state.RecoveryStage).
			Int("categories", len(res.Record.Categories)).
			Int("transactions", len(res.Record.Transactions)).
			Msg("Analysis completed")
	}
	res.Record.EnsureLists()

	if a.audit != nil {
		a.recordRun(ctx, state, res, started, utf8.RuneCountInString(text))
	}
	return res
}

// execute runs the pipeline, turning a panic in any step into ErrStepPanic.
func (a *Analyzer) execute(ctx context.Context, state *AnalysisState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log := logger.FromContext(ctx)
			log.Error().
				Interface("panic", r).
				Str("stage", state.Stage).
				Str("raw_snippet", snippet(state.RawReply)).
				Msg("Analysis step panicked")
			err = fmt.Errorf("%w: %s: %v", ErrStepPanic, state.Stage, r)
		}
	}()
	return a.pipeline.Execute(ctx, state)
}

func (a *Analyzer) recordRun(ctx context.Context, state *AnalysisState, res Result, started time.Time, textLen int) {
	run := &domain.AnalysisRun{
		RunID:         res.RunID,
		StartedAt:     started,
		FinishedAt:    time.Now().UTC(),
		Locale:        state.Locale,
		TextLength:    textLen,
		FailedStep:    res.FailedStep,
		Fallback:      res.Fallback,
		RecoveryStage: res.RecoveryStage,
		RawSnippet:    snippet(state.RawReply),
		Categories:    len(res.Record.Categories),
		Transactions:  len(res.Record.Transactions),
	}
	if a.oracle != nil {
		run.Oracle = a.oracle.Name()
	}
	if res.Reason != nil {
		run.Reason = res.Reason.Error()
	}
	for _, v := range res.Violations {
		run.Violations = append(run.Violations, v.String())
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := a.audit.RecordRun(auditCtx, run); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to record analysis run")
	}
}

// Categorize assigns a category to one transaction description: the trained
// model when there is one, else the policy's merchant keywords, else Other.
func (a *Analyzer) Categorize(description string) string {
	if a.model != nil {
		return a.model.Classify(description)
	}
	if kind, ok := a.policy.MatchMerchant(description); ok {
		return kind.Name(domain.LocaleEN)
	}
	return OtherCategory
}

func snippet(s string) string {
	return truncateRunes(s, SnippetLength)
}
