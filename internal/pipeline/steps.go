package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/logger"
	"github.com/funster-a/hackathon-backend/internal/oracle"
	"github.com/funster-a/hackathon-backend/internal/policy"
	"github.com/funster-a/hackathon-backend/internal/recovery"
)

// Step is a single stage of statement analysis.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *AnalysisState) error
}

// AnalysisState holds the shared state across all steps.
type AnalysisState struct {
	RunID  string
	Text   string
	Locale domain.Locale

	Stage         string // step currently running, or the one that failed
	RawReply      string
	Candidate     string
	RecoveryStage string
	Value         any
	Record        *domain.FinancialRecord
	Dropped       []DroppedTransaction
	Violations    []Violation
}

// Step names.
const (
	StepCheckLength = "check_length"
	StepCallOracle  = "call_oracle"
	StepSanitize    = "sanitize"
	StepRecover     = "recover"
	StepValidate    = "validate"
	StepPolicy      = "policy"
	StepConsistency = "consistency"
)

// CheckLengthStep short-circuits analysis of text that is too short.
type CheckLengthStep struct {
	MinLength int
}

func (s *CheckLengthStep) Name() string { return StepCheckLength }

func (s *CheckLengthStep) Execute(ctx context.Context, state *AnalysisState) error {
	n := utf8.RuneCountInString(strings.TrimSpace(state.Text))
	if n < s.MinLength {
		return fmt.Errorf("%w: %d characters, need %d", ErrExtractionTooShort, n, s.MinLength)
	}
	return nil
}

// CallOracleStep sends the statement to the oracle. It makes one attempt
// bounded by Timeout.
type CallOracleStep struct {
	Oracle       oracle.Oracle
	SystemPrompt string
	Timeout      time.Duration
}

func (s *CallOracleStep) Name() string { return StepCallOracle }

func (s *CallOracleStep) Execute(ctx context.Context, state *AnalysisState) error {
	if s.Oracle == nil {
		return fmt.Errorf("%w: no oracle configured", ErrOracleUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.Oracle.Complete(callCtx, oracle.Request{
		System:      s.SystemPrompt,
		Prompt:      BuildUserPrompt(state.Text),
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	})
	if err != nil {
		if !errors.Is(err, ErrOracleUnavailable) {
			err = fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
		}
		return err
	}
	if strings.TrimSpace(reply) == "" {
		return fmt.Errorf("%w: %w", ErrOracleUnavailable, oracle.ErrEmptyResponse)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("oracle", s.Oracle.Name()).
		Dur("elapsed", time.Since(start)).
		Int("reply_length", len(reply)).
		Msg("Oracle replied")
	state.RawReply = reply
	return nil
}

// SanitizeStep isolates the JSON span of the reply.
type SanitizeStep struct{}

func (s *SanitizeStep) Name() string { return StepSanitize }

func (s *SanitizeStep) Execute(ctx context.Context, state *AnalysisState) error {
	state.Candidate = recovery.Sanitize(state.RawReply)
	return nil
}

// RecoverStep parses the candidate with the recovery engine.
type RecoverStep struct {
	Engine *recovery.Engine
}

func (s *RecoverStep) Name() string { return StepRecover }

func (s *RecoverStep) Execute(ctx context.Context, state *AnalysisState) error {
	res, err := s.Engine.Recover(ctx, state.Candidate)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	state.Value = res.Value
	state.RecoveryStage = res.Stage
	if res.Stage != recovery.StageDirect {
		log := logger.FromContext(ctx)
		log.Info().Str("recovery_stage", res.Stage).Msg("Oracle reply needed repair")
	}
	return nil
}

// ValidateStep turns the parsed value into a typed record.
type ValidateStep struct{}

func (s *ValidateStep) Name() string { return StepValidate }

func (s *ValidateStep) Execute(ctx context.Context, state *AnalysisState) error {
	rec, dropped, adjusted, err := validateRecord(state.Value)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	for _, d := range dropped {
		log.Warn().Int("transaction", d.Index).Str("reason", d.Reason).Msg("Dropped transaction")
	}
	for _, v := range adjusted {
		log.Warn().Str("check", v.Check).Msg(v.Detail)
	}
	state.Record = rec
	state.Dropped = dropped
	state.Violations = append(state.Violations, adjusted...)
	return nil
}

// PolicyStep applies the category policy for the requested locale. A
// subscription that survives the blacklist but names no known service is
// kept and flagged.
type PolicyStep struct {
	Policy *policy.Policy
}

func (s *PolicyStep) Name() string { return StepPolicy }

func (s *PolicyStep) Execute(ctx context.Context, state *AnalysisState) error {
	state.Record = s.Policy.Apply(state.Record, state.Locale)

	log := logger.FromContext(ctx)
	for i, sub := range state.Record.Subscriptions {
		if s.Policy.IsSubscriptionService(sub.Name) {
			continue
		}
		v := Violation{
			Check:  CheckSubscription,
			Detail: fmt.Sprintf("subscriptions[%d] %q is not a known subscription service", i, sub.Name),
		}
		log.Warn().Str("check", v.Check).Msg(v.Detail)
		state.Violations = append(state.Violations, v)
	}
	return nil
}

// ConsistencyStep logs soft invariant violations. It never fails.
type ConsistencyStep struct{}

func (s *ConsistencyStep) Name() string { return StepConsistency }

func (s *ConsistencyStep) Execute(ctx context.Context, state *AnalysisState) error {
	found := CheckConsistency(state.Record)
	log := logger.FromContext(ctx)
	for _, v := range found {
		log.Warn().Str("check", v.Check).Msg(v.Detail)
	}
	state.Violations = append(state.Violations, found...)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
// state.Stage names the failing step.
func (p *Pipeline) Execute(ctx context.Context, state *AnalysisState) error {
	for i, step := range p.steps {
		state.Stage = step.Name()
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	state.Stage = ""
	return nil
}
