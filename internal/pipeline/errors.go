package pipeline

import (
	"errors"
	"fmt"

	"github.com/funster-a/hackathon-backend/internal/oracle"
)

var (
	// ErrOracleUnavailable is oracle.ErrUnavailable, re-exported for callers
	// that only import this package.
	ErrOracleUnavailable = oracle.ErrUnavailable

	// ErrMalformedResponse means no recovery stage produced parseable JSON.
	ErrMalformedResponse = errors.New("malformed oracle response")

	// ErrSchemaInvalid means the parsed reply is not a financial record.
	ErrSchemaInvalid = errors.New("schema invalid")

	// ErrStepPanic means a step panicked. The panic does not escape Analyze.
	ErrStepPanic = errors.New("analysis step panicked")

	// ErrExtractionTooShort means the statement text was too short to analyse.
	ErrExtractionTooShort = errors.New("extracted text too short")
)

// SchemaError names the field that made a reply unacceptable.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema invalid: %s", e.Reason)
	}
	return fmt.Sprintf("schema invalid: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrSchemaInvalid) hold for every SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaInvalid
}

func schemaErr(field, format string, args ...any) *SchemaError {
	return &SchemaError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
