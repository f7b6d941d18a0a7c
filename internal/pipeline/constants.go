package pipeline

import "time"

// Oracle request limits and pipeline thresholds.
const (
	// MinTextLength is the shortest extracted text worth sending to the oracle.
	MinTextLength = 50

	// MaxPromptRunes caps the statement text included in the prompt.
	MaxPromptRunes = 5000

	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1500

	// DefaultOracleTimeout bounds a single oracle call.
	DefaultOracleTimeout = 60 * time.Second

	// SnippetLength is how much of a raw oracle reply is logged or audited.
	SnippetLength = 200

	// DefaultForecastFactor estimates next month's spending from this month's.
	DefaultForecastFactor = 1.1

	// OtherCategory is returned by Categorize when nothing else matches.
	OtherCategory = "Other"

	userPromptPrefix = "Текст выписки:\n"

	auditTimeout = 5 * time.Second
)
