// Agent configuration types.
//
// Information Hiding:
// - Default values hidden

package agent

import "time"

const (
	DefaultMaxIterations   = 30
	DefaultMaxToolCalls    = 15
	DefaultMaxParseRetries = 3
	DefaultRetryBackoff    = 500 * time.Millisecond
)

// Config bounds one orchestrated session.
type Config struct {
	// MaxIterations caps model calls that produce a parsed stage.
	MaxIterations int

	// MaxToolCalls caps executed toolUsed stages per session.
	MaxToolCalls int

	// MaxParseRetries is the number of consecutive unparseable replies
	// tolerated before the session ends in the error stage.
	MaxParseRetries int

	// RetryBackoff is multiplied by the attempt number between retries.
	// Zero disables the wait.
	RetryBackoff time.Duration

	// StructuredOutput asks the provider for schema-constrained JSON.
	StructuredOutput bool

	// SystemPrompt replaces the default role description.
	SystemPrompt string
}

// DefaultConfig returns the production bounds.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    DefaultMaxIterations,
		MaxToolCalls:     DefaultMaxToolCalls,
		MaxParseRetries:  DefaultMaxParseRetries,
		RetryBackoff:     DefaultRetryBackoff,
		StructuredOutput: true,
	}
}

// withDefaults fills zero bounds. RetryBackoff is left as given.
func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = DefaultMaxToolCalls
	}
	if c.MaxParseRetries <= 0 {
		c.MaxParseRetries = DefaultMaxParseRetries
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	return c
}
