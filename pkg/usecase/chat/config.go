package chat

import (
	_ "embed"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/identity.md
var defaultIdentity string

// Config holds the orchestration policy values. It is an explicit value
// passed at construction; the session never reads ambient settings.
type Config struct {
	// TopK is the number of memories retrieved per turn
	TopK int
	// HistoryLimit is the number of recent turns included in the prompt
	HistoryLimit int
	// MaxTokens caps the completion length (0 means provider default)
	MaxTokens int
	// Temperature is passed through to the completion backend
	Temperature float64
	// Identity is the leading prompt section describing the assistant.
	// Empty selects the built-in default.
	Identity string
}

func (c *Config) Validate() error {
	if c.TopK < 0 {
		return goerr.New("top_k must not be negative", goerr.V("top_k", c.TopK))
	}
	if c.HistoryLimit < 0 {
		return goerr.New("history_limit must not be negative", goerr.V("history_limit", c.HistoryLimit))
	}
	if c.MaxTokens < 0 {
		return goerr.New("max_tokens must not be negative", goerr.V("max_tokens", c.MaxTokens))
	}
	if c.Temperature < 0 {
		return goerr.New("temperature must not be negative", goerr.V("temperature", c.Temperature))
	}
	return nil
}

// identity returns the configured identity or the built-in default
func (c *Config) identity() string {
	if c.Identity != "" {
		return c.Identity
	}
	return defaultIdentity
}
