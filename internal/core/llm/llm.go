// Package llm wraps the text generation backend used to write reports.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-snapshot-bot/internal/platform/config"
)

// Request is one generation call: a fully rendered prompt and the model to run it on.
type Request struct {
	// Task names the caller for logs and metrics, e.g. "source_summary".
	Task   string
	Model  string
	Prompt string
}

// Generator turns a prompt into text. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New returns the generator selected by cfg: the mock backend when the API
// key is "mock", the OpenAI-compatible client otherwise.
func New(cfg *config.Config, logger *zerolog.Logger) Generator {
	if cfg.UseMockLLM() {
		logger.Warn().Msg("Using mock LLM backend")

		return NewMock()
	}

	return NewOpenAI(cfg, logger)
}
