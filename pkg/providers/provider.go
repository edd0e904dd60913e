package providers

import (
	"context"
	"fmt"
)

// GenerateRequest describes one round-trip to the text-generation capability.
type GenerateRequest struct {
	// Model overrides the provider default when non-empty.
	Model string
	// System is an optional instruction preamble prepended to the prompt.
	System string
	// Prompt is the user-facing input text.
	Prompt string
	// MaxOutputTokens caps the response length when > 0.
	MaxOutputTokens int
	// Structured asks the model to answer with JSON only.
	Structured bool
	// ReasoningEffort and Verbosity are generation tiers applied to models
	// that support them.
	ReasoningEffort string
	Verbosity       string
}

// Generator is the text-generation capability consumed by the extractor,
// the retriever and the session orchestrator.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	GetDefaultModel() string
}

// GenerationError reports a failed generation round-trip: transport errors,
// non-2xx responses and unparseable response bodies.
type GenerationError struct {
	Provider string
	Status   int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s generation failed: status=%d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func generationErr(provider string, status int, err error) *GenerationError {
	return &GenerationError{Provider: provider, Status: status, Err: err}
}
