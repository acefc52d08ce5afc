package interfaces

import (
	"context"
)

// LLMService defines the interface for the external text-reasoning
// capability. The capability returns free text; all structure is enforced
// by the reasoning dispatcher's own parsing and repair logic.
type LLMService interface {
	// Generate produces a completion for the given prompt.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - prompt: Full prompt text including any instructions
	//
	// Returns:
	//   - string: Raw model output
	//   - error: Error if the call fails
	Generate(ctx context.Context, prompt string) (string, error)

	// HealthCheck verifies the provider is operational and can handle
	// requests. For cloud providers this checks API connectivity and
	// authentication.
	HealthCheck(ctx context.Context) error

	// GetProvider returns the configured provider name ("gemini" or
	// "claude").
	GetProvider() string

	// Close releases resources and performs cleanup operations.
	Close() error
}
