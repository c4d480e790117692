package ports

import "context"

// LLMClient defines the interface for the conversational model backend.
// Generate sends a system instruction plus a JSON-encoded user payload and
// returns the model's raw text, which is expected but not guaranteed to be
// a single JSON object.
type LLMClient interface {
	Generate(ctx context.Context, systemInstruction, userPayload string) (string, error)
}
