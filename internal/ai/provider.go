package ai

import "context"

// Provider is one AI model backend in the fallback chain. Adapters are
// interchangeable: the engine only needs a prompt in and raw text out.
type Provider interface {
	// Name identifies the backend for logs and diagnostics, e.g.
	// "gemini:gemini-2.0-flash".
	Name() string
	// Invoke sends the prompt and returns the model's raw text response,
	// which is expected (but not guaranteed) to contain a JSON object.
	Invoke(ctx context.Context, prompt string) (string, error)
}
