package ai

import "context"

// Provider sends a prompt to the text-generation service and returns the raw
// text response. The response is free-form; callers parse it with
// ParseVerdict.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
