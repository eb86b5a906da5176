package ai

import (
	"context"
	"fmt"
)

// Gateway edits an image according to a natural-language prompt.
// Adapters are stateless; every call is independent.
type Gateway interface {
	Edit(ctx context.Context, image []byte, mimeType string, prompt string) ([]byte, error)
}

// ProviderError carries the diagnostic a backend returned for a failed
// edit. Message may contain the provider's own wording and is safe to
// show (truncated) to the user.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
