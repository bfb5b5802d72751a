package providers

import (
	"context"
	"errors"
)

// ErrCompletionUnavailable is returned when the completion service cannot
// be reached or refuses the request. Callers degrade to canned responses.
var ErrCompletionUnavailable = errors.New("completion service unavailable")

// CompletionProvider is the interface to the external natural-language
// completion service. Output is untrusted text: callers must validate it
// before acting on it, and must never execute a generated query containing
// mutation verbs.
type CompletionProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
