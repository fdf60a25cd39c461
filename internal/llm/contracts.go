package llm

import "context"

// Completer sends one system+user exchange to a chat model and returns the
// raw reply text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
