package ports

import "context"

// Summarizer turns a prompt into a single block of text. Calls are
// request/response; no streaming.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}
