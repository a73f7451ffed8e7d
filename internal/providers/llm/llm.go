package llm

import (
	"context"
	"errors"
	"strings"
)

type Provider interface {
	// Generate returns the full completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, prompt string) (chunks <-chan string, errs <-chan error)
	Close() error
}

// Collect drains StreamAnswer into one trimmed string. A stream that fails part way
// returns the error and discards the partial text.
func Collect(ctx context.Context, p Provider, prompt string) (string, error) {
	chunks, errs := p.StreamAnswer(ctx, prompt)

	var full strings.Builder
	for chunk := range chunks {
		full.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		return "", err
	}

	out := strings.TrimSpace(full.String())
	if out == "" {
		return "", errors.New("model returned empty stream")
	}
	return out, nil
}
