package analysis

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
)

type fakeLLM struct {
	calls   atomic.Int32
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return f.respond(prompt)
}

func (f *fakeLLM) StreamAnswer(context.Context, string) (<-chan string, <-chan error) {
	out, errs := make(chan string), make(chan error)
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeLLM) Close() error { return nil }

func failingLLM() *fakeLLM {
	return &fakeLLM{respond: func(string) (string, error) { return "", errors.New("quota exceeded") }}
}

// scriptedLLM answers each prompt kind with a canned JSON document. The coaching prompt
// embeds the other steps' output, so it is matched first.
func scriptedLLM() *fakeLLM {
	return &fakeLLM{respond: func(p string) (string, error) {
		switch {
		case strings.Contains(p, `"communication_score"`):
			return `{"communication_score": 80, "content_score": 90, "confidence_score": 70, "overall_feedback": "Solid."}`, nil
		case strings.Contains(p, `"quality_score"`):
			return "```json\n{\"quality_score\": 88, \"strengths\": [\"clear\"]}\n```", nil
		case strings.Contains(p, `"utilization_score"`):
			return `{"utilization_score": 60, "skills_mentioned": ["Go"]}`, nil
		case strings.Contains(p, `"fit_score"`):
			return `{"fit_score": 81}`, nil
		case strings.Contains(p, `"preparation_score"`):
			return `{"preparation_score": 64, "problem_solving_score": 70}`, nil
		}
		return "", errors.New("unexpected prompt")
	}}
}
