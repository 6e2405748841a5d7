package llm

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("llm unavailable")

// Request is one generation call. Temperature and ThinkingBudget are passed
// through to the backend untouched; a nil ThinkingBudget leaves thinking at
// the provider default, -1 asks for an unbounded budget.
type Request struct {
	Model          string
	Prompt         string
	Temperature    float64
	ThinkingBudget *int
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
