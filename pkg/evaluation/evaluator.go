// Package evaluation scores candidates. Evaluators are safe to call
// concurrently for distinct candidates; the dedup cache guarantees at most
// one underlying evaluation per unique content fingerprint per run.
package evaluation

import (
	"context"

	"github.com/evoforge/evoforge/pkg/core"
)

// Score is the result of evaluating one candidate.
type Score struct {
	Value    float64
	Metadata map[string]interface{}
}

// Evaluator assigns a comparable quality score to a candidate.
type Evaluator interface {
	Evaluate(ctx context.Context, c *core.Candidate) (Score, error)
}

// Func adapts a plain function into an Evaluator.
type Func func(ctx context.Context, c *core.Candidate) (Score, error)

// Evaluate implements the Evaluator interface.
func (f Func) Evaluate(ctx context.Context, c *core.Candidate) (Score, error) {
	return f(ctx, c)
}
