// Package testutil provides shared test doubles for the engine's
// collaborator interfaces.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/evaluation"
	"github.com/evoforge/evoforge/pkg/oracle"
)

// MockOracle is a mock implementation of oracle.Adapter.
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Invoke(ctx context.Context, req oracle.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockEvaluator is a mock implementation of evaluation.Evaluator.
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, c *core.Candidate) (evaluation.Score, error) {
	args := m.Called(ctx, c)
	if score, ok := args.Get(0).(evaluation.Score); ok {
		return score, args.Error(1)
	}
	return evaluation.Score{}, args.Error(1)
}

// ScriptedOracle answers per request kind from fixed response lists,
// cycling when a list runs out. It is safe for concurrent use, which the
// engine's fan-out requires of any oracle double.
type ScriptedOracle struct {
	mu        sync.Mutex
	responses map[oracle.Kind][]string
	cursors   map[oracle.Kind]int
	failures  map[oracle.Kind]error
	calls     []oracle.Request
}

func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{
		responses: make(map[oracle.Kind][]string),
		cursors:   make(map[oracle.Kind]int),
		failures:  make(map[oracle.Kind]error),
	}
}

// Script sets the response sequence for a kind.
func (s *ScriptedOracle) Script(kind oracle.Kind, responses ...string) *ScriptedOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[kind] = responses
	return s
}

// Fail makes every request of the kind return err.
func (s *ScriptedOracle) Fail(kind oracle.Kind, err error) *ScriptedOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[kind] = err
	return s
}

// Calls returns a copy of every request seen so far.
func (s *ScriptedOracle) Calls() []oracle.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]oracle.Request, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// CallCount returns how many requests of the kind were seen.
func (s *ScriptedOracle) CallCount(kind oracle.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, call := range s.calls {
		if call.Kind == kind {
			count++
		}
	}
	return count
}

func (s *ScriptedOracle) Invoke(_ context.Context, req oracle.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)

	if err := s.failures[req.Kind]; err != nil {
		return "", err
	}

	responses := s.responses[req.Kind]
	if len(responses) == 0 {
		return "", errors.WithFields(
			errors.New(errors.OracleTransport, "no scripted response"),
			errors.Fields{"kind": string(req.Kind)})
	}
	response := responses[s.cursors[req.Kind]%len(responses)]
	s.cursors[req.Kind]++
	return response, nil
}

// TextGene is a minimal gene over a plain string.
type TextGene struct {
	Text string
}

func (g *TextGene) ToText() string { return g.Text }

func (g *TextGene) CrossoverSpec(other core.Gene) core.PromptSpec {
	return core.PromptSpec{
		TemplateID: oracle.TemplateCrossoverSynthesis,
		Variables:  map[string]string{"parent_a": g.Text, "parent_b": other.ToText()},
	}
}

func (g *TextGene) MutateSpec() core.PromptSpec {
	return core.PromptSpec{
		TemplateID: oracle.TemplateMutateVariant,
		Variables:  map[string]string{"candidate": g.Text},
	}
}

// TextCodec parses oracle content verbatim into TextGenes.
type TextCodec struct{}

func (TextCodec) Name() string { return "text" }

func (TextCodec) Parse(text string) (core.Gene, error) {
	if text == "" {
		return nil, errors.New(errors.OracleMalformedResponse, "empty content")
	}
	return &TextGene{Text: text}, nil
}

func (TextCodec) Encode(g core.Gene) (string, error) {
	return g.ToText(), nil
}

func (TextCodec) SeedSpec() core.PromptSpec {
	return core.PromptSpec{TemplateID: "seed", Variables: map[string]string{}}
}

// ScoreByText evaluates candidates from a fixed text-to-score table.
// Unknown texts return defaultScore.
func ScoreByText(scores map[string]float64, defaultScore float64) evaluation.Evaluator {
	return evaluation.Func(func(_ context.Context, c *core.Candidate) (evaluation.Score, error) {
		if score, ok := scores[c.Gene.ToText()]; ok {
			return evaluation.Score{Value: score}, nil
		}
		return evaluation.Score{Value: defaultScore}, nil
	})
}

// ConstantScore evaluates every candidate to the same value.
func ConstantScore(value float64) evaluation.Evaluator {
	return evaluation.Func(func(context.Context, *core.Candidate) (evaluation.Score, error) {
		return evaluation.Score{Value: value}, nil
	})
}

// CountingEvaluator wraps an evaluator and counts inner calls, for
// asserting dedup and cache behavior.
type CountingEvaluator struct {
	Inner evaluation.Evaluator

	mu    sync.Mutex
	calls map[string]int
}

func NewCountingEvaluator(inner evaluation.Evaluator) *CountingEvaluator {
	return &CountingEvaluator{Inner: inner, calls: make(map[string]int)}
}

func (e *CountingEvaluator) Evaluate(ctx context.Context, c *core.Candidate) (evaluation.Score, error) {
	e.mu.Lock()
	e.calls[c.Fingerprint()]++
	e.mu.Unlock()
	return e.Inner.Evaluate(ctx, c)
}

// CallsFor returns how many times the fingerprint reached the inner
// evaluator.
func (e *CountingEvaluator) CallsFor(fingerprint string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[fingerprint]
}

// TotalCalls returns the total number of inner evaluations.
func (e *CountingEvaluator) TotalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, n := range e.calls {
		total += n
	}
	return total
}

// SeedResponses builds n distinct seed payloads with the given prefix, for
// scripting unique initial populations.
func SeedResponses(prefix string, n int) []string {
	responses := make([]string, n)
	for i := range responses {
		responses[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return responses
}
