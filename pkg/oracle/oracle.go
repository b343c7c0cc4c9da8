// Package oracle is the boundary to the external generative capability that
// produces, crosses, and mutates candidate content. Only latency and failure
// behavior are contracted here; the transport is an implementation detail of
// the Generator behind the adapter.
package oracle

import (
	"context"

	"github.com/evoforge/evoforge/pkg/core"
)

// Kind identifies the reproduction operation an oracle request performs.
type Kind string

const (
	KindGenerate  Kind = "generate"
	KindCrossover Kind = "crossover"
	KindMutate    Kind = "mutate"
)

// Request carries one oracle invocation: the operation kind plus the prompt
// spec describing template and variables.
type Request struct {
	Kind Kind
	Spec core.PromptSpec
}

// Adapter invokes the generative oracle. Implementations must be safe for
// concurrent use and idempotent-safe: the engine retries failed requests
// verbatim. Failures are reported through the oracle error codes
// (timeout, rate-limited, malformed response, transport), never panics.
type Adapter interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// Generator is the narrow text-generation surface the LLM-backed adapter
// builds on. It exists so tests can script responses without a transport.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
	ProviderName() string
	ModelID() string
}

// GenerateOption configures a single generation call.
type GenerateOption func(*GenerateOptions)

// GenerateOptions holds per-call generation parameters.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// NewGenerateOptions returns the default generation parameters.
func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}
