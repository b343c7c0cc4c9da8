package oracle

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
	"github.com/evoforge/evoforge/pkg/retry"
)

// LLMOracle adapts a text Generator into the engine's oracle contract. It
// renders the request's prompt spec, applies the per-call timeout and the
// shared retry policy, and classifies failures into the oracle taxonomy.
type LLMOracle struct {
	gen       Generator
	templates *TemplateRegistry
	policy    retry.Policy
	timeout   time.Duration
	opts      []GenerateOption
}

// LLMOracleConfig configures an LLMOracle.
type LLMOracleConfig struct {
	Generator Generator
	Templates *TemplateRegistry
	Policy    retry.Policy

	// Timeout bounds each individual generation attempt. A timed-out
	// attempt is a retryable failure, not a hang.
	Timeout time.Duration

	// Generation defaults applied to every call.
	Temperature float64
	MaxTokens   int
}

// NewLLMOracle builds an oracle adapter over a generator.
func NewLLMOracle(cfg LLMOracleConfig) (*LLMOracle, error) {
	if cfg.Generator == nil {
		return nil, errors.New(errors.InvalidConfiguration, "oracle requires a generator")
	}
	templates := cfg.Templates
	if templates == nil {
		templates = NewTemplateRegistry()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	defaults := NewGenerateOptions()
	opts := make([]GenerateOption, 0, 2)
	if cfg.Temperature > 0 {
		opts = append(opts, WithTemperature(cfg.Temperature))
	} else {
		opts = append(opts, WithTemperature(defaults.Temperature))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, WithMaxTokens(cfg.MaxTokens))
	}

	return &LLMOracle{
		gen:       cfg.Generator,
		templates: templates,
		policy:    cfg.Policy,
		timeout:   timeout,
		opts:      opts,
	}, nil
}

// Templates exposes the registry so gene packages can install their
// task-specific templates.
func (o *LLMOracle) Templates() *TemplateRegistry {
	return o.templates
}

// Invoke renders the request and generates content, retrying per policy.
func (o *LLMOracle) Invoke(ctx context.Context, req Request) (string, error) {
	logger := logging.GetLogger()

	prompt, err := o.templates.Render(req.Spec.TemplateID, req.Spec.Variables)
	if err != nil {
		return "", err
	}

	var content string
	err = o.policy.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		response, genErr := o.gen.Generate(callCtx, prompt, o.opts...)
		if genErr != nil {
			classified := classify(genErr)
			logger.Warn(ctx, "Oracle %s call failed: %v", req.Kind, classified)
			return classified
		}
		content = response
		return nil
	})
	if err != nil {
		return "", errors.WithFields(err, errors.Fields{
			"kind":     string(req.Kind),
			"template": req.Spec.TemplateID,
			"provider": o.gen.ProviderName(),
		})
	}

	logger.PromptCompletion(ctx, prompt, content)
	return content, nil
}

// classify maps transport-level failures onto the oracle error taxonomy.
// Errors already carrying an oracle code pass through untouched.
func classify(err error) error {
	switch errors.Code(err) {
	case errors.OracleTimeout, errors.OracleRateLimited,
		errors.OracleMalformedResponse, errors.OracleTransport:
		return err
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.OracleTimeout, "oracle call timed out")
	}
	return errors.Wrap(err, errors.OracleTransport, "oracle call failed")
}
