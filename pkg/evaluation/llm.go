package evaluation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
	"github.com/evoforge/evoforge/pkg/oracle"
	"github.com/evoforge/evoforge/pkg/retry"
)

// LLMEvaluator scores candidates by rendering a scoring template with the
// candidate's serialized text and asking a generator for a numeric judgment.
// It shares the run's retry policy with the oracle adapter.
type LLMEvaluator struct {
	gen        oracle.Generator
	templates  *oracle.TemplateRegistry
	templateID string
	policy     retry.Policy
	timeout    time.Duration
}

// LLMEvaluatorConfig configures an LLMEvaluator.
type LLMEvaluatorConfig struct {
	Generator  oracle.Generator
	Templates  *oracle.TemplateRegistry
	TemplateID string
	Policy     retry.Policy
	Timeout    time.Duration
}

// NewLLMEvaluator builds an evaluator over a generator.
func NewLLMEvaluator(cfg LLMEvaluatorConfig) (*LLMEvaluator, error) {
	if cfg.Generator == nil {
		return nil, errors.New(errors.InvalidConfiguration, "evaluator requires a generator")
	}
	if cfg.TemplateID == "" {
		return nil, errors.New(errors.InvalidConfiguration, "evaluator requires a scoring template")
	}
	templates := cfg.Templates
	if templates == nil {
		templates = oracle.NewTemplateRegistry()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &LLMEvaluator{
		gen:        cfg.Generator,
		templates:  templates,
		templateID: cfg.TemplateID,
		policy:     cfg.Policy,
		timeout:    timeout,
	}, nil
}

// Evaluate implements the Evaluator interface.
func (e *LLMEvaluator) Evaluate(ctx context.Context, c *core.Candidate) (Score, error) {
	logger := logging.GetLogger()

	prompt, err := e.templates.Render(e.templateID, map[string]string{
		"solution_text": c.Gene.ToText(),
	})
	if err != nil {
		return Score{}, err
	}

	var score Score
	err = e.policy.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		response, genErr := e.gen.Generate(callCtx, prompt)
		if genErr != nil {
			return errors.Wrap(genErr, errors.EvaluationFailed, "scoring call failed")
		}

		parsed, parseErr := parseScore(response)
		if parseErr != nil {
			logger.Warn(ctx, "Unparsable score %q: %v", truncate(response, 80), parseErr)
			return errors.Wrap(parseErr, errors.EvaluationFailed, "unparsable score")
		}
		score = parsed
		return nil
	})
	if err != nil {
		return Score{}, errors.WithFields(err, errors.Fields{"candidate": c.LineageID})
	}

	return score, nil
}

// parseScore accepts either a bare number (brackets and whitespace
// tolerated) or a JSON object carrying a final_score field, whose remaining
// keys travel as score metadata.
func parseScore(response string) (Score, error) {
	cleaned := strings.TrimSpace(response)

	var details map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &details); err == nil {
		raw, ok := details["final_score"]
		if !ok {
			return Score{}, errors.New(errors.EvaluationFailed, "score object missing final_score")
		}
		value, ok := raw.(float64)
		if !ok {
			return Score{}, errors.New(errors.EvaluationFailed, "final_score is not a number")
		}
		return Score{Value: value, Metadata: map[string]interface{}{"score_details": details}}, nil
	}

	cleaned = strings.NewReplacer("[", "", "]", "").Replace(cleaned)
	cleaned = strings.TrimSpace(cleaned)
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return Score{}, err
	}
	return Score{Value: value}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
