package itinerary

import (
	"encoding/json"
	"strings"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
)

// CodecName registers the travel plan gene variant.
const CodecName = "itinerary"

// Codec parses oracle output into travel plan genes. The task brief is
// carried into every seed prompt so the oracle knows the destination,
// duration, and requirements being planned for.
type Codec struct {
	taskBrief string
}

func NewCodec(taskBrief string) (*Codec, error) {
	if strings.TrimSpace(taskBrief) == "" {
		return nil, errors.New(errors.InvalidConfiguration, "travel plan codec requires a task brief")
	}
	return &Codec{taskBrief: taskBrief}, nil
}

func (c *Codec) Name() string { return CodecName }

func (c *Codec) SeedSpec() core.PromptSpec {
	return core.PromptSpec{
		TemplateID: TemplateSeed,
		Variables:  map[string]string{"task": c.taskBrief},
	}
}

// Encode serializes a plan as the JSON form Parse accepts.
func (c *Codec) Encode(g core.Gene) (string, error) {
	plan, ok := g.(*Gene)
	if !ok {
		return "", errors.New(errors.ValidationFailed, "gene is not a travel plan")
	}
	return plan.genotype(), nil
}

func (c *Codec) Parse(text string) (core.Gene, error) {
	cleaned := stripCodeFences(text)

	var gene Gene
	if err := json.Unmarshal([]byte(cleaned), &gene); err != nil {
		return nil, errors.Wrap(err, errors.OracleMalformedResponse, "travel plan is not valid JSON")
	}
	if len(gene.Days) == 0 {
		return nil, errors.New(errors.OracleMalformedResponse, "travel plan has no days")
	}
	return &gene, nil
}

func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
