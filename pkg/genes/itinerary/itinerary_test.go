package itinerary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
)

const validPlan = `{
	"days": [
		{
			"date": "2026-09-01",
			"activities": [
				{"time": "09:00", "location": "Disneyland", "description": "theme park day", "estimated_cost": 500}
			]
		},
		{
			"date": "2026-09-02",
			"activities": [
				{"time": "10:00", "location": "Shanghai Museum", "description": "bronze collection", "estimated_cost": 0}
			]
		}
	],
	"hotels": {"name": "Garden Inn", "address": "1 Nanjing Rd", "total_cost": 1200},
	"total_cost": 4800
}`

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec("Plan a 4-day family trip to Shanghai under 5000.")
	require.NoError(t, err)
	return codec
}

func TestNewCodecRequiresBrief(t *testing.T) {
	_, err := NewCodec("   ")
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
}

func TestCodecParseValidPlan(t *testing.T) {
	parsed, err := newTestCodec(t).Parse(validPlan)
	require.NoError(t, err)

	gene := parsed.(*Gene)
	assert.Len(t, gene.Days, 2)
	assert.Equal(t, "Garden Inn", gene.Hotel.Name)
	assert.Equal(t, 4800.0, gene.TotalCost)
	assert.Equal(t, "Disneyland", gene.Days[0].Activities[0].Location)
}

func TestCodecParseStripsCodeFences(t *testing.T) {
	parsed, err := newTestCodec(t).Parse("```json\n" + validPlan + "\n```")
	require.NoError(t, err)
	assert.Len(t, parsed.(*Gene).Days, 2)
}

func TestCodecParseMalformed(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Parse("a lovely trip to Shanghai")
	assert.Equal(t, errors.OracleMalformedResponse, errors.Code(err))

	_, err = codec.Parse(`{"days": [], "total_cost": 100}`)
	assert.Equal(t, errors.OracleMalformedResponse, errors.Code(err))
}

func TestSeedSpecCarriesBrief(t *testing.T) {
	spec := newTestCodec(t).SeedSpec()
	assert.Equal(t, TemplateSeed, spec.TemplateID)
	assert.Contains(t, spec.Variables["task"], "family trip to Shanghai")
}

func TestReproductionSpecs(t *testing.T) {
	parsed, err := newTestCodec(t).Parse(validPlan)
	require.NoError(t, err)
	gene := parsed.(*Gene)

	mutate := gene.MutateSpec()
	assert.Equal(t, TemplateMutate, mutate.TemplateID)
	assert.Contains(t, mutate.Variables["candidate"], "Garden Inn")

	crossover := gene.CrossoverSpec(gene)
	assert.Equal(t, TemplateCrossover, crossover.TemplateID)
	assert.Contains(t, crossover.Variables["parent_a"], "Disneyland")
}

func TestToText(t *testing.T) {
	parsed, err := newTestCodec(t).Parse(validPlan)
	require.NoError(t, err)
	text := parsed.ToText()

	assert.Contains(t, text, "Travel Itinerary")
	assert.Contains(t, text, "- Days: 2 day(s)")
	assert.Contains(t, text, "- Hotel: Garden Inn")
	assert.Contains(t, text, "- Total Cost: $4800.00")
	assert.Contains(t, text, "Shanghai Museum")
}

func TestBudgetConstraint(t *testing.T) {
	set := Constraints(5500)

	parsed, err := newTestCodec(t).Parse(validPlan)
	require.NoError(t, err)
	within := core.NewCandidate("t-000001", 0, parsed, nil)
	assert.Empty(t, set.Validate(within))

	over := core.NewCandidate("t-000002", 0, &Gene{
		Days:      []Day{{Date: "2026-09-01", Activities: []Activity{{Location: "x"}}}},
		TotalCost: 9000,
	}, nil)
	violations := set.Validate(over)
	require.Len(t, violations, 1)
	assert.Equal(t, "within_budget", violations[0].Constraint)
}

func TestScheduleConstraint(t *testing.T) {
	set := Constraints(5500)

	emptyDay := core.NewCandidate("t-000003", 0, &Gene{
		Days:      []Day{{Date: "2026-09-01"}},
		TotalCost: 100,
	}, nil)
	violations := set.Validate(emptyDay)
	require.Len(t, violations, 1)
	assert.Equal(t, "has_schedule", violations[0].Constraint)
}
