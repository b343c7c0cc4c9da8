package constraints

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evoforge/evoforge/pkg/core"
)

type textGene struct{ text string }

func (g textGene) ToText() string                       { return g.text }
func (g textGene) CrossoverSpec(core.Gene) core.PromptSpec { return core.PromptSpec{} }
func (g textGene) MutateSpec() core.PromptSpec             { return core.PromptSpec{} }

func candidate(text string) *core.Candidate {
	return core.NewCandidate("test-000001", 0, textGene{text: text}, nil)
}

func TestSetCollectsAllViolations(t *testing.T) {
	set := NewSet(NonEmpty(), MaxLength(3), ASCIIOnly())

	violations := set.Validate(candidate("héllo world"))
	assert.Len(t, violations, 2)
	assert.Equal(t, "max_length", violations[0].Constraint)
	assert.Equal(t, "ascii_only", violations[1].Constraint)

	assert.Empty(t, set.Validate(candidate("ok")))
}

func TestEmptySetAcceptsEverything(t *testing.T) {
	set := NewSet()
	assert.Empty(t, set.Validate(candidate("")))
}

func TestNonEmpty(t *testing.T) {
	c := NonEmpty()
	assert.Error(t, c.Check(candidate("")))
	assert.NoError(t, c.Check(candidate("x")))
}

func TestMaxLength(t *testing.T) {
	c := MaxLength(5)
	assert.NoError(t, c.Check(candidate("12345")))
	assert.Error(t, c.Check(candidate("123456")))
}

func TestASCIIOnly(t *testing.T) {
	c := ASCIIOnly()
	assert.NoError(t, c.Check(candidate("plain text")))
	assert.Error(t, c.Check(candidate("smart “quotes”")))
}

func TestNamesAndOrder(t *testing.T) {
	set := NewSet(NonEmpty())
	set.Add(MaxLength(10), ASCIIOnly())
	assert.Equal(t, []string{"non_empty", "max_length", "ascii_only"}, set.Names())
}

func TestViolationString(t *testing.T) {
	v := Violation{Constraint: "budget", Reason: "too expensive"}
	assert.Equal(t, "budget: too expensive", fmt.Sprint(v))
}
