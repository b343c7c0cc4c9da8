// Package itinerary evolves structured multi-day travel plans. It is the
// second bundled gene variant and exercises the engine with a schema-heavy
// genotype where the budget constraint does real filtering work.
package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evoforge/evoforge/pkg/core"
)

// Activity is one scheduled item within a day.
type Activity struct {
	Time          string  `json:"time"`
	Location      string  `json:"location"`
	Description   string  `json:"description"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Day is one dated block of activities.
type Day struct {
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
}

// Hotel is the accommodation choice for the whole trip.
type Hotel struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	TotalCost float64 `json:"total_cost"`
}

// Gene is an immutable travel plan.
type Gene struct {
	Days      []Day   `json:"days"`
	Hotel     Hotel   `json:"hotels"`
	TotalCost float64 `json:"total_cost"`
}

// ToText renders the plan for evaluation and fingerprinting.
func (g *Gene) ToText() string {
	schedule, _ := json.MarshalIndent(g.Days, "", "  ")

	var b strings.Builder
	b.WriteString("Travel Itinerary\n")
	fmt.Fprintf(&b, "- Days: %d day(s)\n", len(g.Days))
	hotel := g.Hotel.Name
	if hotel == "" {
		hotel = "N/A"
	}
	fmt.Fprintf(&b, "- Hotel: %s\n", hotel)
	fmt.Fprintf(&b, "- Total Cost: $%.2f\n", g.TotalCost)
	fmt.Fprintf(&b, "Schedule:\n%s", schedule)
	return b.String()
}

func (g *Gene) CrossoverSpec(other core.Gene) core.PromptSpec {
	return core.PromptSpec{
		TemplateID: TemplateCrossover,
		Variables: map[string]string{
			"parent_a": g.genotype(),
			"parent_b": genotypeOf(other),
		},
	}
}

func (g *Gene) MutateSpec() core.PromptSpec {
	return core.PromptSpec{
		TemplateID: TemplateMutate,
		Variables:  map[string]string{"candidate": g.genotype()},
	}
}

func (g *Gene) genotype() string {
	payload, _ := json.Marshal(g)
	return string(payload)
}

func genotypeOf(other core.Gene) string {
	if plan, ok := other.(*Gene); ok {
		return plan.genotype()
	}
	return other.ToText()
}
