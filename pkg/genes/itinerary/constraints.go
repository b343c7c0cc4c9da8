package itinerary

import (
	"github.com/evoforge/evoforge/pkg/constraints"
	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
)

// Constraints returns the validation set for travel plan genes with the
// given budget ceiling.
func Constraints(maxBudget float64) *constraints.Set {
	set := constraints.NewSet()
	set.Add(
		constraints.Constraint{Name: "has_schedule", Check: checkHasSchedule},
		constraints.Constraint{Name: "within_budget", Check: checkBudget(maxBudget)},
	)
	return set
}

func planGene(c *core.Candidate) (*Gene, error) {
	gene, ok := c.Gene.(*Gene)
	if !ok {
		return nil, errors.New(errors.ValidationFailed, "candidate does not carry a travel plan gene")
	}
	return gene, nil
}

func checkHasSchedule(c *core.Candidate) error {
	gene, err := planGene(c)
	if err != nil {
		return err
	}
	if len(gene.Days) == 0 {
		return errors.New(errors.ValidationFailed, "plan has no scheduled days")
	}
	for _, day := range gene.Days {
		if len(day.Activities) == 0 {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "day has no activities"),
				errors.Fields{"date": day.Date})
		}
	}
	return nil
}

func checkBudget(maxBudget float64) func(*core.Candidate) error {
	return func(c *core.Candidate) error {
		gene, err := planGene(c)
		if err != nil {
			return err
		}
		if gene.TotalCost > maxBudget {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "plan exceeds the budget ceiling"),
				errors.Fields{"total_cost": gene.TotalCost, "budget": maxBudget})
		}
		return nil
	}
}
