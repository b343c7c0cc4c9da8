package searchquery

import (
	"unicode"

	"github.com/evoforge/evoforge/pkg/constraints"
	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
)

// Constraints returns the validation set for search strategy genes.
func Constraints() *constraints.Set {
	set := constraints.NewSet()
	set.Add(
		constraints.Constraint{Name: "has_keywords", Check: checkHasKeywords},
		constraints.Constraint{Name: "keywords_ascii", Check: checkKeywordsASCII},
		constraints.Constraint{Name: "compiles_to_query", Check: checkCompiles},
	)
	return set
}

func strategyGene(c *core.Candidate) (*Gene, error) {
	gene, ok := c.Gene.(*Gene)
	if !ok {
		return nil, errors.New(errors.ValidationFailed, "candidate does not carry a search strategy gene")
	}
	return gene, nil
}

func checkHasKeywords(c *core.Candidate) error {
	gene, err := strategyGene(c)
	if err != nil {
		return err
	}
	if len(gene.Keywords) == 0 {
		return errors.New(errors.ValidationFailed, "strategy has no keywords")
	}
	for dim, keyword := range gene.Keywords {
		if keyword == "" {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "dimension has an empty keyword"),
				errors.Fields{"dimension": dim})
		}
	}
	return nil
}

func checkKeywordsASCII(c *core.Candidate) error {
	gene, err := strategyGene(c)
	if err != nil {
		return err
	}
	for dim, keyword := range gene.Keywords {
		for _, r := range keyword {
			if r > unicode.MaxASCII {
				return errors.WithFields(
					errors.New(errors.ValidationFailed, "keyword contains non-ASCII characters"),
					errors.Fields{"dimension": dim, "keyword": keyword})
			}
		}
	}
	return nil
}

func checkCompiles(c *core.Candidate) error {
	gene, err := strategyGene(c)
	if err != nil {
		return err
	}
	if gene.QueryString() == "" {
		return errors.New(errors.ValidationFailed, "strategy compiles to an empty query")
	}
	return nil
}
