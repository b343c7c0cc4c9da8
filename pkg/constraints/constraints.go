// Package constraints implements the pure predicate set applied to every
// offspring before it may survive into a population. A violation is a
// rejection outcome, not a failure: the engine reacts with its
// retry-then-fallback placement policy, never by aborting a generation.
package constraints

import (
	"fmt"
	"unicode"

	"github.com/evoforge/evoforge/pkg/core"
)

// Violation names the constraint a candidate failed and why.
type Violation struct {
	Constraint string
	Reason     string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Constraint, v.Reason)
}

// Constraint is one named predicate over a candidate. Check returns nil when
// the candidate satisfies the constraint.
type Constraint struct {
	Name  string
	Check func(c *core.Candidate) error
}

// Set is an ordered collection of constraints. A candidate is valid iff
// every constraint passes.
type Set struct {
	constraints []Constraint
}

// NewSet builds a constraint set.
func NewSet(constraints ...Constraint) *Set {
	return &Set{constraints: constraints}
}

// Add appends further constraints to the set.
func (s *Set) Add(constraints ...Constraint) {
	s.constraints = append(s.constraints, constraints...)
}

// Validate runs every constraint and collects the violations. An empty
// result means the candidate is valid.
func (s *Set) Validate(c *core.Candidate) []Violation {
	var violations []Violation
	for _, constraint := range s.constraints {
		if err := constraint.Check(c); err != nil {
			violations = append(violations, Violation{
				Constraint: constraint.Name,
				Reason:     err.Error(),
			})
		}
	}
	return violations
}

// Names lists the constraint names in evaluation order.
func (s *Set) Names() []string {
	names := make([]string, len(s.constraints))
	for i, c := range s.constraints {
		names[i] = c.Name
	}
	return names
}

// NonEmpty rejects candidates whose serialized form is empty.
func NonEmpty() Constraint {
	return Constraint{
		Name: "non_empty",
		Check: func(c *core.Candidate) error {
			if len(c.Gene.ToText()) == 0 {
				return fmt.Errorf("serialized gene is empty")
			}
			return nil
		},
	}
}

// MaxLength rejects candidates whose serialized form exceeds n bytes.
func MaxLength(n int) Constraint {
	return Constraint{
		Name: "max_length",
		Check: func(c *core.Candidate) error {
			if got := len(c.Gene.ToText()); got > n {
				return fmt.Errorf("serialized gene is %d bytes, limit %d", got, n)
			}
			return nil
		},
	}
}

// ASCIIOnly rejects candidates whose serialized form contains non-ASCII
// runes. Useful for query genes whose downstream consumers choke on
// smart quotes and the like.
func ASCIIOnly() Constraint {
	return Constraint{
		Name: "ascii_only",
		Check: func(c *core.Candidate) error {
			for _, r := range c.Gene.ToText() {
				if r > unicode.MaxASCII {
					return fmt.Errorf("non-ASCII rune %q", r)
				}
			}
			return nil
		},
	}
}
