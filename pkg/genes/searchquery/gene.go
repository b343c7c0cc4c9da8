// Package searchquery evolves weighted web search expressions. A gene holds
// a set of semantic dimensions with one keyword chosen per dimension; the
// phenotype is a boost-weighted query string plus the live results it
// retrieves, which is what the evaluator actually scores.
package searchquery

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/evoforge/evoforge/pkg/core"
)

// Result is one retrieved search hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Gene is an immutable search strategy: the user's question, the semantic
// dimensions it was decomposed into, and the keyword chosen for each.
type Gene struct {
	UserQuery  string
	Dimensions []string
	Keywords   map[string]string

	queryString string
	results     []Result
}

// QueryString returns the weighted search expression this gene compiles to.
func (g *Gene) QueryString() string {
	return g.queryString
}

// Results returns the search hits retrieved for the query string.
func (g *Gene) Results() []Result {
	return g.results
}

// ToText renders the gene for evaluation and fingerprinting: the question,
// the compiled query, and the retrieved results.
func (g *Gene) ToText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## User Query:\n%s\n\n", g.UserQuery)
	fmt.Fprintf(&b, "## Search Query:\n%s\n\n", g.queryString)

	if len(g.results) == 0 {
		b.WriteString("## Search Results: null\n")
		return b.String()
	}

	b.WriteString("## Search Results:\n")
	for i, res := range g.results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Title: %q\nSnippet: %q", res.Title, res.Snippet)
	}
	return b.String()
}

// CrossoverSpec asks the oracle to merge the keyword choices of two
// strategies into one stronger strategy.
func (g *Gene) CrossoverSpec(other core.Gene) core.PromptSpec {
	return core.PromptSpec{
		TemplateID: TemplateCrossover,
		Variables: map[string]string{
			"parent_a": g.genotype(),
			"parent_b": genotypeOf(other),
		},
	}
}

// MutateSpec asks the oracle to replace keywords that underperform.
func (g *Gene) MutateSpec() core.PromptSpec {
	return core.PromptSpec{
		TemplateID: TemplateMutate,
		Variables:  map[string]string{"candidate": g.genotype()},
	}
}

// genotype is the canonical JSON form fed back into reproduction prompts.
// It deliberately excludes search results: offspring re-retrieve their own.
func (g *Gene) genotype() string {
	keywords := make(map[string][]string, len(g.Keywords))
	for dim, kw := range g.Keywords {
		keywords[dim] = []string{kw}
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"user_query": g.UserQuery,
		"dimensions": g.Dimensions,
		"keywords":   keywords,
	})
	return string(payload)
}

func genotypeOf(other core.Gene) string {
	if sq, ok := other.(*Gene); ok {
		return sq.genotype()
	}
	return other.ToText()
}

// buildQueryString compiles the chosen keywords into a weighted expression.
// Keywords are taken in dimension order, capped at three, with descending
// boost weights. The ordering is deterministic so identical keyword sets
// always compile to the identical query.
func buildQueryString(dimensions []string, keywords map[string]string) string {
	ordered := make([]string, 0, len(keywords))
	for _, dim := range dimensions {
		if kw, ok := keywords[dim]; ok && kw != "" {
			ordered = append(ordered, kw)
		}
	}
	// Dimensions absent from the declared list still contribute, sorted
	// for stability.
	var extra []string
	for dim, kw := range keywords {
		if !containsString(dimensions, dim) && kw != "" {
			extra = append(extra, kw)
		}
	}
	sort.Strings(extra)
	ordered = append(ordered, extra...)

	if len(ordered) > 3 {
		ordered = ordered[:3]
	}

	parts := make([]string, 0, len(ordered))
	if len(ordered) >= 1 {
		parts = append(parts, fmt.Sprintf("%q^2.0", ordered[0]))
	}
	if len(ordered) >= 2 {
		parts = append(parts, fmt.Sprintf("%q^1.5", ordered[1]))
	}
	if len(ordered) >= 3 {
		parts = append(parts, ordered[2])
	}
	return strings.Join(parts, " ")
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
