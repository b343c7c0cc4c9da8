package core

// PromptSpec describes the prompt context an oracle request carries: a named
// template plus the variables to substitute into it. Genes describe their
// reproduction operators as prompt specs; the oracle adapter turns the spec
// into actual generated content.
type PromptSpec struct {
	TemplateID string
	Variables  map[string]string
}

// Gene is the capability contract for one evolving solution. The engine is
// generic over this set and never over a concrete gene type.
//
// Implementations must be usable as immutable values: once a gene is wrapped
// in a Candidate, nothing may mutate it. Reproduction never edits a gene in
// place; CrossoverSpec and MutateSpec describe the oracle request whose
// response is parsed into a brand new gene.
type Gene interface {
	// ToText serializes the gene into the canonical textual form used for
	// prompts, fingerprinting, and display.
	ToText() string

	// CrossoverSpec returns the prompt spec for synthesizing an offspring
	// from this gene and other.
	CrossoverSpec(other Gene) PromptSpec

	// MutateSpec returns the prompt spec for producing a mutated variant
	// of this gene.
	MutateSpec() PromptSpec
}

// Codec parses oracle content into a concrete gene type and describes how to
// request fresh genes during seeding. One codec exists per registered gene
// variant.
type Codec interface {
	// Name identifies the gene variant, e.g. "searchquery".
	Name() string

	// Parse builds a gene from raw oracle content. Content the codec cannot
	// make sense of must return an error; callers report it as a malformed
	// oracle response rather than panicking.
	Parse(text string) (Gene, error)

	// Encode serializes a gene into text Parse accepts. Checkpoints store
	// genes in this form.
	Encode(g Gene) (string, error)

	// SeedSpec returns the prompt spec used to generate an initial gene.
	SeedSpec() PromptSpec
}
