// Package evoforge is a hybrid evolutionary optimization engine that
// delegates its reproduction operators to a generative language model.
//
// A run evolves a fixed-size population of candidate solutions. Selection,
// scheduling, and bookkeeping are classical genetic-algorithm machinery;
// creating new candidates is not: seeding, crossover, and mutation are all
// performed by prompting an external oracle and parsing its output back
// into typed genes.
//
// Key Components:
//
//   - Core: the Gene and Codec contracts every solution variant implements,
//     the immutable Candidate record, content fingerprinting, and the run
//     configuration.
//
//   - Engine: the generation state machine. Evaluation, reproduction, and
//     validation each fan out over a bounded worker pool and end at a
//     barrier; constraint violations trigger one same-lineage regeneration
//     before falling back to the parent, so the population never shrinks.
//
//   - Oracle: the adapter between prompt specs and a text Generator, with
//     per-attempt timeouts, retry classification, and a prompt template
//     registry. An Anthropic-backed generator is included.
//
//   - Evaluation: LLM-based fitness scoring with fingerprint-level
//     deduplication and an optional SQLite archive of high scorers.
//
//   - Genes: bundled solution variants. searchquery evolves weighted web
//     search expressions; itinerary evolves structured travel plans.
//
// Simple Example:
//
//	import (
//	    "context"
//
//	    "github.com/evoforge/evoforge/pkg/core"
//	    "github.com/evoforge/evoforge/pkg/engine"
//	)
//
//	func main() {
//	    cfg := core.DefaultEvolutionConfig()
//	    eng, err := engine.New(cfg, engine.Options{
//	        Codec:     codec,     // a core.Codec for your gene variant
//	        Oracle:    oracle,    // an oracle.Adapter, e.g. oracle.NewLLMOracle(...)
//	        Evaluator: evaluator, // an evaluation.Evaluator
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    result, err := eng.Run(context.Background())
//	    if err != nil {
//	        panic(err)
//	    }
//	    println(result.Best.Gene.ToText())
//	}
//
// For a complete runnable setup see cmd/evoforge.
package evoforge
