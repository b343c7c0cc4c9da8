package engine

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/evoforge/evoforge/pkg/constraints"
	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
	"github.com/evoforge/evoforge/pkg/oracle"
)

// Population is a fixed-size ordered collection of candidates sharing one
// generation number.
type Population struct {
	Candidates []*core.Candidate
	Generation int
}

// Size returns the number of candidates.
func (p *Population) Size() int {
	return len(p.Candidates)
}

// populationManager holds and transitions the per-generation candidate set.
// It owns seeding, rank selection, and the fixed-size advancing invariant.
type populationManager struct {
	size        int
	width       int
	rounds      int // seeding rounds before giving up on a slot
	codec       core.Codec
	oracle      oracle.Adapter
	constraints *constraints.Set
	newID       func() string
}

// Seed creates the initial population via concurrent oracle generate
// requests. Failed slots are retried in fresh rounds while the budget lasts;
// a partially seeded population is topped up by duplicating successful
// seeds under new lineage ids. Zero successful seeds is fatal.
func (m *populationManager) Seed(ctx context.Context) (*Population, error) {
	logger := logging.GetLogger()
	logger.Info(ctx, "Seeding population: target size %d", m.size)

	seeds := make([]*core.Candidate, 0, m.size)
	missing := m.size

	for round := 0; round < m.rounds && missing > 0; round++ {
		if err := errors.CheckContext(ctx, "seeding"); err != nil {
			return nil, err
		}

		produced := make([]*core.Candidate, missing)
		p := pool.New().WithMaxGoroutines(m.width)
		for slot := 0; slot < missing; slot++ {
			slot := slot
			p.Go(func() {
				candidate, err := m.generate(ctx)
				if err != nil {
					logger.Warn(ctx, "Seed slot failed (round %d): %v", round, err)
					return
				}
				produced[slot] = candidate
			})
		}
		p.Wait()

		for _, candidate := range produced {
			if candidate != nil {
				seeds = append(seeds, candidate)
			}
		}
		missing = m.size - len(seeds)
	}

	if len(seeds) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.SeedExhausted, "all seed generation attempts failed"),
			errors.Fields{"population_size": m.size, "rounds": m.rounds})
	}

	// Top up remaining slots from successful seeds so the fixed-size
	// invariant holds from generation zero.
	for i := 0; missing > 0; i, missing = i+1, missing-1 {
		template := seeds[i%len(seeds)]
		duplicate := core.NewCandidate(m.newID(), 0, template.Gene, nil).MarkValid()
		seeds = append(seeds, duplicate)
		logger.Warn(ctx, "Seed slot backfilled from %s as %s", template.LineageID, duplicate.LineageID)
	}

	return &Population{Candidates: seeds, Generation: 0}, nil
}

// generate issues one oracle generate request, parses the content, and
// validates the result. An invalid seed counts as a failed slot.
func (m *populationManager) generate(ctx context.Context) (*core.Candidate, error) {
	content, err := m.oracle.Invoke(ctx, oracle.Request{
		Kind: oracle.KindGenerate,
		Spec: m.codec.SeedSpec(),
	})
	if err != nil {
		return nil, err
	}

	gene, err := m.codec.Parse(content)
	if err != nil {
		return nil, errors.Wrap(err, errors.OracleMalformedResponse, "unparsable seed content")
	}

	candidate := core.NewCandidate(m.newID(), 0, gene, nil)
	if violations := m.constraints.Validate(candidate); len(violations) > 0 {
		return nil, errors.WithFields(
			errors.New(errors.ValidationFailed, "seed violates constraints"),
			errors.Fields{"violations": violations})
	}
	return candidate.MarkValid(), nil
}

// Select returns the top-k candidates by score. Ties break deterministically
// toward the lower lineage id, which keeps runs reproducible under mocked
// oracles.
func (m *populationManager) Select(p *Population, k int) []*core.Candidate {
	ranked := rankCandidates(p.Candidates)
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// Advance forms the next generation from offspring, enforcing the fixed-size
// invariant: when validator rejections leave too few offspring, surviving
// parents are re-selected in rank order rather than shrinking the population.
func (m *populationManager) Advance(ctx context.Context, current *Population, offspring []*core.Candidate) *Population {
	next := make([]*core.Candidate, 0, m.size)
	next = append(next, offspring...)
	if len(next) > m.size {
		next = next[:m.size]
	}

	if shortfall := m.size - len(next); shortfall > 0 {
		logger := logging.GetLogger()
		survivors := rankCandidates(current.Candidates)
		for i := 0; i < shortfall; i++ {
			parent := survivors[i%len(survivors)]
			next = append(next, parent.WithGeneration(current.Generation+1))
			logger.Debug(ctx, "Backfilled next generation slot with parent %s", parent.LineageID)
		}
	}

	return &Population{Candidates: next, Generation: current.Generation + 1}
}

// rankCandidates sorts by score descending with the deterministic lineage
// tie-break. Unscored candidates rank below scored ones.
func rankCandidates(candidates []*core.Candidate) []*core.Candidate {
	ranked := make([]*core.Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := effectiveScore(ranked[i]), effectiveScore(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].LineageID < ranked[j].LineageID
	})
	return ranked
}

func effectiveScore(c *core.Candidate) float64 {
	if !c.Scored {
		return core.WorstScore
	}
	return c.Score
}
