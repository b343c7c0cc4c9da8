package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
	"github.com/evoforge/evoforge/pkg/oracle"
)

// run carries the mutable state of one Run invocation. All RNG draws happen
// on the single loop goroutine before any fan-out, so identical oracle
// responses and an identical seed replay an identical generation history.
type run struct {
	engine     *Engine
	id         string
	shortID    string
	rng        *rand.Rand
	seq        atomic.Uint64
	manager    *populationManager
	dispatcher *telemetryDispatcher
	startedAt  time.Time

	pop        *Population
	best       *core.Candidate
	prevBest   float64
	stagnation int
	history    []Summary
	validCount int
}

func newRun(e *Engine, runID string) *run {
	seed := e.cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	shortID := runID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	r := &run{
		engine:    e,
		id:        runID,
		shortID:   shortID,
		rng:       rand.New(rand.NewSource(seed)),
		startedAt: time.Now(),
		prevBest:  core.WorstScore,
	}
	r.manager = &populationManager{
		size:        e.cfg.PopulationSize,
		width:       e.cfg.WorkerPoolWidth,
		rounds:      e.cfg.RetryCount + 1,
		codec:       e.codec,
		oracle:      e.oracle,
		constraints: e.constraints,
		newID:       r.nextLineageID,
	}
	r.dispatcher = newTelemetryDispatcher(e.telemetry)
	return r
}

// nextLineageID allocates run-scoped, monotonically increasing lineage ids.
// Lexicographic order equals creation order, which is what makes the
// "lower lineage id wins" tie-break reproducible.
func (r *run) nextLineageID() string {
	return fmt.Sprintf("%s-%06d", r.shortID, r.seq.Add(1))
}

func (r *run) logPhase(ctx context.Context, p phase) {
	logging.GetLogger().Debug(ctx, "Phase %s", p)
}

// loop runs the generation cycle until a termination condition fires.
// Cancellation and the wall-clock budget are checked at phase boundaries
// only; a partially-formed generation is never installed as current.
func (r *run) loop(ctx context.Context) TerminationReason {
	cfg := r.engine.cfg

	for {
		gctx := logging.WithGeneration(ctx, r.pop.Generation)

		if r.pop.Generation >= cfg.MaxGenerations {
			return ReasonMaxGenerations
		}
		if r.stagnation >= cfg.StagnationWindow {
			return ReasonStagnation
		}
		if reason, done := r.checkBudget(ctx); done {
			return reason
		}
		r.evaluate(gctx)

		if reason, done := r.checkBudget(ctx); done {
			return reason
		}
		elites, parents := r.selectParents(gctx)

		if reason, done := r.checkBudget(ctx); done {
			return reason
		}
		slots := r.reproduce(gctx, parents)

		if reason, done := r.checkBudget(ctx); done {
			return reason
		}
		validated, validCount := r.validateOffspring(gctx, slots)

		r.logPhase(gctx, phaseAdvancing)
		next := r.manager.Advance(gctx, r.pop, append(elites, validated...))
		r.pop = next
		r.validCount = validCount
		r.saveCheckpoint(gctx)
	}
}

func (r *run) checkBudget(ctx context.Context) (TerminationReason, bool) {
	if ctx.Err() != nil {
		return ReasonCanceled, true
	}
	if budget := r.engine.cfg.WallClockBudget.Std(); budget > 0 && time.Since(r.startedAt) > budget {
		return ReasonWallClock, true
	}
	return "", false
}

// evaluate scores every pending candidate concurrently under the worker
// width, degrades exhausted-retry failures to the sentinel worst score,
// then records the generation summary and stagnation bookkeeping.
func (r *run) evaluate(ctx context.Context) {
	r.logPhase(ctx, phaseEvaluating)
	r.dispatcher.generationStarted(r.id, r.pop.Generation)
	logger := logging.GetLogger()

	candidates := r.pop.Candidates
	p := pool.New().WithMaxGoroutines(r.engine.cfg.WorkerPoolWidth)
	for i, candidate := range candidates {
		if candidate.Scored {
			// Elites and carried parents keep their score; the dedup
			// cache would answer from memory anyway.
			continue
		}
		i, candidate := i, candidate
		p.Go(func() {
			cctx := logging.WithCandidateID(ctx, candidate.LineageID)
			score, err := r.engine.evaluator.Evaluate(cctx, candidate)
			if err != nil {
				logger.Warn(cctx, "Evaluation degraded to sentinel score: %v", err)
				candidates[i] = candidate.WithScore(core.WorstScore)
				return
			}
			candidates[i] = candidate.WithScore(score.Value)
		})
	}
	p.Wait()

	summary := summarize(r.pop.Generation, candidates, r.validCount)
	r.history = append(r.history, summary)
	r.dispatcher.generationSummary(r.id, summary)

	genBest := rankCandidates(candidates)[0]
	if r.best == nil || genBest.Score > r.best.Score {
		r.best = genBest
	}
	if r.prevBest == core.WorstScore && r.best.Scored {
		// First comparable checkpoint.
		r.stagnation = 0
	} else if r.best.Score-r.prevBest > r.engine.cfg.StagnationEpsilon {
		r.stagnation = 0
	} else {
		r.stagnation++
		logger.Info(ctx, "No meaningful improvement: %d/%d stagnant generation(s)",
			r.stagnation, r.engine.cfg.StagnationWindow)
	}
	r.prevBest = r.best.Score
}

// selectParents applies elitism and rank-weighted parent sampling. Elites
// pass through unchanged into the next generation; parents are drawn
// without replacement from the configured top-N pool.
func (r *run) selectParents(ctx context.Context) (elites, parents []*core.Candidate) {
	r.logPhase(ctx, phaseSelecting)
	cfg := r.engine.cfg

	poolSize := cfg.SelectionPool()
	if poolSize > r.pop.Size() {
		poolSize = r.pop.Size()
	}
	topK := poolSize
	if cfg.ElitismCount > topK {
		topK = cfg.ElitismCount
	}
	ranked := r.manager.Select(r.pop, topK)
	nextGen := r.pop.Generation + 1

	elites = make([]*core.Candidate, 0, cfg.ElitismCount)
	for _, elite := range ranked[:cfg.ElitismCount] {
		elites = append(elites, elite.WithGeneration(nextGen))
	}

	topN := ranked[:poolSize]

	need := cfg.PopulationSize - cfg.ElitismCount
	if need > len(topN) {
		need = len(topN)
	}
	parents = r.rankWeightedSample(topN, need)
	return elites, parents
}

// rankWeightedSample draws k candidates without replacement, weighting
// rank i (0 = best) by len(ranked)-i.
func (r *run) rankWeightedSample(ranked []*core.Candidate, k int) []*core.Candidate {
	type weighted struct {
		candidate *core.Candidate
		weight    float64
	}
	remaining := make([]weighted, len(ranked))
	for i, candidate := range ranked {
		remaining[i] = weighted{candidate, float64(len(ranked) - i)}
	}

	selected := make([]*core.Candidate, 0, k)
	for len(selected) < k && len(remaining) > 0 {
		total := 0.0
		for _, entry := range remaining {
			total += entry.weight
		}
		draw := r.rng.Float64() * total

		idx := len(remaining) - 1
		acc := 0.0
		for i, entry := range remaining {
			acc += entry.weight
			if draw < acc {
				idx = i
				break
			}
		}
		selected = append(selected, remaining[idx].candidate)
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return selected
}

// reproductionTask is the plan for one non-elite offspring slot. The plan,
// including every RNG draw, is fixed before the concurrent fan-out so the
// run replays deterministically; the same task is re-issued verbatim for
// the single same-lineage regeneration retry.
type reproductionTask struct {
	kind      oracle.Kind
	spec      core.PromptSpec
	lineageID string
	parent    *core.Candidate
	parentIDs []string

	// mutateAfter requests a follow-up mutation of the crossover offspring,
	// drawn against MutationRate when the task is planned.
	mutateAfter bool
}

// offspringSlot pairs a task with its produced candidate; nil means the
// oracle call failed or returned unparsable content.
type offspringSlot struct {
	task      reproductionTask
	candidate *core.Candidate
}

// reproduce plans and issues the concurrent crossover/mutation requests for
// every non-elite slot.
func (r *run) reproduce(ctx context.Context, parents []*core.Candidate) []offspringSlot {
	r.logPhase(ctx, phaseReproducing)
	logger := logging.GetLogger()
	cfg := r.engine.cfg

	need := cfg.PopulationSize - cfg.ElitismCount
	slots := make([]offspringSlot, need)
	for slot := range slots {
		slots[slot].task = r.planReproduction(parents)
	}

	p := pool.New().WithMaxGoroutines(cfg.WorkerPoolWidth)
	for i := range slots {
		i := i
		p.Go(func() {
			candidate, err := r.produce(ctx, slots[i].task)
			if err != nil {
				logger.Warn(ctx, "Reproduction %s failed for slot %d, falling back to parent %s: %v",
					slots[i].task.kind, i, slots[i].task.parent.LineageID, err)
				return
			}
			slots[i].candidate = candidate
		})
	}
	p.Wait()

	return slots
}

// planReproduction draws parents and the operator for one slot.
func (r *run) planReproduction(parents []*core.Candidate) reproductionTask {
	cfg := r.engine.cfg

	p1 := parents[r.rng.Intn(len(parents))]

	// Crossover needs a partner from a different lineage. Parent fallback
	// can collapse the sampled pool to repeats of one lineage, so the
	// partner set is computed up front; when it is empty the slot falls
	// back to mutation instead of redrawing.
	partners := make([]*core.Candidate, 0, len(parents))
	for _, p := range parents {
		if p.LineageID != p1.LineageID {
			partners = append(partners, p)
		}
	}

	if len(partners) > 0 && r.rng.Float64() < cfg.CrossoverRate {
		p2 := partners[r.rng.Intn(len(partners))]
		return reproductionTask{
			kind:        oracle.KindCrossover,
			spec:        p1.Gene.CrossoverSpec(p2.Gene),
			lineageID:   r.nextLineageID(),
			parent:      p1,
			parentIDs:   []string{p1.LineageID, p2.LineageID},
			mutateAfter: r.rng.Float64() < cfg.MutationRate,
		}
	}

	return reproductionTask{
		kind:      oracle.KindMutate,
		spec:      p1.Gene.MutateSpec(),
		lineageID: r.nextLineageID(),
		parent:    p1,
		parentIDs: []string{p1.LineageID},
	}
}

// produce issues the reproduction oracle calls for one task and parses the
// offspring. A planned follow-up mutation that fails keeps the crossover
// offspring rather than failing the slot.
func (r *run) produce(ctx context.Context, task reproductionTask) (*core.Candidate, error) {
	gene, err := r.invokeAndParse(ctx, task.kind, task.spec)
	if err != nil {
		return nil, err
	}

	if task.mutateAfter {
		mutated, err := r.invokeAndParse(ctx, oracle.KindMutate, gene.MutateSpec())
		if err != nil {
			logging.GetLogger().Warn(ctx, "Follow-up mutation failed for lineage %s, keeping crossover offspring: %v",
				task.lineageID, err)
		} else {
			gene = mutated
		}
	}

	return core.NewCandidate(task.lineageID, r.pop.Generation+1, gene, task.parentIDs), nil
}

func (r *run) invokeAndParse(ctx context.Context, kind oracle.Kind, spec core.PromptSpec) (core.Gene, error) {
	content, err := r.engine.oracle.Invoke(ctx, oracle.Request{Kind: kind, Spec: spec})
	if err != nil {
		return nil, err
	}

	gene, err := r.engine.codec.Parse(content)
	if err != nil {
		return nil, errors.Wrap(err, errors.OracleMalformedResponse, "unparsable offspring content")
	}
	return gene, nil
}

// validateOffspring applies the constraint set with the retry-then-fallback
// policy: an invalid offspring gets exactly one same-lineage regeneration
// retry. If that also fails validation, or the oracle call itself failed,
// the parent is kept in its place, so the population never shrinks.
func (r *run) validateOffspring(ctx context.Context, slots []offspringSlot) ([]*core.Candidate, int) {
	r.logPhase(ctx, phaseValidating)
	logger := logging.GetLogger()
	nextGen := r.pop.Generation + 1

	accepted := make([]*core.Candidate, len(slots))
	var retrySlots []int
	for i, slot := range slots {
		if slot.candidate == nil {
			continue
		}
		if violations := r.engine.constraints.Validate(slot.candidate); len(violations) > 0 {
			logger.Info(ctx, "Offspring %s rejected (%v), regenerating once", slot.candidate.LineageID, violations)
			retrySlots = append(retrySlots, i)
			continue
		}
		accepted[i] = slot.candidate.MarkValid()
	}

	p := pool.New().WithMaxGoroutines(r.engine.cfg.WorkerPoolWidth)
	for _, i := range retrySlots {
		i := i
		p.Go(func() {
			regenerated, err := r.produce(ctx, slots[i].task)
			if err != nil {
				logger.Warn(ctx, "Regeneration failed for lineage %s: %v", slots[i].task.lineageID, err)
				return
			}
			if violations := r.engine.constraints.Validate(regenerated); len(violations) > 0 {
				logger.Info(ctx, "Regenerated offspring %s rejected again (%v), keeping parent",
					regenerated.LineageID, violations)
				return
			}
			accepted[i] = regenerated.MarkValid()
		})
	}
	p.Wait()

	final := make([]*core.Candidate, 0, len(slots))
	validCount := 0
	for i, candidate := range accepted {
		if candidate != nil {
			final = append(final, candidate)
			validCount++
			continue
		}
		final = append(final, slots[i].task.parent.WithGeneration(nextGen))
	}
	return final, validCount
}

// summarize computes the per-generation score statistics. Sentinel scores
// from degraded evaluations are excluded from the mean.
func summarize(generation int, candidates []*core.Candidate, validCount int) Summary {
	best := core.WorstScore
	worst := math.Inf(1)
	sum := 0.0
	finite := 0

	for _, candidate := range candidates {
		score := effectiveScore(candidate)
		if score > best {
			best = score
		}
		if score < worst {
			worst = score
		}
		if !math.IsInf(score, 0) {
			sum += score
			finite++
		}
	}

	mean := core.WorstScore
	if finite > 0 {
		mean = sum / float64(finite)
	}
	return Summary{
		Generation:     generation,
		Best:           best,
		Mean:           mean,
		Worst:          worst,
		ValidOffspring: validCount,
	}
}

// snapshot builds the read-only run artifact.
func (r *run) snapshot(reason TerminationReason) *RunResult {
	history := make([]Summary, len(r.history))
	copy(history, r.history)

	return &RunResult{
		RunID:      r.id,
		Best:       r.best,
		Reason:     reason,
		History:    history,
		Generation: r.pop.Generation,
		StartedAt:  r.startedAt,
		FinishedAt: time.Now(),
	}
}
