// Package engine orchestrates the hybrid evolutionary loop: it drives the
// population through oracle-backed reproduction and concurrent fitness
// evaluation, applies constraint filtering with a retry-then-fallback
// placement policy, and controls convergence.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/evoforge/evoforge/pkg/constraints"
	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/evaluation"
	"github.com/evoforge/evoforge/pkg/logging"
	"github.com/evoforge/evoforge/pkg/oracle"
)

// phase names the engine's state machine states. Phases run strictly
// sequentially; each ends at a barrier before the next may begin.
type phase string

const (
	phaseInit        phase = "INIT"
	phaseEvaluating  phase = "EVALUATING"
	phaseSelecting   phase = "SELECTING"
	phaseReproducing phase = "REPRODUCING"
	phaseValidating  phase = "VALIDATING"
	phaseAdvancing   phase = "ADVANCING"
	phaseTerminated  phase = "TERMINATED"
)

// Options carries the injected collaborators of an engine. Oracle adapter
// and telemetry sink are interfaces so tests can supply doubles.
type Options struct {
	Codec       core.Codec
	Oracle      oracle.Adapter
	Evaluator   evaluation.Evaluator
	Constraints *constraints.Set
	Telemetry   Telemetry

	// Checkpointer, when set, receives the run state after every completed
	// generation so an interrupted run can be resumed.
	Checkpointer Checkpointer
}

// Engine coordinates evolution runs. It holds no per-run state, so one
// engine value may serve several sequential runs.
type Engine struct {
	cfg          core.EvolutionConfig
	codec        core.Codec
	oracle       oracle.Adapter
	evaluator    evaluation.Evaluator
	constraints  *constraints.Set
	telemetry    Telemetry
	checkpointer Checkpointer
}

// New builds an engine. Invalid configuration is fatal here rather than
// surfacing mid-run.
func New(cfg core.EvolutionConfig, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Codec == nil {
		return nil, errors.New(errors.InvalidConfiguration, "engine requires a gene codec")
	}
	if opts.Oracle == nil {
		return nil, errors.New(errors.InvalidConfiguration, "engine requires an oracle adapter")
	}
	if opts.Evaluator == nil {
		return nil, errors.New(errors.InvalidConfiguration, "engine requires an evaluator")
	}
	constraintSet := opts.Constraints
	if constraintSet == nil {
		constraintSet = constraints.NewSet()
	}
	telemetry := opts.Telemetry
	if telemetry == nil {
		telemetry = NopTelemetry{}
	}

	return &Engine{
		cfg:          cfg,
		codec:        opts.Codec,
		oracle:       opts.Oracle,
		evaluator:    opts.Evaluator,
		constraints:  constraintSet,
		telemetry:    telemetry,
		checkpointer: opts.Checkpointer,
	}, nil
}

// RunResult is the read-only snapshot an engine exposes at termination.
type RunResult struct {
	RunID      string
	Best       *core.Candidate
	Reason     TerminationReason
	History    []Summary
	Generation int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run executes one evolution run to termination. Per-candidate failures are
// absorbed inside the run; only seed exhaustion or cancellation during
// seeding propagate as errors.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.GetLogger()

	r := newRun(e, runID)
	defer r.dispatcher.close()

	logger.Info(ctx, "Starting evolution run: population_size=%d max_generations=%d worker_width=%d",
		e.cfg.PopulationSize, e.cfg.MaxGenerations, e.cfg.WorkerPoolWidth)
	r.logPhase(ctx, phaseInit)

	pop, err := r.manager.Seed(ctx)
	if err != nil {
		return nil, err
	}
	r.pop = pop
	r.validCount = pop.Size()

	return e.finish(ctx, r)
}

// Resume continues a checkpointed run where it left off. The population is
// rebuilt through the codec, so candidates keep their lineage ids, scores,
// and generation numbers; termination conditions apply as if the run had
// never stopped.
func (e *Engine) Resume(ctx context.Context, cp *Checkpoint) (*RunResult, error) {
	if cp == nil || len(cp.Population) == 0 {
		return nil, errors.New(errors.InvalidConfiguration, "checkpoint has no population")
	}
	if cp.RunID == "" {
		return nil, errors.New(errors.InvalidConfiguration, "checkpoint has no run id")
	}

	ctx = logging.WithRunID(ctx, cp.RunID)
	logger := logging.GetLogger()

	r := newRun(e, cp.RunID)
	defer r.dispatcher.close()

	if err := r.restore(cp); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Resuming run from generation %d: population_size=%d", cp.Generation, r.pop.Size())

	return e.finish(ctx, r)
}

// finish drives a prepared run to termination and snapshots the result.
func (e *Engine) finish(ctx context.Context, r *run) (*RunResult, error) {
	logger := logging.GetLogger()

	reason := r.loop(ctx)

	r.logPhase(ctx, phaseTerminated)
	r.dispatcher.runTerminated(r.id, reason)
	result := r.snapshot(reason)

	best := math.Inf(-1)
	if result.Best != nil && result.Best.Scored {
		best = result.Best.Score
	}
	logger.Info(ctx, "Run terminated after %d generation(s): reason=%s best_score=%.3f",
		result.Generation, reason, best)
	return result, nil
}
