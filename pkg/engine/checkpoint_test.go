package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoforge/evoforge/internal/testutil"
	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/oracle"
)

// recordingCheckpointer captures every checkpoint the engine saves.
type recordingCheckpointer struct {
	mu    sync.Mutex
	saved []*Checkpoint
}

func (r *recordingCheckpointer) Save(_ context.Context, cp *Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, cp)
	return nil
}

func (r *recordingCheckpointer) all() []*Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Checkpoint(nil), r.saved...)
}

type failingCheckpointer struct{ calls int }

func (f *failingCheckpointer) Save(context.Context, *Checkpoint) error {
	f.calls++
	return errors.New(errors.Unknown, "disk full")
}

func checkpointAdapter() *testutil.ScriptedOracle {
	return testutil.NewScriptedOracle().
		Script(oracle.KindGenerate, testutil.SeedResponses("seed", 4)...).
		Script(oracle.KindCrossover, "cross-a", "cross-b").
		Script(oracle.KindMutate, "mut-a", "mut-b")
}

func checkpointScores() map[string]float64 {
	return map[string]float64{
		"seed-0": 1, "seed-1": 2, "seed-2": 3, "seed-3": 4,
		"cross-a": 5, "cross-b": 6, "mut-a": 7, "mut-b": 8,
	}
}

func newCheckpointEngine(t *testing.T, cfg core.EvolutionConfig, checkpointer Checkpointer) *Engine {
	t.Helper()
	eng, err := New(cfg, Options{
		Codec:        testutil.TextCodec{},
		Oracle:       checkpointAdapter(),
		Evaluator:    testutil.ScoreByText(checkpointScores(), 0),
		Checkpointer: checkpointer,
	})
	require.NoError(t, err)
	return eng
}

func TestRunSavesCheckpointEveryGeneration(t *testing.T) {
	recorder := &recordingCheckpointer{}
	cfg := testConfig()
	eng := newCheckpointEngine(t, cfg, recorder)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)

	saved := recorder.all()
	require.Len(t, saved, cfg.MaxGenerations)
	for i, cp := range saved {
		assert.Equal(t, result.RunID, cp.RunID)
		assert.Equal(t, i+1, cp.Generation)
		assert.Len(t, cp.Population, cfg.PopulationSize)
		assert.Len(t, cp.History, i+1)
		require.NotNil(t, cp.Best)
		assert.True(t, cp.Best.Scored)
	}
}

func TestResumeContinuesFromCheckpoint(t *testing.T) {
	recorder := &recordingCheckpointer{}
	cfg := testConfig()

	full, err := newCheckpointEngine(t, cfg, recorder).Run(context.Background())
	require.NoError(t, err)
	saved := recorder.all()
	require.NotEmpty(t, saved)

	// A fresh engine picks the run up from the first checkpoint and drives
	// it to the same termination condition.
	resumed, err := newCheckpointEngine(t, cfg, nil).Resume(context.Background(), saved[0])
	require.NoError(t, err)

	assert.Equal(t, full.RunID, resumed.RunID)
	assert.Equal(t, ReasonMaxGenerations, resumed.Reason)
	assert.Equal(t, cfg.MaxGenerations, resumed.Generation)
	require.Len(t, resumed.History, cfg.MaxGenerations)
	assert.Equal(t, saved[0].History[0], resumed.History[0])
	require.NotNil(t, resumed.Best)
	assert.True(t, resumed.Best.Scored)
}

func TestRestoreContinuesLineageCounter(t *testing.T) {
	eng := newCheckpointEngine(t, testConfig(), nil)
	r := newRun(eng, "0a1b2c3d-0000-0000-0000-000000000000")

	cp := &Checkpoint{
		RunID:      "0a1b2c3d-0000-0000-0000-000000000000",
		Generation: 2,
		Sequence:   9,
		Population: []CandidateState{
			{LineageID: "0a1b2c3d-000009", Generation: 2, Text: "alpha", Score: 3, Scored: true, Valid: true},
		},
	}
	require.NoError(t, r.restore(cp))

	// Resumed offspring ids must sort after every checkpointed one.
	assert.Equal(t, "0a1b2c3d-000010", r.nextLineageID())
}

func TestResumeRejectsInvalidCheckpoint(t *testing.T) {
	eng := newCheckpointEngine(t, testConfig(), nil)

	_, err := eng.Resume(context.Background(), nil)
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))

	_, err = eng.Resume(context.Background(), &Checkpoint{RunID: "0a1b2c3d"})
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))

	// TextCodec rejects empty content, so the stored candidate does not
	// round-trip.
	_, err = eng.Resume(context.Background(), &Checkpoint{
		RunID:      "0a1b2c3d",
		Generation: 1,
		Population: []CandidateState{{LineageID: "0a1b2c3d-000001", Generation: 1, Text: ""}},
	})
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
}

func TestRunToleratesCheckpointFailures(t *testing.T) {
	failing := &failingCheckpointer{}
	cfg := testConfig()
	eng := newCheckpointEngine(t, cfg, failing)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonMaxGenerations, result.Reason)
	assert.Equal(t, cfg.MaxGenerations, failing.calls)
}

func TestFileCheckpointerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ckpt")
	checkpointer := NewFileCheckpointer(path)

	cp := &Checkpoint{
		RunID:      "0a1b2c3d-0000-0000-0000-000000000000",
		Generation: 2,
		Sequence:   12,
		Stagnation: 1,
		PrevBest:   core.WorstScore,
		ValidCount: 3,
		Best: &CandidateState{
			LineageID: "0a1b2c3d-000003", Generation: 1, Text: "alpha", Score: 9, Scored: true, Valid: true,
		},
		Population: []CandidateState{
			{LineageID: "0a1b2c3d-000003", Generation: 2, Text: "alpha", Score: 9, Scored: true, Valid: true},
			{LineageID: "0a1b2c3d-000007", Generation: 2, Text: "beta", Score: core.WorstScore, Scored: true},
		},
		History: []Summary{
			{Generation: 0, Best: 9, Mean: 9, Worst: core.WorstScore, ValidOffspring: 2},
		},
	}
	require.NoError(t, checkpointer.Save(context.Background(), cp))

	loaded, err := checkpointer.Load()
	require.NoError(t, err)
	assert.Equal(t, cp, loaded)
}

func TestFileCheckpointerMissingFile(t *testing.T) {
	_, err := NewFileCheckpointer(filepath.Join(t.TempDir(), "missing.ckpt")).Load()
	assert.Error(t, err)
}
