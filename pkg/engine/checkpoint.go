package engine

import (
	"context"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
)

// CandidateState is the serialized form of one candidate. The gene travels
// as codec-encoded text and is re-parsed on resume, so derived data the
// codec computes during Parse is rebuilt rather than stored.
type CandidateState struct {
	LineageID  string    `yaml:"lineage_id"`
	Generation int       `yaml:"generation"`
	Text       string    `yaml:"text"`
	Score      float64   `yaml:"score"`
	Scored     bool      `yaml:"scored"`
	Valid      bool      `yaml:"valid"`
	ParentIDs  []string  `yaml:"parent_ids,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
}

// Checkpoint captures the resumable state of a run after a completed
// generation: the current population, the best-ever candidate, convergence
// bookkeeping, and the generation history. Checkpoints are written in YAML
// since scores may carry the infinite sentinel.
type Checkpoint struct {
	RunID      string           `yaml:"run_id"`
	Generation int              `yaml:"generation"`
	Sequence   uint64           `yaml:"sequence"`
	Stagnation int              `yaml:"stagnation"`
	PrevBest   float64          `yaml:"prev_best"`
	ValidCount int              `yaml:"valid_count"`
	Best       *CandidateState  `yaml:"best,omitempty"`
	Population []CandidateState `yaml:"population"`
	History    []Summary        `yaml:"history"`
}

// Checkpointer persists run state between generations. The engine saves
// after every ADVANCING phase; save failures are logged and never abort
// the run.
type Checkpointer interface {
	Save(ctx context.Context, cp *Checkpoint) error
}

// FileCheckpointer stores the latest checkpoint as one YAML document,
// replacing the previous one atomically via rename.
type FileCheckpointer struct {
	path string
}

func NewFileCheckpointer(path string) *FileCheckpointer {
	return &FileCheckpointer{path: path}
}

// Save implements the Checkpointer interface.
func (f *FileCheckpointer) Save(_ context.Context, cp *Checkpoint) error {
	data, err := yaml.Marshal(cp)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "marshaling checkpoint")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, errors.Unknown, "writing checkpoint")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, errors.Unknown, "replacing checkpoint")
	}
	return nil
}

// Load reads the stored checkpoint back.
func (f *FileCheckpointer) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "reading checkpoint")
	}

	var cp Checkpoint
	if err := yaml.Unmarshal(data, &cp); err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfiguration, "checkpoint file is not valid YAML")
	}
	return &cp, nil
}

// saveCheckpoint persists the run state after a completed generation.
func (r *run) saveCheckpoint(ctx context.Context) {
	if r.engine.checkpointer == nil {
		return
	}
	logger := logging.GetLogger()

	cp, err := r.checkpointState()
	if err != nil {
		logger.Warn(ctx, "Checkpoint skipped: %v", err)
		return
	}
	if err := r.engine.checkpointer.Save(ctx, cp); err != nil {
		logger.Warn(ctx, "Checkpoint save failed: %v", err)
		return
	}
	logger.Debug(ctx, "Checkpoint saved at generation %d", cp.Generation)
}

func (r *run) checkpointState() (*Checkpoint, error) {
	cp := &Checkpoint{
		RunID:      r.id,
		Generation: r.pop.Generation,
		Sequence:   r.seq.Load(),
		Stagnation: r.stagnation,
		PrevBest:   r.prevBest,
		ValidCount: r.validCount,
		Population: make([]CandidateState, 0, r.pop.Size()),
		History:    make([]Summary, len(r.history)),
	}
	copy(cp.History, r.history)

	for _, candidate := range r.pop.Candidates {
		state, err := r.candidateState(candidate)
		if err != nil {
			return nil, err
		}
		cp.Population = append(cp.Population, state)
	}
	if r.best != nil {
		state, err := r.candidateState(r.best)
		if err != nil {
			return nil, err
		}
		cp.Best = &state
	}
	return cp, nil
}

func (r *run) candidateState(c *core.Candidate) (CandidateState, error) {
	text, err := r.engine.codec.Encode(c.Gene)
	if err != nil {
		return CandidateState{}, errors.Wrap(err, errors.Unknown, "encoding candidate gene")
	}
	return CandidateState{
		LineageID:  c.LineageID,
		Generation: c.Generation,
		Text:       text,
		Score:      c.Score,
		Scored:     c.Scored,
		Valid:      c.Valid,
		ParentIDs:  c.ParentIDs,
		CreatedAt:  c.CreatedAt,
	}, nil
}

// restore rebuilds the run state from a checkpoint. The lineage counter
// continues from the stored sequence so resumed offspring ids never collide
// with checkpointed ones.
func (r *run) restore(cp *Checkpoint) error {
	candidates := make([]*core.Candidate, 0, len(cp.Population))
	for _, state := range cp.Population {
		candidate, err := r.restoreCandidate(state)
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate)
	}
	r.pop = &Population{Candidates: candidates, Generation: cp.Generation}

	if cp.Best != nil {
		best, err := r.restoreCandidate(*cp.Best)
		if err != nil {
			return err
		}
		r.best = best
	}
	r.prevBest = cp.PrevBest
	r.stagnation = cp.Stagnation
	r.validCount = cp.ValidCount
	r.seq.Store(cp.Sequence)
	r.history = append(r.history[:0], cp.History...)
	return nil
}

func (r *run) restoreCandidate(state CandidateState) (*core.Candidate, error) {
	gene, err := r.engine.codec.Parse(state.Text)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidConfiguration, "checkpoint candidate does not parse"),
			errors.Fields{"lineage_id": state.LineageID})
	}

	candidate := core.NewCandidate(state.LineageID, state.Generation, gene, state.ParentIDs)
	if !state.CreatedAt.IsZero() {
		candidate.CreatedAt = state.CreatedAt
	}
	if state.Valid {
		candidate = candidate.MarkValid()
	}
	if state.Scored {
		candidate = candidate.WithScore(state.Score)
	}
	return candidate, nil
}
