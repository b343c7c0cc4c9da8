package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evoforge/evoforge/internal/testutil"
	"github.com/evoforge/evoforge/pkg/constraints"
	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/oracle"
)

func newManager(adapter oracle.Adapter, size int) *populationManager {
	seq := 0
	return &populationManager{
		size:        size,
		width:       1,
		rounds:      2,
		codec:       testutil.TextCodec{},
		oracle:      adapter,
		constraints: constraints.NewSet(),
		newID: func() string {
			seq++
			return fmt.Sprintf("test-%06d", seq)
		},
	}
}

func scored(id, text string, score float64) *core.Candidate {
	return core.NewCandidate(id, 0, &testutil.TextGene{Text: text}, nil).WithScore(score)
}

func TestSeedFillsPopulation(t *testing.T) {
	adapter := testutil.NewScriptedOracle().
		Script(oracle.KindGenerate, testutil.SeedResponses("s", 3)...)

	pop, err := newManager(adapter, 3).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pop.Size())
	assert.Equal(t, 0, pop.Generation)
	for _, c := range pop.Candidates {
		assert.True(t, c.Valid, "seeds are validated at generate time")
		assert.False(t, c.Scored)
	}
}

func TestSeedRejectsInvalidSeeds(t *testing.T) {
	adapter := testutil.NewScriptedOracle().
		Script(oracle.KindGenerate, "forbidden")

	m := newManager(adapter, 2)
	m.constraints = constraints.NewSet(constraints.Constraint{
		Name: "nothing_forbidden",
		Check: func(c *core.Candidate) error {
			return fmt.Errorf("rejected")
		},
	})

	_, err := m.Seed(context.Background())
	assert.Equal(t, errors.SeedExhausted, errors.Code(err))
	// Two rounds over two missing slots each.
	assert.Equal(t, 4, adapter.CallCount(oracle.KindGenerate))
}

func TestSeedCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := testutil.NewScriptedOracle().Script(oracle.KindGenerate, "x")
	_, err := newManager(adapter, 2).Seed(ctx)
	assert.Equal(t, errors.Canceled, errors.Code(err))
}

func TestAdvanceTruncatesOverfullOffspring(t *testing.T) {
	m := newManager(testutil.NewScriptedOracle(), 2)
	current := &Population{
		Candidates: []*core.Candidate{scored("a-000001", "p1", 5), scored("a-000002", "p2", 3)},
		Generation: 0,
	}
	offspring := []*core.Candidate{
		scored("a-000003", "o1", 0), scored("a-000004", "o2", 0), scored("a-000005", "o3", 0),
	}

	next := m.Advance(context.Background(), current, offspring)
	assert.Equal(t, 2, next.Size())
	assert.Equal(t, 1, next.Generation)
	assert.Equal(t, "a-000003", next.Candidates[0].LineageID)
}

func TestAdvanceBackfillsFromRankedParents(t *testing.T) {
	m := newManager(testutil.NewScriptedOracle(), 3)
	current := &Population{
		Candidates: []*core.Candidate{
			scored("a-000001", "weak", 1),
			scored("a-000002", "strong", 9),
			scored("a-000003", "mid", 5),
		},
		Generation: 2,
	}
	offspring := []*core.Candidate{scored("a-000004", "child", 0)}

	next := m.Advance(context.Background(), current, offspring)
	require.Equal(t, 3, next.Size())
	assert.Equal(t, 3, next.Generation)

	// Backfill pulls the strongest surviving parents, carried forward.
	assert.Equal(t, "a-000002", next.Candidates[1].LineageID)
	assert.Equal(t, 3, next.Candidates[1].Generation)
	assert.Equal(t, "a-000003", next.Candidates[2].LineageID)
}

func TestRankCandidatesTieBreaksOnLineage(t *testing.T) {
	candidates := []*core.Candidate{
		scored("b-000002", "y", 7),
		scored("b-000001", "x", 7),
		scored("b-000003", "z", 9),
	}

	ranked := rankCandidates(candidates)
	assert.Equal(t, "b-000003", ranked[0].LineageID)
	assert.Equal(t, "b-000001", ranked[1].LineageID, "equal scores break toward the lower lineage id")
	assert.Equal(t, "b-000002", ranked[2].LineageID)
}

func TestRankCandidatesUnscoredRankLast(t *testing.T) {
	unscored := core.NewCandidate("c-000001", 0, &testutil.TextGene{Text: "u"}, nil)
	candidates := []*core.Candidate{unscored, scored("c-000002", "s", 0.1)}

	ranked := rankCandidates(candidates)
	assert.Equal(t, "c-000002", ranked[0].LineageID)
	assert.Equal(t, "c-000001", ranked[1].LineageID)
}

func TestGeneratePassesSeedSpecToOracle(t *testing.T) {
	mockOracle := &testutil.MockOracle{}
	mockOracle.On("Invoke", mock.Anything, oracle.Request{
		Kind: oracle.KindGenerate,
		Spec: testutil.TextCodec{}.SeedSpec(),
	}).Return("fresh seed", nil)

	m := newManager(mockOracle, 1)
	pop, err := m.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh seed", pop.Candidates[0].Gene.ToText())
	mockOracle.AssertExpectations(t)
}

func TestSelectTopK(t *testing.T) {
	m := newManager(testutil.NewScriptedOracle(), 3)
	pop := &Population{Candidates: []*core.Candidate{
		scored("d-000001", "a", 1), scored("d-000002", "b", 3), scored("d-000003", "c", 2),
	}}

	top := m.Select(pop, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "d-000002", top[0].LineageID)
	assert.Equal(t, "d-000003", top[1].LineageID)

	assert.Len(t, m.Select(pop, 10), 3)
}
