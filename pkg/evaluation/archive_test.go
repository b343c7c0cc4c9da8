package evaluation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoforge/evoforge/pkg/core"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := NewArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

func TestArchivePutAndBestN(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	require.NoError(t, archive.Put(ctx, candidate("a-000001", "plan alpha"), 6.0))
	require.NoError(t, archive.Put(ctx, candidate("a-000002", "plan beta"), 9.0))
	require.NoError(t, archive.Put(ctx, candidate("a-000003", "plan gamma"), 7.5))

	best, err := archive.BestN(ctx, 2)
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, 9.0, best[0].Score)
	assert.Equal(t, "plan beta", best[0].Content)
	assert.Equal(t, 7.5, best[1].Score)
}

func TestArchiveKeepsHigherScoreOnConflict(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	first := candidate("a-000001", "same plan")
	require.NoError(t, archive.Put(ctx, first, 8.0))

	// Lower-scoring duplicate leaves the row untouched.
	require.NoError(t, archive.Put(ctx, candidate("a-000002", "same plan"), 5.0))
	best, err := archive.BestN(ctx, 1)
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, 8.0, best[0].Score)
	assert.Equal(t, "a-000001", best[0].LineageID)

	// Higher-scoring duplicate replaces it.
	require.NoError(t, archive.Put(ctx, candidate("a-000003", "same plan"), 9.5))
	best, err = archive.BestN(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9.5, best[0].Score)
	assert.Equal(t, "a-000003", best[0].LineageID)
}

func TestArchiveEvaluatorPersistsAboveThreshold(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	scores := map[string]float64{"great": 9.0, "mediocre": 4.0}
	inner := Func(func(_ context.Context, c *core.Candidate) (Score, error) {
		return Score{Value: scores[c.Gene.ToText()]}, nil
	})
	evaluator := NewArchiveEvaluator(inner, archive, 8.0)

	_, err := evaluator.Evaluate(ctx, candidate("a-000001", "great"))
	require.NoError(t, err)
	_, err = evaluator.Evaluate(ctx, candidate("a-000002", "mediocre"))
	require.NoError(t, err)

	rows, err := archive.BestN(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "great", rows[0].Content)
}
