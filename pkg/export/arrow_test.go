package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoforge/evoforge/pkg/engine"
)

func TestHistoryRoundTrip(t *testing.T) {
	result := &engine.RunResult{
		RunID: "run-abc",
		History: []engine.Summary{
			{Generation: 0, Best: 4.0, Mean: 2.5, Worst: 1.0, ValidOffspring: 18},
			{Generation: 1, Best: 6.5, Mean: 4.0, Worst: 2.0, ValidOffspring: 17},
			{Generation: 2, Best: 6.5, Mean: 5.1, Worst: 3.0, ValidOffspring: 18},
		},
	}

	path := filepath.Join(t.TempDir(), "history.parquet")
	require.NoError(t, WriteHistory(result, path))

	loaded, err := ReadHistory(path)
	require.NoError(t, err)
	assert.Equal(t, result.History, loaded)
}

func TestWriteHistoryEmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteHistory(&engine.RunResult{RunID: "run-empty"}, path))

	loaded, err := ReadHistory(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestReadHistoryMissingFile(t *testing.T) {
	_, err := ReadHistory(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}
