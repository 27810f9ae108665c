package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

func TestReplayRecords_Deterministic(t *testing.T) {
	records := []ir.Record{
		rec(1, "r-1", 10),
		rec(2, "r-1", 10),
		rec(3, "r-2", 5),
		rec(4, "r-1", 3),
	}

	first, err := ReplayRecords(records)
	require.NoError(t, err)
	second, err := ReplayRecords(records)
	require.NoError(t, err)

	assert.True(t, first.Identical)
	assert.Equal(t, 4, first.Versions)
	assert.Equal(t, 2, first.Reports)
	assert.Len(t, first.Digest, 64)
	assert.Equal(t, first, second)
}

func TestReplayRecords_DigestTracksWinner(t *testing.T) {
	base := []ir.Record{rec(1, "r-1", 10), rec(2, "r-1", 0)}
	a, err := ReplayRecords(base)
	require.NoError(t, err)

	// A losing version does not change the projection.
	b, err := ReplayRecords(append(base, rec(3, "r-1", 5)))
	require.NoError(t, err)
	assert.Equal(t, a.Digest, b.Digest)

	// A new winner does.
	c, err := ReplayRecords(append(base, rec(3, "r-1", 20)))
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest, c.Digest)
}

func TestReconciler_Replay(t *testing.T) {
	r := setupReconciler(t)
	ctx := t.Context()

	_, err := r.Accept(ctx, submission("r-1", "a", "2025-03-14T09:00:00Z"), "edge-a")
	require.NoError(t, err)
	_, err = r.Accept(ctx, submission("r-1", "b", "2025-03-14T09:00:00Z"), "edge-b")
	require.NoError(t, err)

	first, err := r.Replay(ctx)
	require.NoError(t, err)
	second, err := r.Replay(ctx)
	require.NoError(t, err)

	assert.True(t, first.Identical)
	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, 2, first.Versions)
	assert.Equal(t, 1, first.Reports)
}

func TestReconciler_ReplayStoreFailure(t *testing.T) {
	r := New(failingStore{}, nil)
	_, err := r.Replay(t.Context())
	assert.True(t, ir.IsStoreUnavailable(err))
}
