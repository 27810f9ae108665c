package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func setupReconciler(t *testing.T, opts ...Option) *Reconciler {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(setupTestStore(t), nil, opts...)
}

func submission(reportID, title, updatedAt string) ir.Submission {
	return ir.Submission{
		ReportID:  reportID,
		Title:     title,
		Content:   "body of " + title,
		UpdatedAt: updatedAt,
	}
}

// failingStore fails every operation, standing in for an unreachable disk.
type failingStore struct{}

var errDiskGone = errors.New("disk I/O error")

func (failingStore) Append(context.Context, ir.Record) (int64, error) { return 0, errDiskGone }
func (failingStore) Scan(context.Context) ([]ir.Record, error)         { return nil, errDiskGone }
func (failingStore) ReadHistory(context.Context, string) ([]ir.Record, error) {
	return nil, errDiskGone
}
func (failingStore) Query(context.Context, store.Filter) ([]ir.Record, error) {
	return nil, errDiskGone
}

// blockingStore blocks Append until the context is done.
type blockingStore struct{ failingStore }

func (blockingStore) Append(ctx context.Context, _ ir.Record) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}
