package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thimbleforth/ditto-fde-takehome/internal/engine"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventAccepted, Step: 1, Identity: "edge-alpha", ReportID: "r1", Seq: 1, UpdatedAt: "2025-03-14T10:00:00Z"},
		{Type: EventRejected, Step: 2, Identity: "edge-bravo", ReportID: "r1", Code: "MISSING_FIELD", Field: "title"},
		{Type: EventAccepted, Step: 3, Identity: "edge-bravo", ReportID: "r2", Seq: 2, UpdatedAt: "2025-03-14T10:01:00Z"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Case: EventRejected, Code: "MISSING_FIELD"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Identity: "edge-bravo", ReportID: "r2"}))

	err := assertTraceContains(trace, Assertion{Identity: "edge-alpha", Case: EventRejected})
	require.Error(t, err)

	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Contains(t, aerr.Expected, "case=rejected identity=edge-alpha")
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), "[2] rejected r1 by edge-bravo code=MISSING_FIELD")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Case: EventAccepted, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{ReportID: "r1", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Code: "AUTH_FAILED", Count: 0}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Count: 3}))

	err := assertTraceCount(trace, Assertion{Identity: "edge-bravo", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 events")
}

func TestAssertLatest(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	result.Latest["r1"] = LatestView{
		Seq:            1,
		Title:          "T",
		Content:        "C",
		Classification: "CUI",
		UpdatedAt:      "2025-03-14T10:00:00Z",
		UpdatedBy:      "edge-alpha",
	}

	t.Run("subset match", func(t *testing.T) {
		err := assertLatest(result, Assertion{ReportID: "r1", Expect: map[string]any{
			"updated_by":  "edge-alpha",
			"sequence_id": 1,
		}})
		assert.NoError(t, err)
	})

	t.Run("value mismatch", func(t *testing.T) {
		err := assertLatest(result, Assertion{ReportID: "r1", Expect: map[string]any{"updated_by": "edge-bravo"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "r1.updated_by = edge-bravo")
		assert.Contains(t, err.Error(), "r1.updated_by = edge-alpha")
	})

	t.Run("sequence id type", func(t *testing.T) {
		err := assertLatest(result, Assertion{ReportID: "r1", Expect: map[string]any{"sequence_id": "1"}})
		require.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		err := assertLatest(result, Assertion{ReportID: "r1", Expect: map[string]any{"digest": "x"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown field "digest"`)
	})

	t.Run("missing report", func(t *testing.T) {
		err := assertLatest(result, Assertion{ReportID: "r9", Expect: map[string]any{"title": "T"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "report not found")
	})
}

func newAssertionContext(t *testing.T) *AssertionContext {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rec := engine.New(st, nil)
	ctx := context.Background()
	for _, step := range []struct {
		identity string
		sub      ir.Submission
	}{
		{"edge-alpha", ir.Submission{ReportID: "r1", Title: "a", Content: "a", UpdatedAt: "2025-03-14T10:05:00Z"}},
		{"edge-bravo", ir.Submission{ReportID: "r1", Title: "b", Content: "b", UpdatedAt: "2025-03-14T10:00:00Z"}},
		{"edge-bravo", ir.Submission{ReportID: "r2", Title: "c", Content: "c", UpdatedAt: "2025-03-14T10:00:00Z"}},
	} {
		_, err := rec.Accept(ctx, step.sub, step.identity)
		require.NoError(t, err)
	}

	return &AssertionContext{Reconciler: rec, Ctx: ctx}
}

func TestAssertVersionCount(t *testing.T) {
	actx := newAssertionContext(t)

	assert.NoError(t, assertVersionCount(actx, Assertion{ReportID: "r1", Count: 2}))
	assert.NoError(t, assertVersionCount(actx, Assertion{ReportID: "unknown", Count: 0}))

	err := assertVersionCount(actx, Assertion{ReportID: "r2", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 versions")
}

func TestAssertHistoryOrder(t *testing.T) {
	actx := newAssertionContext(t)

	assert.NoError(t, assertHistoryOrder(actx, Assertion{ReportID: "r1", SequenceIDs: []int64{1, 2}}))
	assert.NoError(t, assertHistoryOrder(actx, Assertion{ReportID: "unknown"}))

	err := assertHistoryOrder(actx, Assertion{ReportID: "r1", SequenceIDs: []int64{2, 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1 2]")
}

func TestAssertReplayIdentical(t *testing.T) {
	actx := newAssertionContext(t)
	assert.NoError(t, assertReplayIdentical(actx))
}

func TestEvaluateAssertions(t *testing.T) {
	actx := newAssertionContext(t)
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Case: EventAccepted, Count: 2},
		{Type: AssertVersionCount, ReportID: "r1", Count: 5},
		{Type: "bogus"},
	}, actx)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "version_count")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}

func TestEvaluateAssertions_NoStoreContext(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertReplayIdentical}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires store context")
}
