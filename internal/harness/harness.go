package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thimbleforth/ditto-fde-takehome/internal/engine"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
	"github.com/thimbleforth/ditto-fde-takehome/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios through a real Reconciler with a deterministic clock.
type Harness struct {
	reconciler *engine.Reconciler
	logger     *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// The received_at clock is deterministic, so stored records and traces are
// reproducible across runs.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Execute setup submissions (each must be accepted)
// 3. Execute flow submissions with expect validation
// 4. Evaluate assertions against the trace and the stored history
//
// A rejected submission is an outcome, not an error. Run returns an error
// only when the scenario cannot be executed at all.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWithLogger(ctx, scenario, nil)
}

// RunWithLogger is Run with reconciler logging sent to logger.
// A nil logger discards log output.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock(testutil.DefaultEpoch, defaultClockStep)
	if scenario.Clock != nil {
		epoch, step, err := scenario.Clock.parse()
		if err != nil {
			return nil, fmt.Errorf("invalid clock: %w", err)
		}
		clock = testutil.NewDeterministicClock(epoch, step)
	}

	h := &Harness{
		reconciler: engine.New(st, logger, engine.WithClock(clock.Now)),
		logger:     logger,
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, len(scenario.Setup), result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	latest, err := h.reconciler.LatestByReportID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to project latest: %w", err)
	}
	for id, rec := range latest {
		result.Latest[id] = newLatestView(rec)
	}

	actx := &AssertionContext{
		Reconciler: h.reconciler,
		Ctx:        ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSetup runs all setup submissions. Any rejection fails the run.
func (h *Harness) executeSetup(ctx context.Context, setup []SubmitStep, result *Result) error {
	for i, step := range setup {
		rec, err := h.reconciler.Accept(ctx, step.Submit.Submission(), step.Identity)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		result.AddAcceptedTrace(i+1, step.Identity, rec.ReportID, rec.Seq, ir.FormatTimestamp(rec.UpdatedAt))
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
// Step numbers continue from the setup so trace events are numbered once.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, offset int, result *Result) error {
	for i, step := range flow {
		n := offset + i + 1
		sub := step.Submit.Submission()

		rec, err := h.reconciler.Accept(ctx, sub, step.Identity)
		if err != nil {
			var ierr *ir.Error
			if !errors.As(err, &ierr) || ierr.Code == ir.ErrCodeStoreUnavailable {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			result.AddRejectedTrace(n, step.Identity, sub.ReportID, string(ierr.Code), ierr.Field)
		} else {
			result.AddAcceptedTrace(n, step.Identity, rec.ReportID, rec.Seq, ir.FormatTimestamp(rec.UpdatedAt))
		}

		event := result.Trace[len(result.Trace)-1]
		if msg := checkExpect(i, step.Expect, event); msg != "" {
			h.logger.DebugContext(ctx, "expectation mismatch", "step", n, "detail", msg)
			result.AddError(msg)
		}
	}
	return nil
}

// checkExpect compares a flow step's outcome with its expect clause.
// A nil clause expects acceptance.
func checkExpect(index int, expect *ExpectClause, event TraceEvent) string {
	want := ExpectClause{Case: EventAccepted}
	if expect != nil {
		want = *expect
	}

	if event.Type != want.Case {
		detail := ""
		if event.Type == EventRejected {
			detail = fmt.Sprintf(" (%s", event.Code)
			if event.Field != "" {
				detail += " field=" + event.Field
			}
			detail += ")"
		}
		return fmt.Sprintf("flow[%d]: expected %s, got %s%s", index, want.Case, event.Type, detail)
	}
	if want.Code != "" && event.Code != want.Code {
		return fmt.Sprintf("flow[%d]: expected code %s, got %s", index, want.Code, event.Code)
	}
	if want.Field != "" && event.Field != want.Field {
		return fmt.Sprintf("flow[%d]: expected field %s, got %s", index, want.Field, event.Field)
	}
	if want.SequenceID != 0 && event.Seq != want.SequenceID {
		return fmt.Sprintf("flow[%d]: expected sequence_id %d, got %d", index, want.SequenceID, event.Seq)
	}
	return ""
}

func newLatestView(rec ir.Record) LatestView {
	return LatestView{
		Seq:            rec.Seq,
		Title:          rec.Title,
		Content:        rec.Content,
		Classification: rec.Classification,
		UpdatedAt:      ir.FormatTimestamp(rec.UpdatedAt),
		UpdatedBy:      rec.UpdatedBy,
	}
}
