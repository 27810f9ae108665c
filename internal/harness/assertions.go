package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/thimbleforth/ditto-fde-takehome/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s by %s", event.Step, event.Type, event.ReportID, event.Identity)
			if event.Type == EventAccepted {
				fmt.Fprintf(&buf, " seq=%d updated_at=%s", event.Seq, event.UpdatedAt)
			} else {
				fmt.Fprintf(&buf, " code=%s", event.Code)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// matchEvent reports whether event satisfies every non-empty selector of
// the assertion.
func matchEvent(event TraceEvent, a Assertion) bool {
	if a.Case != "" && event.Type != a.Case {
		return false
	}
	if a.Identity != "" && event.Identity != a.Identity {
		return false
	}
	if a.ReportID != "" && event.ReportID != a.ReportID {
		return false
	}
	if a.Code != "" && event.Code != a.Code {
		return false
	}
	return true
}

func describeSelectors(a Assertion) string {
	var parts []string
	if a.Case != "" {
		parts = append(parts, "case="+a.Case)
	}
	if a.Identity != "" {
		parts = append(parts, "identity="+a.Identity)
	}
	if a.ReportID != "" {
		parts = append(parts, "report_id="+a.ReportID)
	}
	if a.Code != "" {
		parts = append(parts, "code="+a.Code)
	}
	if len(parts) == 0 {
		return "(any event)"
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that at least one trace event matches.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matchEvent(event, assertion) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: "event with " + describeSelectors(assertion),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks that exactly Count trace events match.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matchEvent(event, assertion) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events with %s", assertion.Count, describeSelectors(assertion)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertLatest checks the projected record for a report using subset
// semantics over its JSON field names.
func assertLatest(result *Result, assertion Assertion) error {
	view, ok := result.Latest[assertion.ReportID]
	if !ok {
		return &AssertionError{
			Type:     AssertLatest,
			Expected: fmt.Sprintf("a projected record for %s", assertion.ReportID),
			Actual:   "report not found",
			Trace:    result.Trace,
		}
	}

	actual := map[string]any{
		"sequence_id":    view.Seq,
		"title":          view.Title,
		"content":        view.Content,
		"classification": view.Classification,
		"updated_at":     view.UpdatedAt,
		"updated_by":     view.UpdatedBy,
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expected := assertion.Expect[key]
		got, exists := actual[key]
		if !exists {
			return fmt.Errorf("latest assertion for %s: unknown field %q", assertion.ReportID, key)
		}
		if !latestValuesEqual(expected, got) {
			return &AssertionError{
				Type:     AssertLatest,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.ReportID, key, expected),
				Actual:   fmt.Sprintf("%s.%s = %v", assertion.ReportID, key, got),
				Trace:    result.Trace,
			}
		}
	}

	return nil
}

// latestValuesEqual compares a YAML-decoded expectation with a projected
// value. YAML integers decode as int; sequence ids are int64.
func latestValuesEqual(expected, actual any) bool {
	switch exp := expected.(type) {
	case int:
		a, ok := actual.(int64)
		return ok && a == int64(exp)
	case int64:
		a, ok := actual.(int64)
		return ok && a == exp
	case string:
		a, ok := actual.(string)
		return ok && a == exp
	default:
		return fmt.Sprint(expected) == fmt.Sprint(actual)
	}
}

// assertVersionCount checks how many versions the store holds for a report.
func assertVersionCount(actx *AssertionContext, assertion Assertion) error {
	history, err := actx.Reconciler.History(actx.Ctx, assertion.ReportID)
	if err != nil {
		return fmt.Errorf("version_count: %w", err)
	}

	if len(history) != assertion.Count {
		return &AssertionError{
			Type:     AssertVersionCount,
			Expected: fmt.Sprintf("%d versions of %s", assertion.Count, assertion.ReportID),
			Actual:   fmt.Sprintf("%d versions", len(history)),
		}
	}
	return nil
}

// assertHistoryOrder checks the exact sequence ids of a report's history.
func assertHistoryOrder(actx *AssertionContext, assertion Assertion) error {
	history, err := actx.Reconciler.History(actx.Ctx, assertion.ReportID)
	if err != nil {
		return fmt.Errorf("history_order: %w", err)
	}

	seqs := make([]int64, len(history))
	for i, rec := range history {
		seqs[i] = rec.Seq
	}

	if fmt.Sprint(seqs) != fmt.Sprint(nonNil(assertion.SequenceIDs)) {
		return &AssertionError{
			Type:     AssertHistoryOrder,
			Expected: fmt.Sprintf("%s history %v", assertion.ReportID, nonNil(assertion.SequenceIDs)),
			Actual:   fmt.Sprintf("%v", seqs),
		}
	}
	return nil
}

func nonNil(s []int64) []int64 {
	if s == nil {
		return []int64{}
	}
	return s
}

// assertReplayIdentical checks that the projection does not depend on the
// order the history is scanned in.
func assertReplayIdentical(actx *AssertionContext) error {
	res, err := actx.Reconciler.Replay(actx.Ctx)
	if err != nil {
		return fmt.Errorf("replay_identical: %w", err)
	}
	if !res.Identical {
		return &AssertionError{
			Type:     AssertReplayIdentical,
			Expected: "identical forward and reverse projections",
			Actual:   "projections differ",
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Reconciler *engine.Reconciler
	Ctx        context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for history assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertLatest:
			err = assertLatest(result, assertion)
		case AssertVersionCount, AssertHistoryOrder, AssertReplayIdentical:
			if actx == nil || actx.Reconciler == nil {
				err = fmt.Errorf("assertion[%d]: %s requires store context", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertVersionCount:
				err = assertVersionCount(actx, assertion)
			case AssertHistoryOrder:
				err = assertHistoryOrder(actx, assertion)
			default:
				err = assertReplayIdentical(actx)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
