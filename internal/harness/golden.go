package harness

import (
	"context"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// TraceSnapshot captures the trace and final projection of a scenario.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string                `json:"scenario_name"`
	Trace        []TraceEvent          `json:"trace"`
	Latest       map[string]LatestView `json:"latest"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, slices and maps.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type":      event.Type,
			"step":      event.Step,
			"identity":  event.Identity,
			"report_id": event.ReportID,
		}
		if event.Type == EventAccepted {
			eventMap["sequence_id"] = event.Seq
			eventMap["updated_at"] = event.UpdatedAt
		}
		if event.Code != "" {
			eventMap["code"] = event.Code
		}
		if event.Field != "" {
			eventMap["field"] = event.Field
		}
		traceList[i] = eventMap
	}

	ids := make([]string, 0, len(s.Latest))
	for id := range s.Latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	latest := make(map[string]any, len(ids))
	for _, id := range ids {
		v := s.Latest[id]
		latest[id] = map[string]any{
			"sequence_id":    v.Seq,
			"title":          v.Title,
			"content":        v.Content,
			"classification": v.Classification,
			"updated_at":     v.UpdatedAt,
			"updated_by":     v.UpdatedBy,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"latest":        latest,
	}
}

// Snapshot renders a result as canonical JSON.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Latest:       result.Latest,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
