package edge

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// SharedReportID is the report every demo edge edits, producing a conflict.
const SharedReportID = "shared-report-050"

// DemoSubmissions returns the records a demo edge authors: one report of its
// own and its version of the shared report. suffix distinguishes the edge's
// own report; zero picks a random four-digit suffix.
func DemoSubmissions(user string, suffix int) []ir.Submission {
	if suffix == 0 {
		suffix = 1000 + rand.IntN(9000)
	}
	return []ir.Submission{
		{
			ReportID:       fmt.Sprintf("%s-report-%d", user, suffix),
			Title:          fmt.Sprintf("Edge Report %d", suffix),
			Content:        fmt.Sprintf("This is a report created at edge device %s.", user),
			Classification: "CUI",
		},
		{
			ReportID:       SharedReportID,
			Title:          fmt.Sprintf("Shared Report from %s", user),
			Content:        fmt.Sprintf("This is the version from edge device %s.", user),
			Classification: "IL5",
		},
	}
}

// RunDemo authors the demo records locally and runs one sync pass.
func RunDemo(ctx context.Context, log *Log, agent *Agent, user string, suffix int) ([]LocalRecord, SyncResult, error) {
	var created []LocalRecord
	for _, sub := range DemoSubmissions(user, suffix) {
		rec, err := log.AppendLocal(ctx, sub)
		if err != nil {
			return created, SyncResult{}, fmt.Errorf("demo: %w", err)
		}
		created = append(created, rec)
	}

	result, err := agent.SyncOnce(ctx)
	if err != nil {
		return created, result, fmt.Errorf("demo: %w", err)
	}
	return created, result, nil
}
