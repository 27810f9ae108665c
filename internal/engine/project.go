package engine

import (
	"sort"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// Project reduces a set of record versions to the winning version per
// report_id under ir.Newer. The input order does not affect the result.
//
// Returns an empty map (not nil) for empty input.
func Project(records []ir.Record) map[string]ir.Record {
	latest := make(map[string]ir.Record)
	for _, rec := range records {
		cur, ok := latest[rec.ReportID]
		if !ok || ir.Newer(rec, cur) {
			latest[rec.ReportID] = rec
		}
	}
	return latest
}

// SortedLatest returns the values of a projection ordered by report_id
// (bytewise) so listings are stable.
func SortedLatest(latest map[string]ir.Record) []ir.Record {
	out := make([]ir.Record, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReportID < out[j].ReportID
	})
	return out
}
