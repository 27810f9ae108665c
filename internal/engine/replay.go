package engine

import (
	"context"
	"fmt"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// ReplayResult summarizes a projection determinism check.
type ReplayResult struct {
	Versions  int    `json:"versions"`
	Reports   int    `json:"reports"`
	Digest    string `json:"digest"`
	Identical bool   `json:"identical"`
}

// Replay recomputes the projection over the stored history twice, once in
// sequence order and once in reverse, and compares the projection digests.
//
// Identical is false only if the projection depends on scan order, which
// would mean two readers could see different "latest" states for the same
// history.
func (r *Reconciler) Replay(ctx context.Context) (ReplayResult, error) {
	records, err := r.AllVersions(ctx)
	if err != nil {
		return ReplayResult{}, err
	}
	return ReplayRecords(records)
}

// ReplayRecords runs the Replay check over an in-memory history.
func ReplayRecords(records []ir.Record) (ReplayResult, error) {
	forward := Project(records)

	reversed := make([]ir.Record, len(records))
	for i, rec := range records {
		reversed[len(records)-1-i] = rec
	}
	backward := Project(reversed)

	fwdDigest, err := ir.ProjectionDigest(forward)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	bwdDigest, err := ir.ProjectionDigest(backward)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	return ReplayResult{
		Versions:  len(records),
		Reports:   len(forward),
		Digest:    fwdDigest,
		Identical: fwdDigest == bwdDigest,
	}, nil
}
