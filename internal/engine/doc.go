// Package engine implements the reconciler that sits between the transport
// layer and the Version Store.
//
// The reconciler has one write path and a few read paths:
//
//	Accept: Submission + verified identity -> ir.Validate -> Store.Append
//	AllVersions / History: straight reads of the append-only log
//	LatestByReportID / Latest: Project over the full log
//
// CRITICAL PATTERNS:
//
// Append-only:
// The store is never updated in place. Conflicting edits of the same
// report_id all survive as separate versions. "Which one wins" is decided
// at read time by Project and never changes what is stored.
//
// Deterministic projection:
// Project is a pure function of the set of records. The winner for a
// report_id is the version with the greatest UpdatedAt; an exact tie goes to
// the greater sequence id (ir.Newer). Because sequence ids are unique the
// result does not depend on scan order, which Replay verifies.
//
// Identity:
// UpdatedBy always comes from the verified token claim passed to Accept.
// Whatever the submission says about authorship is discarded.
package engine
