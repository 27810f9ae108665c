// Package harness provides scenario testing for report reconciliation.
//
// A scenario replays a sequence of edge submissions, each under a verified
// identity, through a real Reconciler backed by a fresh in-memory Version
// Store. The harness records the outcome of every submission as a trace and
// then validates the trace and the final projection.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	clock:
//	  epoch: "2025-03-14T12:00:00Z"
//	  step: 1s
//	setup:
//	  - identity: alice
//	    submit: { report_id: r1, title: T, content: C, updated_at: "..." }
//	flow:
//	  - identity: bob
//	    submit: { report_id: r1, title: T2, content: C2, updated_at: "..." }
//	    expect:
//	      case: accepted
//	      sequence_id: 2
//	assertions:
//	  - type: latest
//	    report_id: r1
//	    expect: { updated_by: bob }
//	  - type: version_count
//	    report_id: r1
//	    count: 2
//
// # Assertion Types
//
//   - trace_contains: some trace event matches the case/identity/report_id/code selectors
//   - trace_count: exactly count trace events match the selectors
//   - latest: the projected record for report_id has the expected fields
//   - version_count: report_id has exactly count stored versions
//   - history_order: report_id's stored versions have exactly sequence_ids, in order
//   - replay_identical: projecting the history in reverse yields the same digest
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON snapshot of a run against
// testdata/golden/<name>.golden. Run the tests with -update to regenerate.
package harness
