// Package ir provides the canonical record types for report synchronization.
//
// This package contains the data model, the single validation entry point for
// submissions, the typed error taxonomy, and canonical serialization. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - A Record is immutable once the Version Store assigns its Seq
//   - Ordering uses (UpdatedAt, Seq), never map or storage traversal order
//   - UpdatedBy always comes from a verified identity, never from the payload
//   - All JSON tags use snake_case
package ir
