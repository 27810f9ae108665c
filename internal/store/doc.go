// Package store provides the SQLite-backed Version Store for accepted reports.
//
// The store is an append-only log with a single table, reports. Every
// accepted record version is one row; rows are never updated or deleted
// (enforced by triggers installed in schema v1).
//
// # Critical Patterns
//
// Sequence assignment:
//   - id INTEGER PRIMARY KEY AUTOINCREMENT is the sequence_id
//   - Assigned inside the insert transaction; never reused, strictly increasing
//   - The connection pool is limited to one connection, so appends from
//     concurrent callers are serialized and commit in id order
//
// Deterministic reads:
//   - Every multi-row query ends in ORDER BY id ASC (or an explicit total order)
//   - A single SELECT reads one consistent snapshot; a half-written row is
//     never visible because the insert commits atomically
//
// Timestamps:
//   - updated_at is stored as fixed-width UTC text (nanosecond precision), so
//     lexical order equals chronological order
//   - received_at is audit metadata and never participates in ordering
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
