// Package edge implements an edge node: a local append-only log of authored
// records, a client for the cloud Sync Transport, and an agent that pushes
// unsynced records to the cloud on demand or on a cron schedule.
//
// The local log uses the pure-Go modernc.org/sqlite driver so edge builds
// need no cgo toolchain.
//
// Delivery is at-least-once from the edge's point of view: a record is
// marked synced only after the cloud returns its sequence id. A record whose
// submission fails stays unsynced and is retried on the next pass; the cloud
// keeps every accepted copy as a separate version.
package edge
