// Package api is the cloud-side Sync Transport: an HTTP server that accepts
// record submissions from edges and serves the stored versions.
//
// Routes:
//
//	POST /api/sync                          submit one record (bearer token required)
//	GET  /api/health                        liveness and store reachability
//	GET  /api/reports                       all versions in sequence order (filterable)
//	GET  /api/reports/latest                one winning version per report_id
//	GET  /api/reports/{report_id}/versions  history of one report
//	GET  /api/reports/stream                websocket feed of accepted records
//
// Failures are JSON bodies {"error", "code", "field"} with status 401 for
// authentication, 400 for validation, and 503 when the store is unavailable.
package api
