// Package api implements the agent's HTTP REST API over the capture store.
//
// New(store, onControl) returns an http.Handler that serves:
//
//	GET     /api/v1/health       flags, depth mode, occupancy
//	GET     /api/v1/stacks       stored entries, newest first ([]StackSummary)
//	GET     /api/v1/stacks/{id}  stitched frames for an identity id; 404 if unknown
//	GET|PUT /api/v1/control      read or change {"enabled","debug"}
//	GET     /api/v1/stats        store counters
//
// All endpoints respond with Content-Type: application/json and return 405 for
// unsupported methods. Errors are {"error": msg}. Ids are decimal or 0x hex.
package api
