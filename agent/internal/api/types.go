package api

import "github.com/obsidianstack/capturestack/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is "capturing" or "disabled".
	State     string `json:"state"`
	Enabled   bool   `json:"enabled"`
	Debug     bool   `json:"debug"`
	DepthMode string `json:"depth_mode"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	LiveCount int    `json:"live_count"`
	DeepCount int    `json:"deep_count"`
}

// StackSummary is one entry in GET /api/v1/stacks, newest first.
type StackSummary struct {
	ID         uint64 `json:"id"`
	Type       string `json:"type"`
	Live       bool   `json:"live"`
	Deep       bool   `json:"deep"`
	Segments   int    `json:"segments"`
	RawDepth   int    `json:"raw_depth"`
	CapturedAt string `json:"captured_at"` // RFC3339Nano
}

// StackResponse is the payload for GET /api/v1/stacks/{id}. Frames holds the
// stitched stack; null entries separate segments.
type StackResponse struct {
	StackSummary
	Frames []*types.Frame `json:"frames"`
}

// ControlState is the payload of GET and PUT /api/v1/control.
type ControlState struct {
	Enabled bool `json:"enabled"`
	Debug   bool `json:"debug"`
}

// controlRequest is the body of PUT /api/v1/control. Absent fields are left
// unchanged.
type controlRequest struct {
	Enabled *bool `json:"enabled"`
	Debug   *bool `json:"debug"`
}

type errorResponse struct {
	Error string `json:"error"`
}
