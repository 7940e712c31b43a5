// Package types defines the frame representation shared by the capture engine
// and the agent's query surfaces (HTTP, WebSocket, gRPC). A stitched stack is a
// []*Frame in which nil entries mark stitch boundaries.
package types
