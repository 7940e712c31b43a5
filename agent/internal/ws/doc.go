// Package ws streams the capture store's stack list over WebSocket.
//
// Clients connect to /ws/stream. On connect and then every interval the hub
// sends:
//
//	{"event":"snapshot","data":[<StackSummary>, ...]}
//
// with the same list GET /api/v1/stacks returns, newest first. Slow clients
// are disconnected rather than buffered without bound.
package ws
