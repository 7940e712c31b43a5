// Package query serves stitched stacks over gRPC.
//
// The service capturestack.v1.StackService has one unary method:
//
//	GetRelatedStack({"id": n}) -> {"found": bool, "frames": [...]}
//
// Messages are plain structs encoded with a JSON codec registered under the
// "json" content-subtype, so no generated code is involved. Register also
// installs grpc.health.v1.Health; the stack service reports SERVING only while
// capturing is enabled.
//
// Client is the matching caller, used by the agent's stack command.
package query
