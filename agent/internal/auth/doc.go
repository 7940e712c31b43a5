// Package auth checks API keys on the agent's gRPC and HTTP surfaces.
//
// New(mode, header, key) builds a Checker; mode "apikey" with a non-empty key
// turns checking on. UnaryInterceptor rejects bad keys with
// codes.Unauthenticated; Middleware rejects them with HTTP 401. Health probes
// (GET /api/v1/health and grpc.health.v1.Health) are always open.
package auth
