// Package workload is the agent's built-in demo traffic (demo.enabled).
//
// Every round creates a Request, submits demo.fanout Jobs through an
// async.Executor and lets each Job hand a Result to a fresh goroutine via
// async.Go. A Result's related stack therefore has three segments:
//
//	finish, process.func1, (*task).run              result goroutine
//	---
//	Go, process, Round.func1, (*task).run           executor worker
//	---
//	Submit, Round, ...                              caller of Round
//
// The most recent objects are kept reachable so they can be queried by id
// through the HTTP and gRPC surfaces.
package workload
