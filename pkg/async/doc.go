// Package async provides goroutine hand-offs that are instrumented for stack
// stitching.
//
// Go and Executor.Submit capture the submitting goroutine's stack against the
// submitted task, then run the task on another goroutine inside an insertion
// region for it. Stacks captured by the task are therefore stitched back to the
// submission site:
//
//	async.Go(sc, func(sc *capture.Scope) {
//		conn := dial()
//		sc.Capture(capture.KeyOf(conn)) // conn's stack continues into the caller of Go
//	})
package async
