// Package capture records call stacks for live objects and reconstructs them
// later, stitched across the asynchronous hand-offs that led to each object.
//
// # Capturing
//
// Instrumented code identifies objects with [KeyOf] and records the current
// stack with [Scope.Capture]:
//
//	sc := capture.NewScope()
//	req := newRequest()
//	sc.Capture(capture.KeyOf(req))
//
// Keys hold weak pointers: a stored stack never keeps its object alive.
//
// # Stitching
//
// Code that runs on behalf of a previously captured object is bracketed with
// [Scope.InsertEnter] and [Scope.InsertExit]. Captures made in between are
// stitched to that object's stack:
//
//	sc.InsertEnter(capture.KeyOf(task))
//	defer sc.InsertExit(capture.KeyOf(task))
//	result := &Result{}
//	sc.Capture(capture.KeyOf(result))
//
// [Store.RelatedStack] for result then returns the frames from the capture site
// down to the function that called InsertEnter, a nil boundary, and the frames
// recorded for task, recursively.
//
// A Scope belongs to one goroutine. Regions must nest strictly; InsertExit pops
// the latest region without checking its key. Carry a scope through call
// chains with [NewContext] and [FromContext].
//
// # Storage
//
// A [Store] keeps the latest snapshot per key and at most Cap() entries,
// evicting the least recently captured key when a new key arrives at capacity.
// Lookups are lock-free. [Default] returns a process-wide store; [Init] and
// [Reset] set it up and tear it down explicitly.
package capture
