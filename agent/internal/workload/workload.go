package workload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/obsidianstack/capturestack/pkg/async"
	"github.com/obsidianstack/capturestack/pkg/capture"
)

// retained is how many demo objects are kept reachable, so their stacks
// remain queryable by id.
const retained = 512

// Request is the root object of a round.
type Request struct {
	ID   int64
	Path string
}

// Job is one fan-out step of a Request, run on the executor.
type Job struct {
	Request *Request
	Step    int
}

// Result is produced by a Job on its own goroutine.
type Result struct {
	Job   *Job
	Value int64
}

// Workload generates instrumented async traffic: each round creates a Request,
// submits fanout Jobs to an executor and has every Job hand off a Result to a
// fresh goroutine. The Result's stack stitches back through both hand-offs.
type Workload struct {
	store    *capture.Store
	exec     *async.Executor
	interval time.Duration
	fanout   int
	seq      atomic.Int64

	mu   sync.Mutex
	ring []any
	next int
}

// New creates a Workload recording into st and running jobs on exec.
func New(st *capture.Store, exec *async.Executor, interval time.Duration, fanout int) *Workload {
	return &Workload{
		store:    st,
		exec:     exec,
		interval: interval,
		fanout:   fanout,
		ring:     make([]any, retained),
	}
}

// Run executes a round every interval until ctx is cancelled.
func (w *Workload) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	slog.Info("workload: started", "interval", w.interval, "fanout", w.fanout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("workload: stopped", "rounds", w.seq.Load())
			return
		case <-t.C:
			req, err := w.Round(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("workload: round failed", "err", err)
				}
				continue
			}
			slog.Debug("workload: round done", "request", req.ID, "key", capture.KeyOf(req))
		}
	}
}

// Round runs one request to completion and returns it.
//
//go:noinline
func (w *Workload) Round(ctx context.Context) (*Request, error) {
	sc := w.store.NewScope()
	id := w.seq.Add(1)
	req := &Request{ID: id, Path: fmt.Sprintf("/demo/%d", id)}
	sc.Capture(capture.KeyOf(req))
	w.retain(req)

	var wg sync.WaitGroup
	for step := 0; step < w.fanout; step++ {
		wg.Add(1)
		err := w.exec.Submit(ctx, sc, func(sc *capture.Scope) {
			defer wg.Done()
			w.process(sc, req, step)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("workload: submit step %d: %w", step, err)
		}
	}
	wg.Wait()
	return req, nil
}

//go:noinline
func (w *Workload) process(sc *capture.Scope, req *Request, step int) {
	job := &Job{Request: req, Step: step}
	sc.Capture(capture.KeyOf(job))
	w.retain(job)

	done := make(chan struct{})
	async.Go(sc, func(sc *capture.Scope) {
		defer close(done)
		w.finish(sc, job)
	})
	<-done
}

//go:noinline
func (w *Workload) finish(sc *capture.Scope, job *Job) {
	res := &Result{Job: job, Value: job.Request.ID*100 + int64(job.Step)}
	sc.Capture(capture.KeyOf(res))
	w.retain(res)
}

// retain keeps v reachable until retained newer objects replace it.
func (w *Workload) retain(v any) {
	w.mu.Lock()
	w.ring[w.next] = v
	w.next = (w.next + 1) % len(w.ring)
	w.mu.Unlock()
}
