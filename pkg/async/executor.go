package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/obsidianstack/capturestack/pkg/capture"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("async: executor closed")

// Executor runs submitted functions on a fixed pool of worker goroutines. Each
// worker owns one scope for its lifetime.
type Executor struct {
	store *capture.Store
	tasks chan *task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewExecutor starts workers goroutines recording into st, with a queue of
// queue pending tasks. workers < 1 is treated as 1.
func NewExecutor(st *capture.Store, workers, queue int) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	e := &Executor{
		store: st,
		tasks: make(chan *task, queue),
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	return e
}

// Submit captures the caller's stack for the task and queues it. It blocks
// while the queue is full, until ctx is done.
//
//go:noinline
func (e *Executor) Submit(ctx context.Context, sc *capture.Scope, fn Func) error {
	t := newTask(fn)
	sc.Capture(t.key)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	select {
	case e.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued tasks to finish.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Executor) worker(id int) {
	defer e.wg.Done()
	sc := e.store.NewScope()
	for t := range e.tasks {
		t.run(sc)
		if d := sc.Depth(); d != 0 {
			// A task disabled the store mid-region; start the next one clean.
			slog.Debug("async: worker scope unbalanced after task", "worker", id, "depth", d)
			sc = e.store.NewScope()
		}
	}
}
