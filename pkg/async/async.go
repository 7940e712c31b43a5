package async

import (
	"github.com/obsidianstack/capturestack/pkg/capture"
)

// Func is a unit of work. It receives the scope of the goroutine running it.
type Func func(sc *capture.Scope)

// task is the tracked object for one submission.
type task struct {
	fn  Func
	key capture.Key
}

func newTask(fn Func) *task {
	t := &task{fn: fn}
	t.key = capture.KeyOf(t)
	return t
}

// run executes the task inside an insertion region for it.
//
//go:noinline
func (t *task) run(sc *capture.Scope) {
	sc.InsertEnter(t.key)
	defer sc.InsertExit(t.key)
	t.fn(sc)
}

// Go runs fn on a new goroutine with a fresh scope on parent's store.
//
//go:noinline
func Go(parent *capture.Scope, fn Func) {
	t := newTask(fn)
	parent.Capture(t.key)
	sc := parent.Store().NewScope()
	go t.run(sc)
}
