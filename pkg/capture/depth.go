package capture

import (
	"fmt"
	"runtime"
	"sync"
)

// DepthMode selects how InsertEnter measures the current stack depth.
type DepthMode int

const (
	// DepthAuto counts program counters and falls back to DepthFrames when
	// the fast path reports nothing.
	DepthAuto DepthMode = iota

	// DepthCallers counts program counters returned by runtime.Callers in
	// fixed-size chunks. No allocation.
	DepthCallers

	// DepthFrames materializes the whole stack through runtime.CallersFrames.
	// Slower, but independent of how the runtime reports PCs.
	DepthFrames
)

func (m DepthMode) String() string {
	switch m {
	case DepthAuto:
		return "auto"
	case DepthCallers:
		return "callers"
	case DepthFrames:
		return "frames"
	default:
		return fmt.Sprintf("DepthMode(%d)", int(m))
	}
}

// ParseDepthMode parses "auto", "callers" or "frames". The empty string is
// DepthAuto.
func ParseDepthMode(s string) (DepthMode, error) {
	switch s {
	case "", "auto":
		return DepthAuto, nil
	case "callers":
		return DepthCallers, nil
	case "frames":
		return DepthFrames, nil
	default:
		return DepthAuto, fmt.Errorf("capture: unknown depth mode %q: want auto|callers|frames", s)
	}
}

// depthFunc returns the number of logical frames on the calling goroutine,
// starting at the caller of the depth function when skip is 0.
type depthFunc func(skip int) int

func (m DepthMode) depthFunc() depthFunc {
	switch m {
	case DepthCallers:
		return countCallers
	case DepthFrames:
		return countFrames
	default:
		return autoDepth
	}
}

const pcChunk = 64

var pcPool = sync.Pool{
	New: func() any {
		buf := make([]uintptr, pcChunk)
		return &buf
	},
}

// callers returns the program counters of the calling goroutine. With skip 0
// the first entry is the function that called callers. runtime.Callers reports
// one PC per logical frame, inlined frames included, so len(result) matches the
// number of frames resolve produces.
func callers(skip int) []uintptr {
	bufp := pcPool.Get().(*[]uintptr)
	buf := *bufp
	for {
		n := runtime.Callers(skip+2, buf)
		if n < len(buf) {
			out := make([]uintptr, n)
			copy(out, buf[:n])
			*bufp = buf
			pcPool.Put(bufp)
			return out
		}
		buf = make([]uintptr, len(buf)*2)
	}
}

// countCallers walks the stack in pcChunk-sized windows and only counts.
func countCallers(skip int) int {
	bufp := pcPool.Get().(*[]uintptr)
	buf := (*bufp)[:pcChunk]
	total := 0
	for {
		n := runtime.Callers(skip+2+total, buf)
		total += n
		if n < len(buf) {
			break
		}
	}
	pcPool.Put(bufp)
	return total
}

func countFrames(skip int) int {
	pcs := callers(skip + 1)
	if len(pcs) == 0 {
		return 0
	}
	frames := runtime.CallersFrames(pcs)
	n := 0
	for {
		_, more := frames.Next()
		n++
		if !more {
			return n
		}
	}
}

func autoDepth(skip int) int {
	if n := countCallers(skip + 1); n > 0 {
		return n
	}
	return countFrames(skip + 1)
}
