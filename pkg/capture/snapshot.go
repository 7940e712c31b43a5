package capture

import (
	"runtime"
	"time"

	"github.com/obsidianstack/capturestack/pkg/types"
)

// InsertMatch pairs an ancestor snapshot with the raw stack depth measured
// when the enclosing insertion region was entered.
type InsertMatch struct {
	stack *Snapshot
	depth int
}

// emptyMatch is pushed when a region is entered for a key that has no stored
// snapshot.
var emptyMatch = &InsertMatch{}

func (m *InsertMatch) empty() bool { return m == nil || m == emptyMatch }

// Snapshot is an immutable captured call stack. A snapshot created inside an
// insertion region carries an InsertMatch and is "deep": its frames continue
// into the ancestor's frames after a stitch boundary.
type Snapshot struct {
	pcs        []uintptr // pcs[0] is the Capture frame
	match      *InsertMatch
	capturedAt time.Time
}

func newSnapshot(pcs []uintptr, match *InsertMatch, now time.Time) *Snapshot {
	if match.empty() {
		match = nil
	}
	return &Snapshot{pcs: pcs, match: match, capturedAt: now}
}

// Deep reports whether the snapshot is stitched to an ancestor.
func (s *Snapshot) Deep() bool { return s.match != nil }

// Ancestor returns the snapshot this one is stitched to, or nil.
func (s *Snapshot) Ancestor() *Snapshot {
	if s.match == nil {
		return nil
	}
	return s.match.stack
}

// CapturedAt returns the time of the capture.
func (s *Snapshot) CapturedAt() time.Time { return s.capturedAt }

// RawDepth returns the number of frames captured, including the Capture frame.
func (s *Snapshot) RawDepth() int { return len(s.pcs) }

// Frames resolves the snapshot into caller-visible frames. The Capture frame is
// dropped; for a deep snapshot the result is the local frames down to the frame
// that entered the insertion region, a nil boundary, then the ancestor's frames
// (resolved recursively). Nothing is cached: ancestors are shared between
// descendants and resolved on demand.
func (s *Snapshot) Frames() []*types.Frame {
	raw := resolve(s.pcs)
	if len(raw) == 0 {
		return nil
	}
	if s.match == nil {
		return raw[1:]
	}
	return splice(raw, s.match.depth, s.match.stack.Frames())
}

// splice joins raw[1:insertPos], a boundary and the ancestor frames, where
// insertPos = len(raw) - depth + 2. depth counts InsertEnter and everything
// below it, raw counts Capture and everything below it; the +2 offsets the
// Capture frame at raw[0] and keeps the frame that called InsertEnter, so the
// splice lands on the application frame that entered the region.
func splice(raw []*types.Frame, depth int, ancestor []*types.Frame) []*types.Frame {
	insertPos := len(raw) - depth + 2
	// Only a scope left unbalanced by a mid-region disable can get here out of
	// range.
	insertPos = min(max(insertPos, 1), len(raw))

	out := make([]*types.Frame, 0, insertPos+len(ancestor))
	out = append(out, raw[1:insertPos]...)
	out = append(out, nil)
	return append(out, ancestor...)
}

func resolve(pcs []uintptr) []*types.Frame {
	if len(pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs)
	out := make([]*types.Frame, 0, len(pcs))
	for {
		f, more := frames.Next()
		out = append(out, types.FromRuntime(f))
		if !more {
			break
		}
	}
	return out
}
