package capture_test

import (
	"runtime"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/capturestack/pkg/capture"
	"github.com/obsidianstack/capturestack/pkg/types"
)

// inRegion runs body inside an insertion region for region. The frame that
// calls InsertEnter is inRegion itself, so stitched stacks captured in body
// must end their local part on it.
//
//go:noinline
func inRegion(sc *capture.Scope, region capture.Key, body func()) {
	sc.InsertEnter(region)
	body()
	sc.InsertExit(region)
}

func countBoundaries(frames []*types.Frame) int {
	n := 0
	for _, f := range frames {
		if f == nil {
			n++
		}
	}
	return n
}

var depthModes = []capture.DepthMode{capture.DepthAuto, capture.DepthCallers, capture.DepthFrames}

func TestScope_StitchesToAncestor(t *testing.T) {
	t.Parallel()

	for _, mode := range depthModes {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			st := capture.New(capture.WithDepthMode(mode))
			sc := st.NewScope()
			a, b := &object{name: "a"}, &object{name: "b"}

			captureAt(sc, capture.KeyOf(a))
			inRegion(sc, capture.KeyOf(a), func() {
				captureAt(sc, capture.KeyOf(b))
			})

			framesA, ok := st.RelatedStack(capture.KeyOf(a))
			require.True(t, ok)
			framesB, ok := st.RelatedStack(capture.KeyOf(b))
			require.True(t, ok)

			snapB, _ := st.Snapshot(capture.KeyOf(b))
			snapA, _ := st.Snapshot(capture.KeyOf(a))
			assert.True(t, snapB.Deep())
			assert.Same(t, snapA, snapB.Ancestor())
			assert.False(t, snapA.Deep())

			// captureAt, the body closure, inRegion | boundary | a's frames.
			i := slices.Index(framesB, nil)
			require.Equal(t, 3, i, "local frames:\n%s", types.Format(framesB))
			assert.Equal(t, "captureAt", framesB[0].Method)
			assert.Equal(t, "inRegion", framesB[i-1].Method)
			assert.Equal(t, framesA, framesB[i+1:])
			assert.Zero(t, sc.Depth())
			runtime.KeepAlive(a)
			runtime.KeepAlive(b)
		})
	}
}

func TestScope_RecursiveStitching(t *testing.T) {
	t.Parallel()

	st := capture.New()
	sc := st.NewScope()
	root, mid, leaf := &object{name: "root"}, &object{name: "mid"}, &object{name: "leaf"}

	captureAt(sc, capture.KeyOf(root))
	inRegion(sc, capture.KeyOf(root), func() {
		captureAt(sc, capture.KeyOf(mid))
	})
	inRegion(sc, capture.KeyOf(mid), func() {
		captureAt(sc, capture.KeyOf(leaf))
	})

	framesRoot, _ := st.RelatedStack(capture.KeyOf(root))
	framesMid, _ := st.RelatedStack(capture.KeyOf(mid))
	framesLeaf, ok := st.RelatedStack(capture.KeyOf(leaf))
	require.True(t, ok)

	assert.Equal(t, 2, countBoundaries(framesLeaf))
	i := slices.Index(framesLeaf, nil)
	assert.Equal(t, framesMid, framesLeaf[i+1:], "leaf continues with mid's whole stack")

	j := slices.Index(framesMid, nil)
	assert.Equal(t, framesRoot, framesMid[j+1:])
	assert.Equal(t, framesRoot, framesLeaf[len(framesLeaf)-len(framesRoot):], "no truncation at the end")
	runtime.KeepAlive([]*object{root, mid, leaf})
}

func TestScope_NestedRegionsUseInnermost(t *testing.T) {
	t.Parallel()

	st := capture.New()
	sc := st.NewScope()
	outer, inner, obj := &object{}, &object{}, &object{}
	captureAt(sc, capture.KeyOf(outer))
	captureAt(sc, capture.KeyOf(inner))

	inRegion(sc, capture.KeyOf(outer), func() {
		inRegion(sc, capture.KeyOf(inner), func() {
			assert.Equal(t, 2, sc.Depth())
			captureAt(sc, capture.KeyOf(obj))
		})
		assert.Equal(t, 1, sc.Depth())
	})

	snap, ok := st.Snapshot(capture.KeyOf(obj))
	require.True(t, ok)
	innerSnap, _ := st.Snapshot(capture.KeyOf(inner))
	assert.Same(t, innerSnap, snap.Ancestor())
}

func TestScope_EnterWithoutStoredStack(t *testing.T) {
	t.Parallel()

	st := capture.New()
	sc := st.NewScope()
	unknown, obj := &object{}, &object{}

	inRegion(sc, capture.KeyOf(unknown), func() {
		assert.Equal(t, 1, sc.Depth(), "an empty marker is still pushed")
		captureAt(sc, capture.KeyOf(obj))
	})

	snap, ok := st.Snapshot(capture.KeyOf(obj))
	require.True(t, ok)
	assert.False(t, snap.Deep())
	frames, ok := st.RelatedStack(capture.KeyOf(obj))
	require.True(t, ok)
	assert.Equal(t, "captureAt", frames[0].Method)
	assert.Zero(t, countBoundaries(frames))
	assert.Equal(t, uint64(1), st.Stats().EnterMisses)
	runtime.KeepAlive(obj)
}

func TestScope_DisableMidRegionLeavesMarker(t *testing.T) {
	t.Parallel()

	st := capture.New()
	sc := st.NewScope()
	a := &object{}
	sc.Capture(capture.KeyOf(a))

	sc.InsertEnter(capture.KeyOf(a))
	st.SetEnabled(false)
	sc.InsertExit(capture.KeyOf(a))
	st.SetEnabled(true)

	assert.Equal(t, 1, sc.Depth(), "the exit issued while disabled is lost")
}

func TestScope_ExitWithoutEnter(t *testing.T) {
	t.Parallel()

	st := capture.New(capture.WithDebug(true))
	sc := st.NewScope()

	assert.NotPanics(t, func() { sc.InsertExit(capture.KeyOf(&object{})) })
	assert.Zero(t, sc.Depth())
}

func TestScope_ExitDoesNotValidateKey(t *testing.T) {
	t.Parallel()

	st := capture.New()
	sc := st.NewScope()
	a, b, obj := &object{}, &object{}, &object{}
	sc.Capture(capture.KeyOf(a))

	sc.InsertEnter(capture.KeyOf(a))
	sc.InsertExit(capture.KeyOf(b))
	assert.Zero(t, sc.Depth())

	captureAt(sc, capture.KeyOf(obj))
	snap, _ := st.Snapshot(capture.KeyOf(obj))
	assert.False(t, snap.Deep())
}
