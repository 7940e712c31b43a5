package types

import (
	"runtime"
	"strconv"
	"strings"
)

// Frame is one resolved call-stack frame.
type Frame struct {
	// Type is the declaring type: "pkg/path.(*T)" or "pkg/path.T" for methods,
	// the package path for plain functions and closures.
	Type string `json:"type"`

	// File is the absolute source file path as recorded by the compiler.
	File string `json:"file"`

	// Method is the function or method name within Type.
	Method string `json:"method"`

	Line int `json:"line"`
}

// FromRuntime converts a runtime.Frame, splitting its fully qualified function
// name into declaring type and method.
func FromRuntime(rf runtime.Frame) *Frame {
	typ, method := SplitFunction(rf.Function)
	return &Frame{
		Type:   typ,
		File:   rf.File,
		Method: method,
		Line:   rf.Line,
	}
}

// SplitFunction splits a qualified Go function name into declaring type and
// method.
//
//	"example.com/p.(*T).M"  -> "example.com/p.(*T)", "M"
//	"example.com/p.T.M"     -> "example.com/p.T", "M"
//	"example.com/p.f.func1" -> "example.com/p", "f.func1"
//	"main.main"             -> "main", "main"
func SplitFunction(fn string) (typ, method string) {
	if fn == "" {
		return "", ""
	}
	// The package path ends at the first dot after the last slash.
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return fn, ""
	}
	pkgEnd := slash + 1 + dot
	pkg, rest := fn[:pkgEnd], fn[pkgEnd+1:]

	if strings.HasPrefix(rest, "(") {
		if end := strings.Index(rest, ")."); end >= 0 {
			return pkg + "." + rest[:end+1], rest[end+2:]
		}
		return pkg, rest
	}

	recv, tail, ok := strings.Cut(rest, ".")
	if !ok || isClosureSuffix(tail) {
		return pkg, rest
	}
	return pkg + "." + recv, tail
}

// isClosureSuffix reports whether s names a compiler-generated closure or
// deferred wrapper ("func1", "func2.1", "gowrap1", "deferwrap1").
func isClosureSuffix(s string) bool {
	head, _, _ := strings.Cut(s, ".")
	for _, prefix := range []string{"func", "gowrap", "deferwrap"} {
		if n, ok := strings.CutPrefix(head, prefix); ok {
			if _, err := strconv.Atoi(n); err == nil {
				return true
			}
		}
	}
	return false
}

// Tuple renders the frame as (type, file, method, line); a nil frame, which
// marks a stitch boundary, renders as nil.
func (f *Frame) Tuple() []string {
	if f == nil {
		return nil
	}
	return []string{f.Type, f.File, f.Method, strconv.Itoa(f.Line)}
}

// String formats the frame like a Go traceback line. Boundaries print as "...".
func (f *Frame) String() string {
	if f == nil {
		return "..."
	}
	name := f.Method
	if f.Type != "" {
		name = f.Type + "." + f.Method
	}
	return name + "\n\t" + f.File + ":" + strconv.Itoa(f.Line)
}

// Format renders a stitched stack, one frame per entry.
func Format(frames []*Frame) string {
	var sb strings.Builder
	for _, f := range frames {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
