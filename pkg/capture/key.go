package capture

import (
	"fmt"
	"reflect"
	"unsafe"
	"weak"
)

// referent is the type-erased side of a weak pointer. Implementations must be
// comparable so that Key can be used as a map key.
type referent interface {
	live() bool
	typeName() string
}

type weakRef[T any] struct {
	p weak.Pointer[T]
}

func (r weakRef[T]) live() bool { return r.p.Value() != nil }

func (r weakRef[T]) typeName() string { return "*" + reflect.TypeFor[T]().String() }

// Key identifies a tracked object without keeping it reachable.
//
// Keys compare by pointer identity: KeyOf(p) == KeyOf(q) iff p == q. The
// comparison stays valid after the object has been collected, so a Key can sit
// in a map indefinitely. Pointers to zero-size values may share an address and
// are therefore not distinguishable.
type Key struct {
	ref referent
	id  uintptr
}

// KeyOf returns the identity key for p. KeyOf(nil) is the zero Key, which every
// store operation ignores.
func KeyOf[T any](p *T) Key {
	if p == nil {
		return Key{}
	}
	return Key{
		ref: weakRef[T]{p: weak.Make(p)},
		id:  uintptr(unsafe.Pointer(p)),
	}
}

// IsZero reports whether k was built from a nil pointer.
func (k Key) IsZero() bool { return k.ref == nil }

// ID returns the identity hash computed when the key was built: the object's
// address at that time.
func (k Key) ID() uint64 { return uint64(k.id) }

// Live reports whether the referent is still reachable.
func (k Key) Live() bool { return k.ref != nil && k.ref.live() }

// TypeName returns the Go type of the referent, e.g. "*http.Request".
func (k Key) TypeName() string {
	if k.ref == nil {
		return ""
	}
	return k.ref.typeName()
}

func (k Key) String() string {
	if k.ref == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s@%#x", k.ref.typeName(), k.id)
}
