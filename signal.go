// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

import "reflect"

// Signal is a single dynamically typed cell. It either holds no value, or
// holds a value of some runtime type T together with that type's identity,
// so that a reader can check the type before extracting the value.
//
// Signal is not safe for concurrent use on its own: callers that may read
// and write the same Signal from different goroutines (multi-reader fan-out)
// must serialize access externally (RefTable does this for SignalBus cells).
type Signal struct {
	value any
	typ   reflect.Type
	has   bool
}

// HasValue reports whether s currently holds a value.
func (s *Signal) HasValue() bool {
	return s != nil && s.has
}

// Type returns the stored type identity of s's value, or nil if s is empty.
func (s *Signal) Type() reflect.Type {
	if s == nil {
		return nil
	}
	return s.typ
}

// Set copies the value held by v into s. It is a no-op if v holds no value.
func (s *Signal) Set(v *Signal) {
	if s == nil || v == nil || !v.has {
		return
	}
	s.value = v.value
	s.typ = v.typ
	s.has = true
}

// Emplace stores val in s by value, recording its runtime type.
func (s *Signal) Emplace(val any) {
	if s == nil {
		return
	}
	s.value = val
	s.typ = reflect.TypeOf(val)
	s.has = true
}

// EmplaceSameType stores val in s only if s has never held a value, or if
// val's runtime type is exactly the type s holds (or, when s has been
// cleared, last held). It returns false, leaving s untouched, when the types
// differ so that the caller can fall back to Emplace. This mirrors the
// C++ engine's any::emplace() fast path without depending on any particular
// type-erasure implementation's internals.
func (s *Signal) EmplaceSameType(val any) bool {
	if s == nil {
		return false
	}
	t := reflect.TypeOf(val)
	if s.typ != nil && s.typ != t {
		return false
	}
	s.value = val
	s.typ = t
	s.has = true
	return true
}

// Swap exchanges the contents of s and other, including the "has value"
// flag and the stored type identity. This is the move operation used by
// SignalBus.Move: both cells retain an allocated holder, and no value is
// copied.
func (s *Signal) Swap(other *Signal) {
	if s == nil || other == nil {
		return
	}
	s.value, other.value = other.value, s.value
	s.typ, other.typ = other.typ, s.typ
	s.has, other.has = other.has, s.has
}

// Clear empties s. The cell retains its allocated holder for reuse.
func (s *Signal) Clear() {
	if s == nil {
		return
	}
	s.value = nil
	s.has = false
}

// Value returns s's stored value and whether it is present.
func (s *Signal) Value() (any, bool) {
	if s == nil || !s.has {
		return nil, false
	}
	return s.value, true
}

// SignalValue extracts a typed value from s. It returns the zero value of T
// and false if s is empty or holds a value of a different type.
func SignalValue[T any](s *Signal) (T, bool) {
	var zero T
	if s == nil || !s.has {
		return zero, false
	}
	v, ok := s.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
