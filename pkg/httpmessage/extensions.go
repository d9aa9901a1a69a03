package httpmessage

import (
	"reflect"
	"sync"
)

// Extensions is a per-message store of values keyed by their type.
// It is safe for concurrent use.
type Extensions struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
}

// Len returns the number of stored values.
func (e *Extensions) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.values)
}

// Clear removes every stored value.
func (e *Extensions) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values = nil
}

func (e *Extensions) get(t reflect.Type) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[t]
	return v, ok
}

func (e *Extensions) insert(t reflect.Type, v any) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.values == nil {
		e.values = make(map[reflect.Type]any)
	}

	prev, ok := e.values[t]
	e.values[t] = v
	return prev, ok
}

func (e *Extensions) remove(t reflect.Type) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.values[t]
	delete(e.values, t)
	return prev, ok
}

// GetExtension returns the value of type T stored in e.
func GetExtension[T any](e *Extensions) (T, bool) {
	v, ok := e.get(reflect.TypeFor[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// HasExtension reports whether a value of type T is stored in e.
func HasExtension[T any](e *Extensions) bool {
	_, ok := e.get(reflect.TypeFor[T]())
	return ok
}

// InsertExtension stores v, replacing and returning any previous value of type T.
func InsertExtension[T any](e *Extensions, v T) (T, bool) {
	prev, ok := e.insert(reflect.TypeFor[T](), v)
	if !ok {
		var zero T
		return zero, false
	}
	return prev.(T), true
}

// RemoveExtension removes and returns the value of type T.
func RemoveExtension[T any](e *Extensions) (T, bool) {
	prev, ok := e.remove(reflect.TypeFor[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return prev.(T), true
}
