package objidx

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"unsafe"
)

// identity is the reference identity of a record. The type is part of it
// because a struct and its first field share an address.
type identity struct {
	typ reflect.Type
	ptr unsafe.Pointer
}

func identityOf(record any) (identity, error) {
	rv := reflect.ValueOf(record)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return identity{}, fmt.Errorf("%w: nil %v", ErrInvalidRecord, rv.Type())
		}
		return identity{rv.Type(), rv.UnsafePointer()}, nil
	case reflect.Invalid:
		return identity{}, fmt.Errorf("%w: nil", ErrInvalidRecord)
	default:
		return identity{}, fmt.Errorf("%w: %v has no reference identity, use a pointer or a map", ErrInvalidRecord, rv.Type())
	}
}

// registry maps record identities to surrogate keys and back. Keys are
// assigned in increasing order and never reused.
type registry[T any] struct {
	keys    map[identity]uint64
	records map[uint64]registered[T]
	lastKey uint64
}

type registered[T any] struct {
	record T
	id     identity
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{
		keys:    make(map[identity]uint64),
		records: make(map[uint64]registered[T]),
	}
}

// register returns the existing key for an already registered identity, or
// allocates a new one.
func (r *registry[T]) register(record T, id identity) (key uint64, isNew bool) {
	if key, ok := r.keys[id]; ok {
		return key, false
	}
	r.lastKey++
	key = r.lastKey
	r.keys[id] = key
	r.records[key] = registered[T]{record, id}
	return key, true
}

func (r *registry[T]) keyOf(id identity) (uint64, bool) {
	key, ok := r.keys[id]
	return key, ok
}

func (r *registry[T]) resolve(key uint64) (T, bool) {
	reg, ok := r.records[key]
	return reg.record, ok
}

func (r *registry[T]) unregister(key uint64) error {
	reg, ok := r.records[key]
	if !ok {
		return fmt.Errorf("%w: key %d", ErrNotFound, key)
	}
	delete(r.records, key)
	delete(r.keys, reg.id)
	return nil
}

func (r *registry[T]) len() int {
	return len(r.records)
}

// snapshot copies the live records in key order, which is the order they
// were first added in.
func (r *registry[T]) snapshot() []T {
	keys := slices.Sorted(maps.Keys(r.records))
	result := make([]T, len(keys))
	for i, key := range keys {
		result[i] = r.records[key].record
	}
	return result
}
