package kozo

import (
	"fmt"
	"reflect"
	"unsafe"
)

// FieldView is a read-only view of one term over the current batch.
type FieldView[T any] struct {
	base unsafe.Pointer
	n    int
}

// Field binds term i of the current batch for reading. Shared terms have
// length 1, unset optional terms length 0. It panics with *BindingMismatch
// when T does not match the term.
func Field[T any](it *Iter, i int) FieldView[T] {
	it.checkBinding(i, reflect.TypeFor[T](), false)
	return FieldView[T]{base: it.it.Column(i), n: fieldLen(it, i)}
}

func fieldLen(it *Iter, i int) int {
	switch {
	case !it.it.IsSet(i) || it.it.Column(i) == nil:
		return 0
	case !it.it.IsSelf(i):
		return 1
	}
	return it.it.Count()
}

// Len returns the number of elements.
func (f FieldView[T]) Len() int {
	return f.n
}

// At returns a copy of element i.
func (f FieldView[T]) At(i int) T {
	if uint(i) >= uint(f.n) {
		panic(fmt.Sprintf("ecs: field index %d out of range [0:%d]", i, f.n))
	}
	return unsafe.Slice((*T)(f.base), f.n)[i]
}

// Each calls fn with every element.
func (f FieldView[T]) Each(fn func(i int, v T)) {
	if f.n == 0 {
		return
	}
	for i, v := range unsafe.Slice((*T)(f.base), f.n) {
		fn(i, v)
	}
}

// FieldMutView is a writable view of one term over the current batch.
type FieldMutView[T any] struct {
	s []T
}

// FieldMut binds term i of the current batch for writing. It panics with
// *BindingMismatch when T does not match the term or the term is read-only.
func FieldMut[T any](it *Iter, i int) FieldMutView[T] {
	it.checkBinding(i, reflect.TypeFor[T](), true)
	n := fieldLen(it, i)
	if n == 0 {
		return FieldMutView[T]{}
	}
	return FieldMutView[T]{s: unsafe.Slice((*T)(it.it.Column(i)), n)}
}

// Len returns the number of elements.
func (f FieldMutView[T]) Len() int {
	return len(f.s)
}

// At returns a pointer to element i. The pointer is valid until the
// iterator advances.
func (f FieldMutView[T]) At(i int) *T {
	return &f.s[i]
}

// Slice returns the elements as a slice aliasing table storage.
func (f FieldMutView[T]) Slice() []T {
	return f.s
}

// FieldAt returns a copy of term i for the entity at row. Shared terms ignore
// row.
func FieldAt[T any](it *Iter, i, row int) T {
	it.checkBinding(i, reflect.TypeFor[T](), false)
	if !it.it.IsSelf(i) {
		row = 0
	}
	return Field[T](it, i).At(row)
}
