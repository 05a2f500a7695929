package kozo

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/edwinsyarief/kozo/internal/engine"
)

// Optional is a tuple element for a component that may be missing.
// Optional[T] reads a copy, Optional[*T] points into table storage.
type Optional[T any] struct {
	ptr unsafe.Pointer
}

// Get returns the value and whether the component is present.
func (o Optional[T]) Get() (T, bool) {
	var zero T
	if o.ptr == nil {
		return zero, false
	}
	if reflect.TypeFor[T]().Kind() == reflect.Pointer {
		return *(*T)(unsafe.Pointer(&o.ptr)), true
	}
	return *(*T)(o.ptr), true
}

// IsSet reports whether the component is present.
func (o Optional[T]) IsSet() bool {
	return o.ptr != nil
}

func (*Optional[T]) elem() elemSpec {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		return elemSpec{term: reflectTerm(t.Elem()), access: AccessInOut, optional: true}
	}
	return elemSpec{term: typeTerm[T](), access: AccessIn, optional: true}
}

// PairData is a tuple element for the (R, T) pair whose data is R.
// PairData[R, T] reads a copy, *PairData[R, T] points into table storage.
type PairData[R, T any] struct {
	Value R
}

func (*PairData[R, T]) elem() elemSpec {
	return elemSpec{term: Pair[R, T](), access: AccessIn, deref: true}
}

// specifier is implemented by the wrapper element types.
type specifier interface {
	elem() elemSpec
}

// elemSpec is the term a tuple element expands to and how its value is
// produced from a column pointer: deref copies the element, otherwise the
// pointer itself is the element.
type elemSpec struct {
	term     Term
	access   Access
	optional bool
	deref    bool
}

// inferElem derives the term of a tuple element: T reads, *T writes, and the
// wrapper types add optionality or pairs.
func inferElem[E any]() elemSpec {
	var zero E
	if s, ok := any(zero).(specifier); ok {
		// *PairData[R, T]
		spec := s.elem()
		if spec.optional {
			t := reflect.TypeFor[E]()
			return elemSpec{term: invalidTerm(t, "use Optional[*T] for a writable optional element")}
		}
		spec.access = AccessInOut
		spec.deref = false
		return spec.finish()
	}
	if s, ok := any(&zero).(specifier); ok {
		return s.elem().finish()
	}
	t := reflect.TypeFor[E]()
	if t.Kind() == reflect.Pointer {
		return elemSpec{term: reflectTerm(t.Elem()), access: AccessInOut}.finish()
	}
	access := AccessIn
	if t.Size() == 0 {
		access = AccessNone
	}
	return elemSpec{term: typeTerm[E](), access: access, deref: true}.finish()
}

func (s elemSpec) finish() elemSpec {
	s.term = s.term.withInferred(s.access)
	if s.optional {
		s.term = s.term.Optional()
	}
	return s
}

func invalidTerm(t reflect.Type, msg string) Term {
	return Term{
		resolve: func(*World) (ID, reflect.Type, error) {
			return 0, nil, registrationError(t, symbolOf(t), ErrUnsupportedType, "%s", msg)
		},
		label: t.String(),
	}
}

// checkElems rejects refinements that can leave a copied element unbound:
// a value element cannot tell an optional or or-chained miss from the zero
// value. Not terms are allowed and bind the zero value.
func checkElems(b *QueryBuilder, specs []elemSpec) {
	for i, s := range specs {
		if !s.deref || i >= len(b.terms) {
			continue
		}
		t := b.terms[i]
		chained := i > 0 && b.terms[i-1].oper == engine.OperOr
		if t.oper == engine.OperOptional || t.oper == engine.OperOr || chained {
			b.fail(&BuildError{Term: i, Msg: fmt.Sprintf(
				"%s: value element may be unset, declare it as Optional[T] or *T", t.label)})
		}
	}
}

// bindElem produces the tuple element for a row. An unbound term yields the
// zero element.
func bindElem[E any](deref bool, base unsafe.Pointer, stride uintptr, row int) E {
	if base == nil {
		var zero E
		return zero
	}
	p := unsafe.Add(base, uintptr(row)*stride)
	if deref {
		return *(*E)(p)
	}
	return *(*E)(unsafe.Pointer(&p))
}
