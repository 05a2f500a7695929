package kozo

import (
	"reflect"

	"github.com/edwinsyarief/kozo/internal/engine"
)

// Access is the declared data access of a term.
type Access = engine.InOut

const (
	AccessDefault = engine.InOutDefault
	AccessNone    = engine.InOutNone
	AccessIn      = engine.In
	AccessOut     = engine.Out
	AccessInOut   = engine.InOutRW
)

// resolver maps a term to its id in a world. typ is the Go type the term was
// written with, nil for name based terms.
type resolver func(w *World) (id ID, typ reflect.Type, err error)

// Term describes one element of a query. Terms are values: refiners return a
// modified copy. Ids are resolved when the query is built.
type Term struct {
	resolve resolver
	label   string

	oper   engine.Oper
	access Access
	// explicit is set when access was chosen with Read/Write/In/InOut/...
	explicit bool
	// inferred is the access implied by a tuple element or a "*" in the DSL.
	inferred    Access
	hasInferred bool

	src       engine.SrcKind
	trav      ID
	travName  string
	entity    ID
	srcName   string
	singleton bool
}

func typeTerm[T any]() Term {
	return Term{
		resolve: func(w *World) (ID, reflect.Type, error) {
			id, err := Component[T](w)
			return id, reflect.TypeFor[T](), err
		},
		label: reflect.TypeFor[T]().String(),
	}
}

func reflectTerm(t reflect.Type) Term {
	return Term{
		resolve: func(w *World) (ID, reflect.Type, error) {
			id, err := w.identify(t, engine.TypeHooks{})
			return id, t, err
		},
		label: t.String(),
	}
}

// Read matches entities with T and binds it read-only.
func Read[T any]() Term {
	return typeTerm[T]().withAccess(AccessIn)
}

// Write matches entities with T and binds it for reading and writing.
func Write[T any]() Term {
	return typeTerm[T]().withAccess(AccessInOut)
}

// Out matches entities with T and binds it write-only.
func Out[T any]() Term {
	return typeTerm[T]().withAccess(AccessOut)
}

// With matches entities with T without binding its data.
func With[T any]() Term {
	return typeTerm[T]().withAccess(AccessNone)
}

// Without matches entities that do not have T.
func Without[T any]() Term {
	t := typeTerm[T]().withAccess(AccessNone)
	t.oper = engine.OperNot
	return t
}

// Pair matches the (R, T) pair. Its data is R when R carries data,
// otherwise T.
func Pair[R, T any]() Term {
	return Term{
		resolve: func(w *World) (ID, reflect.Type, error) {
			rel, err := Component[R](w)
			if err != nil {
				return 0, nil, err
			}
			tgt, err := Component[T](w)
			if err != nil {
				return 0, nil, err
			}
			return engine.MakePair(rel, tgt), pairType(w, rel, tgt), nil
		},
		label: "(" + reflect.TypeFor[R]().String() + ", " + reflect.TypeFor[T]().String() + ")",
	}
}

// PairTarget matches the (R, target) pair for a target entity.
func PairTarget[R any](target Entity) Term {
	return Term{
		resolve: func(w *World) (ID, reflect.Type, error) {
			rel, err := Component[R](w)
			if err != nil {
				return 0, nil, err
			}
			return engine.MakePair(rel, target), pairType(w, rel, target), nil
		},
		label: "(" + reflect.TypeFor[R]().String() + ", " + target.String() + ")",
	}
}

// PairWildcard matches every (R, *) pair. The iterator reports the concrete
// pair of each batch through Iter.ID.
func PairWildcard[R any]() Term {
	return PairTarget[R](engine.Wildcard)
}

// TermName matches a component or entity by name. See Lookup.
func TermName(name string) Term {
	return Term{
		resolve: func(w *World) (ID, reflect.Type, error) {
			id, err := Lookup(w, name)
			if err != nil {
				return 0, nil, err
			}
			return id, infoType(w, id), nil
		},
		label: name,
	}
}

// TermID matches a raw id.
func TermID(id ID) Term {
	return Term{
		resolve: func(w *World) (ID, reflect.Type, error) {
			return id, infoType(w, id), nil
		},
		label: id.String(),
	}
}

// pairType returns the Go type storing the data of a pair, if any.
func pairType(w *World, rel, tgt ID) reflect.Type {
	return infoType(w, engine.MakePair(rel, tgt))
}

func infoType(w *World, id ID) reflect.Type {
	if info, ok := w.w.ComponentInfo(id); ok {
		return info.Type
	}
	return nil
}

func (t Term) withAccess(a Access) Term {
	t.access = a
	t.explicit = true
	return t
}

func (t Term) withInferred(a Access) Term {
	t.inferred = a
	t.hasInferred = true
	return t
}

// String returns a readable form of the term.
func (t Term) String() string {
	s := t.label
	switch t.oper {
	case engine.OperNot:
		s = "!" + s
	case engine.OperOptional:
		s = "?" + s
	case engine.OperOr:
		s += " ||"
	}
	return s
}

// Optional makes the term optional; check Iter.IsSet before using its field.
func (t Term) Optional() Term {
	t.oper = engine.OperOptional
	return t
}

// Not makes the term match entities without the id.
func (t Term) Not() Term {
	t.oper = engine.OperNot
	if !t.explicit {
		t.access = AccessNone
	}
	return t
}

// Or chains the term with the next one: at least one of them must match.
func (t Term) Or() Term {
	t.oper = engine.OperOr
	return t
}

// Up matches the id on the first ancestor along rel, ChildOf when rel is 0.
func (t Term) Up(rel ID) Term {
	t.src = engine.SrcUp
	t.trav = rel
	return t
}

// Cascade is Up with results ordered breadth-first along the hierarchy.
func (t Term) Cascade(rel ID) Term {
	t.src = engine.SrcCascade
	t.trav = rel
	return t
}

// Self matches the id on the iterated entity (the default).
func (t Term) Self() Term {
	t.src = engine.SrcSelf
	t.singleton = false
	return t
}

// Src matches the id on a fixed entity.
func (t Term) Src(e Entity) Term {
	t.src = engine.SrcFixed
	t.entity = e
	return t
}

// Singleton matches the id on its own component entity.
func (t Term) Singleton() Term {
	t.src = engine.SrcFixed
	t.singleton = true
	return t
}

// In declares read-only access.
func (t Term) In() Term {
	return t.withAccess(AccessIn)
}

// InOut declares read-write access.
func (t Term) InOut() Term {
	return t.withAccess(AccessInOut)
}

// Filter declares that the term only filters and binds no data.
func (t Term) Filter() Term {
	return t.withAccess(AccessNone)
}

// Shared reports whether the term is matched on an entity other than the
// iterated one.
func (t Term) Shared() bool {
	return t.src != engine.SrcSelf
}
