package kozo

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/edwinsyarief/kozo/internal/dsl"
	"github.com/edwinsyarief/kozo/internal/engine"
	"go.uber.org/zap"
)

// GroupByFunc computes the group of a table from its sorted type.
type GroupByFunc func(tableType []ID) uint64

// CompareFunc orders two rows by the values of the OrderBy term.
type CompareFunc func(e1 Entity, p1 unsafe.Pointer, e2 Entity, p2 unsafe.Pointer) int

// Compare adapts a typed comparison to a CompareFunc.
func Compare[T any](cmp func(a, b *T) int) CompareFunc {
	return func(_ Entity, p1 unsafe.Pointer, _ Entity, p2 unsafe.Pointer) int {
		return cmp((*T)(p1), (*T)(p2))
	}
}

// QueryBuilder assembles a query from terms, DSL expressions and flags.
// Nothing is validated until Build; the first error wins.
type QueryBuilder struct {
	world     *World
	terms     []Term
	cur       int
	cached    bool
	instanced bool
	groupBy   GroupByFunc
	orderBy   *Term
	compare   CompareFunc
	err       error
}

// QueryOption configures the builder of a typed query after its element
// terms were added.
type QueryOption func(b *QueryBuilder)

// WithTerms appends extra terms, typically filters.
func WithTerms(terms ...Term) QueryOption {
	return func(b *QueryBuilder) {
		b.With(terms...)
	}
}

// WithExpr appends the terms of a DSL expression.
func WithExpr(src string) QueryOption {
	return func(b *QueryBuilder) {
		b.Expr(src)
	}
}

// Cached makes a typed query cached.
func Cached() QueryOption {
	return func(b *QueryBuilder) {
		b.Cached()
	}
}

// NewQueryBuilder starts a query for w.
func NewQueryBuilder(w *World) *QueryBuilder {
	return &QueryBuilder{world: w, cur: -1}
}

// With appends terms. The last one becomes the current term for refiners.
func (b *QueryBuilder) With(terms ...Term) *QueryBuilder {
	b.terms = append(b.terms, terms...)
	b.cur = len(b.terms) - 1
	return b
}

// TermAt selects term i for the refiners that follow.
func (b *QueryBuilder) TermAt(i int) *QueryBuilder {
	if i < 0 || i >= len(b.terms) {
		b.fail(&BuildError{Term: i, Msg: fmt.Sprintf("no term at index %d (query has %d)", i, len(b.terms))})
		return b
	}
	b.cur = i
	return b
}

func (b *QueryBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *QueryBuilder) refine(fn func(Term) Term) *QueryBuilder {
	if b.cur < 0 {
		b.fail(&BuildError{Term: -1, Msg: "refiner used before any term"})
		return b
	}
	b.terms[b.cur] = fn(b.terms[b.cur])
	return b
}

// Optional refines the current term. See Term.Optional.
func (b *QueryBuilder) Optional() *QueryBuilder { return b.refine(Term.Optional) }

// Not refines the current term. See Term.Not.
func (b *QueryBuilder) Not() *QueryBuilder { return b.refine(Term.Not) }

// Or refines the current term. See Term.Or.
func (b *QueryBuilder) Or() *QueryBuilder { return b.refine(Term.Or) }

// Self refines the current term. See Term.Self.
func (b *QueryBuilder) Self() *QueryBuilder { return b.refine(Term.Self) }

// Singleton refines the current term. See Term.Singleton.
func (b *QueryBuilder) Singleton() *QueryBuilder { return b.refine(Term.Singleton) }

// In refines the current term. See Term.In.
func (b *QueryBuilder) In() *QueryBuilder { return b.refine(Term.In) }

// InOut refines the current term. See Term.InOut.
func (b *QueryBuilder) InOut() *QueryBuilder { return b.refine(Term.InOut) }

// Filter refines the current term. See Term.Filter.
func (b *QueryBuilder) Filter() *QueryBuilder { return b.refine(Term.Filter) }

// Up refines the current term. See Term.Up.
func (b *QueryBuilder) Up(rel ID) *QueryBuilder {
	return b.refine(func(t Term) Term { return t.Up(rel) })
}

// Cascade refines the current term. See Term.Cascade.
func (b *QueryBuilder) Cascade(rel ID) *QueryBuilder {
	return b.refine(func(t Term) Term { return t.Cascade(rel) })
}

// Src refines the current term. See Term.Src.
func (b *QueryBuilder) Src(e Entity) *QueryBuilder {
	return b.refine(func(t Term) Term { return t.Src(e) })
}

// Cached keeps matched tables between iterations.
func (b *QueryBuilder) Cached() *QueryBuilder {
	b.cached = true
	return b
}

// Instanced yields whole batches even when the query has shared terms.
func (b *QueryBuilder) Instanced() *QueryBuilder {
	b.instanced = true
	return b
}

// GroupBy iterates tables ordered by the group fn assigns them.
func (b *QueryBuilder) GroupBy(fn GroupByFunc) *QueryBuilder {
	b.groupBy = fn
	return b
}

// OrderBy sorts the rows of each matched table by the data of term.
func (b *QueryBuilder) OrderBy(term Term, cmp CompareFunc) *QueryBuilder {
	b.orderBy = &term
	b.compare = cmp
	return b
}

// Expr parses a DSL expression and appends its terms.
//
// Example:
//
//	q, err := kozo.NewQueryBuilder(w).Expr("*Position, [in] Velocity, !Frozen").Build()
func (b *QueryBuilder) Expr(src string) *QueryBuilder {
	parsed, err := dsl.Parse(src)
	if err != nil {
		b.fail(&BuildError{Term: -1, Expr: src, Cause: err})
		return b
	}
	for _, dt := range parsed.Terms {
		b.With(exprTerm(dt))
	}
	return b
}

var dslAccess = [...]Access{
	dsl.AccessDefault: AccessDefault,
	dsl.AccessIn:      AccessIn,
	dsl.AccessOut:     AccessOut,
	dsl.AccessInOut:   AccessInOut,
	dsl.AccessFilter:  AccessNone,
	dsl.AccessNone:    AccessNone,
}

var dslOper = [...]engine.Oper{
	dsl.OperAnd:      engine.OperAnd,
	dsl.OperOr:       engine.OperOr,
	dsl.OperNot:      engine.OperNot,
	dsl.OperOptional: engine.OperOptional,
}

// exprTerm expands a parsed term into the same Term the typed constructors
// produce.
func exprTerm(dt dsl.Term) Term {
	first, second := dt.First, dt.Second
	var t Term
	if dt.IsPair() {
		t = Term{
			resolve: func(w *World) (ID, reflect.Type, error) {
				rel, err := lookupOrWildcard(w, first)
				if err != nil {
					return 0, nil, err
				}
				tgt, err := lookupOrWildcard(w, second)
				if err != nil {
					return 0, nil, err
				}
				return engine.MakePair(rel, tgt), pairType(w, rel, tgt), nil
			},
			label: "(" + first + ", " + second + ")",
		}
	} else {
		t = TermName(first)
	}
	if dt.Access != dsl.AccessDefault {
		t = t.withAccess(dslAccess[dt.Access])
	}
	if dt.Mutable {
		t = t.withInferred(AccessInOut)
	}
	t.oper = dslOper[dt.Oper]
	if t.oper == engine.OperNot && !t.explicit {
		t.access = AccessNone
	}
	switch dt.Source {
	case dsl.SourceSelf:
		t = t.Self()
	case dsl.SourceSingleton:
		t = t.Singleton()
	case dsl.SourceUp:
		t = t.Up(0)
		t.travName = dt.SourceName
	case dsl.SourceCascade:
		t = t.Cascade(0)
		t.travName = dt.SourceName
	case dsl.SourceEntity:
		t.src = engine.SrcFixed
		t.srcName = dt.SourceName
	}
	return t
}

func lookupOrWildcard(w *World, name string) (ID, error) {
	if name == dsl.Wildcard {
		return engine.Wildcard, nil
	}
	return Lookup(w, name)
}

// boundTerm is the binding information of a built term.
type boundTerm struct {
	id     ID
	typ    reflect.Type
	size   uintptr
	access Access
	shared bool
	label  string
}

// writable reports whether FieldMut may bind the term. Owned terms without an
// explicit access are writable; shared terms default to read-only.
func (bt *boundTerm) writable() bool {
	if bt.access == AccessDefault {
		return !bt.shared
	}
	return bt.access.Writes()
}

// accessCompatible reports whether an explicit access agrees with the access
// implied by how the term was declared.
func accessCompatible(explicit, inferred Access) bool {
	if explicit == inferred {
		return true
	}
	if explicit == AccessNone || inferred == AccessNone {
		return false
	}
	return explicit.Writes() == inferred.Writes()
}

// Build validates the terms and compiles the query. On failure it returns a
// *BuildError and no query.
func (b *QueryBuilder) Build() (*Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	w := b.world
	if len(b.terms) == 0 {
		return nil, &BuildError{Term: -1, Msg: "query has no terms"}
	}
	desc := engine.QueryDesc{
		Terms:     make([]engine.TermDesc, len(b.terms)),
		Cached:    b.cached,
		Instanced: b.instanced,
	}
	bound := make([]boundTerm, len(b.terms))
	for i, t := range b.terms {
		td, bt, err := b.compileTerm(i, t)
		if err != nil {
			return nil, err
		}
		desc.Terms[i] = td
		bound[i] = bt
	}
	if err := checkTerms(b.terms, desc.Terms, bound); err != nil {
		return nil, err
	}
	if b.groupBy != nil {
		fn := b.groupBy
		desc.GroupBy = func(_ *engine.World, tableType []ID, _ ID) uint64 {
			return fn(tableType)
		}
	}
	if b.orderBy != nil {
		id, _, err := b.orderBy.resolve(w)
		if err != nil {
			return nil, &BuildError{Term: -1, Msg: "order by", Cause: err}
		}
		desc.OrderBy = id
		desc.Compare = engine.CompareFunc(b.compare)
	}
	q, err := w.w.CreateQuery(desc)
	if err != nil {
		return nil, &BuildError{Term: -1, Cause: err}
	}
	w.log.Debug("query built", zap.Int("terms", len(bound)), zap.Bool("cached", b.cached))
	return &Query{world: w, q: q, terms: bound}, nil
}

func (b *QueryBuilder) compileTerm(i int, t Term) (engine.TermDesc, boundTerm, error) {
	w := b.world
	fail := func(msg string, cause error) (engine.TermDesc, boundTerm, error) {
		return engine.TermDesc{}, boundTerm{}, &BuildError{Term: i, Msg: msg, Cause: cause}
	}
	if t.resolve == nil {
		return fail("term is empty", nil)
	}
	id, typ, err := t.resolve(w)
	if err != nil {
		return fail(fmt.Sprintf("resolve %s", t.label), err)
	}
	info, hasData := w.w.ComponentInfo(id)
	if typ == nil && hasData {
		typ = info.Type
	}

	access := t.access
	if t.hasInferred {
		if t.explicit && !accessCompatible(t.access, t.inferred) {
			return fail(fmt.Sprintf("%s: explicit access %s contradicts %s implied by the declaration", t.label, t.access, t.inferred), nil)
		}
		if !t.explicit {
			access = t.inferred
		}
	}
	if !hasData && access.Writes() {
		return fail(fmt.Sprintf("%s: write access on an id without data", t.label), nil)
	}

	td := engine.TermDesc{
		ID:     id,
		Oper:   t.oper,
		InOut:  access,
		Src:    t.src,
		Trav:   t.trav,
		Entity: t.entity,
	}
	if t.travName != "" {
		rel, err := Lookup(w, t.travName)
		if err != nil {
			return fail("traversal relationship", err)
		}
		td.Trav = rel
	}
	switch {
	case t.singleton:
		if id.IsPair() {
			return fail(fmt.Sprintf("%s: a pair cannot be a singleton", t.label), nil)
		}
		td.Entity = id
	case t.srcName != "":
		src, err := Lookup(w, t.srcName)
		if err != nil {
			return fail("source entity", err)
		}
		td.Entity = src
	}
	bt := boundTerm{
		id:     id,
		typ:    typ,
		access: access,
		shared: t.Shared(),
		label:  t.label,
	}
	if hasData {
		bt.size = info.Size
	}
	return td, bt, nil
}

// checkTerms validates relations between terms.
func checkTerms(terms []Term, descs []engine.TermDesc, bound []boundTerm) error {
	for i := range descs {
		d := &descs[i]
		if d.Oper == engine.OperOr {
			if i == len(descs)-1 {
				return &BuildError{Term: i, Msg: "or chain is not terminated"}
			}
			if next := descs[i+1].Oper; next == engine.OperNot || next == engine.OperOptional {
				return &BuildError{Term: i + 1, Msg: fmt.Sprintf("%s term cannot be part of an or chain", next)}
			}
		}
		if d.Oper == engine.OperNot || bound[i].size == 0 {
			continue
		}
		for j := i + 1; j < len(descs); j++ {
			o := &descs[j]
			if o.ID != d.ID || o.Src != d.Src || o.Entity != d.Entity || o.Oper == engine.OperNot || bound[j].size == 0 {
				continue
			}
			if bound[i].writable() != bound[j].writable() {
				return &BuildError{Term: j, Msg: fmt.Sprintf("%s is both read and written by terms %d and %d", terms[j].label, i, j)}
			}
		}
	}
	return nil
}
