package engine

import (
	"cmp"
	"slices"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Oper is the operator of a query term.
type Oper uint8

const (
	OperAnd Oper = iota
	// OperOr chains a term with the term that follows it.
	OperOr
	OperNot
	OperOptional
)

func (o Oper) String() string {
	switch o {
	case OperAnd:
		return "and"
	case OperOr:
		return "or"
	case OperNot:
		return "not"
	case OperOptional:
		return "optional"
	}
	return "unknown"
}

// InOut is the data access a term declares.
type InOut uint8

const (
	InOutDefault InOut = iota
	// InOutNone declares no data access (tags and filters).
	InOutNone
	In
	Out
	InOutRW
)

func (a InOut) String() string {
	switch a {
	case InOutDefault:
		return "default"
	case InOutNone:
		return "none"
	case In:
		return "in"
	case Out:
		return "out"
	case InOutRW:
		return "inout"
	}
	return "unknown"
}

// Writes reports whether the access allows writing.
func (a InOut) Writes() bool {
	return a == Out || a == InOutRW
}

// SrcKind selects where a term is matched.
type SrcKind uint8

const (
	// SrcSelf matches the iterated entity itself.
	SrcSelf SrcKind = iota
	// SrcUp matches the first ancestor along a traversable relationship.
	SrcUp
	// SrcCascade is SrcUp with tables iterated in breadth-first depth order.
	SrcCascade
	// SrcFixed matches a single, fixed entity (singletons and variables).
	SrcFixed
)

func (s SrcKind) String() string {
	switch s {
	case SrcSelf:
		return "self"
	case SrcUp:
		return "up"
	case SrcCascade:
		return "cascade"
	case SrcFixed:
		return "fixed"
	}
	return "unknown"
}

// TermDesc is one term of a query descriptor.
type TermDesc struct {
	ID     ID
	Oper   Oper
	InOut  InOut
	Src    SrcKind
	Trav   ID // traversal relationship for SrcUp/SrcCascade, ChildOf when zero
	Entity ID // source entity for SrcFixed
}

// Shared reports whether the term is matched on an entity other than the
// iterated one. Shared fields have a single value per batch.
func (t *TermDesc) Shared() bool {
	return t.Src != SrcSelf
}

// GroupByFunc computes the group of a table from its type.
type GroupByFunc func(w *World, tableType []ID, groupID ID) uint64

// CompareFunc orders two rows by the values of the OrderBy component.
type CompareFunc func(e1 ID, p1 unsafe.Pointer, e2 ID, p2 unsafe.Pointer) int

// QueryDesc describes a query to compile.
type QueryDesc struct {
	Terms []TermDesc
	// Cached keeps the list of candidate tables between iterations.
	Cached bool
	// Instanced yields whole batches even when shared fields are present.
	// Non-instanced queries with shared fields yield one row per batch.
	Instanced bool
	GroupBy   GroupByFunc
	GroupID   ID
	OrderBy   ID
	Compare   CompareFunc
}

// Query is a compiled query descriptor. It is reference counted so it can be
// shared between systems, observers and manual iteration.
type Query struct {
	world        *World
	desc         QueryDesc
	include      bitset
	exclude      bitset
	candidates   []*table
	tableVersion uint64
	refs         int
	shared       bool
	dead         bool
}

// CreateQuery validates and compiles a query descriptor. The returned query
// holds one reference.
func (w *World) CreateQuery(desc QueryDesc) (*Query, error) {
	if w.finished {
		return nil, ErrWorldFinished
	}
	desc.Terms = slices.Clone(desc.Terms)
	if err := w.validateQuery(&desc); err != nil {
		w.log.Debug("query rejected", zap.Error(err))
		return nil, err
	}
	q := &Query{world: w, desc: desc, refs: 1}
	for i := range desc.Terms {
		t := &desc.Terms[i]
		if t.Shared() {
			q.shared = true
		}
		if t.Src != SrcSelf || t.ID.HasWildcard() {
			continue
		}
		// The last term of an or chain is not required on its own.
		if i > 0 && desc.Terms[i-1].Oper == OperOr {
			continue
		}
		switch t.Oper {
		case OperAnd:
			q.include.set(w.slotOf(t.ID))
		case OperNot:
			q.exclude.set(w.slotOf(t.ID))
		}
	}
	if desc.Cached {
		w.queries = append(w.queries, q)
		q.updateCandidates()
	}
	return q, nil
}

func (w *World) validateQuery(desc *QueryDesc) error {
	if len(desc.Terms) == 0 {
		return errors.Wrap(ErrQueryInvalid, "query has no terms")
	}
	required := false
	for i := range desc.Terms {
		t := &desc.Terms[i]
		if t.ID == 0 {
			return errors.Wrapf(ErrQueryInvalid, "term %d: id is zero", i)
		}
		if t.ID.IsPair() {
			first, second := t.ID.First(), t.ID.Second()
			if (first != Wildcard && w.aliveByIndex(uint32(first)) == 0) ||
				(second != Wildcard && w.aliveByIndex(uint32(second)) == 0) {
				return errors.Wrapf(ErrQueryInvalid, "term %d: pair %s refers to a dead entity", i, t.ID)
			}
		} else if !w.IsAlive(t.ID) {
			return errors.Wrapf(ErrQueryInvalid, "term %d: %s is not alive", i, t.ID)
		}
		if t.ID.HasWildcard() && t.InOut.Writes() {
			return errors.Wrapf(ErrQueryInvalid, "term %d: cannot write wildcard %s", i, t.ID)
		}
		switch t.Src {
		case SrcUp, SrcCascade:
			if t.Trav == 0 {
				t.Trav = ChildOf
			}
			if !w.IsAlive(t.Trav) || !w.Has(t.Trav, Traversable) {
				return errors.Wrapf(ErrQueryInvalid, "term %d: relationship %s is not traversable", i, t.Trav)
			}
		case SrcFixed:
			if !w.IsAlive(t.Entity) {
				return errors.Wrapf(ErrQueryInvalid, "term %d: source %s is not alive", i, t.Entity)
			}
		}
		if t.Oper == OperOr {
			if i == len(desc.Terms)-1 {
				return errors.Wrapf(ErrQueryInvalid, "term %d: or chain is not terminated", i)
			}
			if next := desc.Terms[i+1].Oper; next == OperNot || next == OperOptional {
				return errors.Wrapf(ErrQueryInvalid, "term %d: cannot or with a %s term", i, next)
			}
		}
		if t.Oper == OperAnd || t.Oper == OperOr {
			required = true
		}
	}
	if !required {
		return errors.Wrap(ErrQueryInvalid, "query has no required terms")
	}
	if desc.OrderBy != 0 {
		if desc.Compare == nil {
			return errors.Wrap(ErrQueryInvalid, "order by requires a compare function")
		}
		if w.typeRecord(desc.OrderBy) == nil {
			return errors.Wrapf(ErrQueryInvalid, "order by %s: not a data component", desc.OrderBy)
		}
	}
	return nil
}

// Terms returns the terms of the query.
func (q *Query) Terms() []TermDesc {
	return q.desc.Terms
}

// Desc returns the descriptor the query was compiled from.
func (q *Query) Desc() QueryDesc {
	return q.desc
}

// World returns the world the query belongs to.
func (q *Query) World() *World {
	return q.world
}

// Retain adds a reference.
func (q *Query) Retain() *Query {
	if q.dead {
		panic("ecs: retain of a destroyed query")
	}
	q.refs++
	return q
}

// Release drops a reference, destroying the query with the last one.
func (q *Query) Release() {
	if q.dead {
		return
	}
	q.refs--
	if q.refs <= 0 {
		q.destroy()
	}
}

// Refs returns the number of live references.
func (q *Query) Refs() int {
	return q.refs
}

// Alive reports whether the query can still be iterated.
func (q *Query) Alive() bool {
	return !q.dead
}

func (q *Query) destroy() {
	if q.dead {
		return
	}
	q.dead = true
	q.refs = 0
	q.candidates = nil
	if i := slices.Index(q.world.queries, q); i >= 0 {
		q.world.queries = slices.Delete(q.world.queries, i, i+1)
	}
}

// isStale reports whether tables were created since candidates were computed.
func (q *Query) isStale() bool {
	return q.tableVersion != q.world.tableVersion
}

func (q *Query) updateCandidates() {
	q.candidates = q.candidates[:0]
	for _, t := range q.world.tables {
		if q.filter(t) {
			q.candidates = append(q.candidates, t)
		}
	}
	q.tableVersion = q.world.tableVersion
}

// filter is the static part of table matching.
func (q *Query) filter(t *table) bool {
	return t.set.contains(q.include) && !t.set.intersects(q.exclude)
}

// termMatch is the result of matching one term against a table.
type termMatch struct {
	id  ID // matched concrete id
	src ID // source entity for shared terms
	col int
	set bool
}

// tableMatch is a table matched by a query.
type tableMatch struct {
	t     *table
	terms []termMatch
	group uint64
	depth int
}

const maxTraversalDepth = 256

// matchTable matches all terms against t. Shared terms are resolved against
// the current state of their source entities.
func (q *Query) matchTable(t *table) (tableMatch, bool) {
	w := q.world
	terms := q.desc.Terms
	m := tableMatch{t: t, terms: make([]termMatch, len(terms))}
	for i := range terms {
		m.terms[i] = q.matchTerm(&terms[i], t)
	}
	for i := 0; i < len(terms); {
		if terms[i].Oper == OperOr {
			end := i
			for end < len(terms)-1 && terms[end].Oper == OperOr {
				end++
			}
			matched := false
			for j := i; j <= end; j++ {
				matched = matched || m.terms[j].set
			}
			if !matched {
				return m, false
			}
			i = end + 1
			continue
		}
		switch terms[i].Oper {
		case OperAnd:
			if !m.terms[i].set {
				return m, false
			}
		case OperNot:
			if m.terms[i].set {
				return m, false
			}
		}
		i++
	}
	for i := range terms {
		if terms[i].Src == SrcCascade {
			m.depth = w.tableDepth(t, terms[i].Trav)
			break
		}
	}
	if q.desc.GroupBy != nil {
		m.group = q.desc.GroupBy(w, t.ids, q.desc.GroupID)
	}
	return m, true
}

func (q *Query) matchTerm(term *TermDesc, t *table) termMatch {
	w := q.world
	switch term.Src {
	case SrcSelf:
		id, ok := t.findMatch(term.ID)
		if !ok {
			return termMatch{col: -1}
		}
		return termMatch{id: id, col: t.index[id], set: true}
	case SrcFixed:
		if !w.IsAlive(term.Entity) {
			return termMatch{col: -1}
		}
		id, ok := w.entities.metas[term.Entity.Index()].table.findMatch(term.ID)
		if !ok {
			return termMatch{col: -1}
		}
		return termMatch{id: id, src: term.Entity, col: -1, set: true}
	default:
		cur := t
		for depth := 0; depth < maxTraversalDepth; depth++ {
			idx, ok := cur.target(term.Trav)
			if !ok {
				break
			}
			src := w.aliveByIndex(idx)
			if src == 0 {
				break
			}
			cur = w.entities.metas[idx].table
			if id, ok := cur.findMatch(term.ID); ok {
				return termMatch{id: id, src: src, col: -1, set: true}
			}
		}
		return termMatch{col: -1}
	}
}

// tableDepth returns the number of traversal hops from t to a root.
func (w *World) tableDepth(t *table, rel ID) int {
	depth := 0
	cur := t
	for depth < maxTraversalDepth {
		idx, ok := cur.target(rel)
		if !ok {
			break
		}
		if w.aliveByIndex(idx) == 0 {
			break
		}
		depth++
		cur = w.entities.metas[idx].table
	}
	return depth
}

// collect returns the matched, non-empty tables in iteration order.
func (q *Query) collect() []tableMatch {
	var tables []*table
	if q.desc.Cached {
		if q.isStale() {
			q.updateCandidates()
		}
		tables = q.candidates
	} else {
		for _, t := range q.world.tables {
			if q.filter(t) {
				tables = append(tables, t)
			}
		}
	}
	matches := make([]tableMatch, 0, len(tables))
	for _, t := range tables {
		if t.size == 0 {
			continue
		}
		if m, ok := q.matchTable(t); ok {
			matches = append(matches, m)
		}
	}
	if q.desc.GroupBy != nil {
		slices.SortStableFunc(matches, func(a, b tableMatch) int {
			if c := cmp.Compare(a.group, b.group); c != 0 {
				return c
			}
			return cmp.Compare(a.depth, b.depth)
		})
	} else {
		slices.SortStableFunc(matches, func(a, b tableMatch) int {
			return cmp.Compare(a.depth, b.depth)
		})
	}
	if q.desc.OrderBy != 0 {
		for i := range matches {
			q.world.sortTable(matches[i].t, q.desc.OrderBy, q.desc.Compare)
		}
	}
	return matches
}

// sortTable reorders the rows of t by the values of id.
func (w *World) sortTable(t *table, id ID, compare CompareFunc) {
	col, ok := t.index[id]
	if !ok || col < 0 || t.size < 2 || t.lock > 0 {
		return
	}
	perm := make([]int, t.size)
	for i := range perm {
		perm[i] = i
	}
	sorted := slices.IsSortedFunc(perm, func(a, b int) int {
		return w.compareRows(t, col, a, b, compare)
	})
	if sorted {
		return
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		return w.compareRows(t, col, a, b, compare)
	})
	w.reorder(t, perm)
}

func (w *World) compareRows(t *table, col, a, b int, compare CompareFunc) int {
	ca, ra := w.rowAt(t, a)
	cb, rb := w.rowAt(t, b)
	return compare(ca.entities[ra], ca.ptr(t, col, ra), cb.entities[rb], cb.ptr(t, col, rb))
}

// Count returns the number of entities currently matched by the query.
func (q *Query) Count() int {
	n := 0
	for _, m := range q.collect() {
		n += m.t.size
	}
	return n
}
