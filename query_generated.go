// Code generated by hand from the Query1 template. Keep the arities in sync.

package kozo

// Query1 is a query whose first term is declared by the element type
// T1. A value element T reads a copy, a pointer element *T points into
// table storage, Optional and PairData wrap optional and pair terms.
type Query1[T1 any] struct {
	*Query
	specs [1]elemSpec
}

// NewQuery1 builds a query from the element types T1. The options run
// after the element terms were added, so QueryBuilder.TermAt(i) refines
// element i.
//
// Parameters:
//   - w: The World to query.
//   - opts: Builder options applied before Build.
//
// Returns:
//   - The query, or a *BuildError.
func NewQuery1[T1 any](w *World, opts ...QueryOption) (*Query1[T1], error) {
	q := &Query1[T1]{}
	b := NewQueryBuilder(w)
	q.specs[0] = inferElem[T1]()
	for _, s := range q.specs {
		b.With(s.term)
	}
	for _, opt := range opts {
		opt(b)
	}
	checkElems(b, q.specs[:])
	built, err := b.Build()
	if err != nil {
		return nil, err
	}
	q.Query = built
	return q, nil
}

// Each calls fn for every matched entity with its component. Structural
// changes made by fn are applied after iteration.
func (q *Query1[T1]) Each(fn func(e Entity, c1 T1)) {
	q.Run(func(it *Iter) {
		b1, s1 := it.binding(0)
		for row, e := range it.Entities() {
			fn(e,
				bindElem[T1](q.specs[0].deref, b1, s1, row),
			)
		}
	})
}

// Query2 is a query whose first 2 terms are declared by the element types
// T1, T2. A value element T reads a copy, a pointer element *T points into
// table storage, Optional and PairData wrap optional and pair terms.
type Query2[T1 any, T2 any] struct {
	*Query
	specs [2]elemSpec
}

// NewQuery2 builds a query from the element types T1, T2. The options run
// after the element terms were added, so QueryBuilder.TermAt(i) refines
// element i.
//
// Parameters:
//   - w: The World to query.
//   - opts: Builder options applied before Build.
//
// Returns:
//   - The query, or a *BuildError.
func NewQuery2[T1 any, T2 any](w *World, opts ...QueryOption) (*Query2[T1, T2], error) {
	q := &Query2[T1, T2]{}
	b := NewQueryBuilder(w)
	q.specs[0] = inferElem[T1]()
	q.specs[1] = inferElem[T2]()
	for _, s := range q.specs {
		b.With(s.term)
	}
	for _, opt := range opts {
		opt(b)
	}
	checkElems(b, q.specs[:])
	built, err := b.Build()
	if err != nil {
		return nil, err
	}
	q.Query = built
	return q, nil
}

// Each calls fn for every matched entity with its components. Structural
// changes made by fn are applied after iteration.
func (q *Query2[T1, T2]) Each(fn func(e Entity, c1 T1, c2 T2)) {
	q.Run(func(it *Iter) {
		b1, s1 := it.binding(0)
		b2, s2 := it.binding(1)
		for row, e := range it.Entities() {
			fn(e,
				bindElem[T1](q.specs[0].deref, b1, s1, row),
				bindElem[T2](q.specs[1].deref, b2, s2, row),
			)
		}
	})
}

// Query3 is a query whose first 3 terms are declared by the element types
// T1, T2, T3. A value element T reads a copy, a pointer element *T points into
// table storage, Optional and PairData wrap optional and pair terms.
type Query3[T1 any, T2 any, T3 any] struct {
	*Query
	specs [3]elemSpec
}

// NewQuery3 builds a query from the element types T1, T2, T3. The options run
// after the element terms were added, so QueryBuilder.TermAt(i) refines
// element i.
//
// Parameters:
//   - w: The World to query.
//   - opts: Builder options applied before Build.
//
// Returns:
//   - The query, or a *BuildError.
func NewQuery3[T1 any, T2 any, T3 any](w *World, opts ...QueryOption) (*Query3[T1, T2, T3], error) {
	q := &Query3[T1, T2, T3]{}
	b := NewQueryBuilder(w)
	q.specs[0] = inferElem[T1]()
	q.specs[1] = inferElem[T2]()
	q.specs[2] = inferElem[T3]()
	for _, s := range q.specs {
		b.With(s.term)
	}
	for _, opt := range opts {
		opt(b)
	}
	checkElems(b, q.specs[:])
	built, err := b.Build()
	if err != nil {
		return nil, err
	}
	q.Query = built
	return q, nil
}

// Each calls fn for every matched entity with its components. Structural
// changes made by fn are applied after iteration.
func (q *Query3[T1, T2, T3]) Each(fn func(e Entity, c1 T1, c2 T2, c3 T3)) {
	q.Run(func(it *Iter) {
		b1, s1 := it.binding(0)
		b2, s2 := it.binding(1)
		b3, s3 := it.binding(2)
		for row, e := range it.Entities() {
			fn(e,
				bindElem[T1](q.specs[0].deref, b1, s1, row),
				bindElem[T2](q.specs[1].deref, b2, s2, row),
				bindElem[T3](q.specs[2].deref, b3, s3, row),
			)
		}
	})
}

// Query4 is a query whose first 4 terms are declared by the element types
// T1, T2, T3, T4. A value element T reads a copy, a pointer element *T points into
// table storage, Optional and PairData wrap optional and pair terms.
type Query4[T1 any, T2 any, T3 any, T4 any] struct {
	*Query
	specs [4]elemSpec
}

// NewQuery4 builds a query from the element types T1, T2, T3, T4. The options run
// after the element terms were added, so QueryBuilder.TermAt(i) refines
// element i.
//
// Parameters:
//   - w: The World to query.
//   - opts: Builder options applied before Build.
//
// Returns:
//   - The query, or a *BuildError.
func NewQuery4[T1 any, T2 any, T3 any, T4 any](w *World, opts ...QueryOption) (*Query4[T1, T2, T3, T4], error) {
	q := &Query4[T1, T2, T3, T4]{}
	b := NewQueryBuilder(w)
	q.specs[0] = inferElem[T1]()
	q.specs[1] = inferElem[T2]()
	q.specs[2] = inferElem[T3]()
	q.specs[3] = inferElem[T4]()
	for _, s := range q.specs {
		b.With(s.term)
	}
	for _, opt := range opts {
		opt(b)
	}
	checkElems(b, q.specs[:])
	built, err := b.Build()
	if err != nil {
		return nil, err
	}
	q.Query = built
	return q, nil
}

// Each calls fn for every matched entity with its components. Structural
// changes made by fn are applied after iteration.
func (q *Query4[T1, T2, T3, T4]) Each(fn func(e Entity, c1 T1, c2 T2, c3 T3, c4 T4)) {
	q.Run(func(it *Iter) {
		b1, s1 := it.binding(0)
		b2, s2 := it.binding(1)
		b3, s3 := it.binding(2)
		b4, s4 := it.binding(3)
		for row, e := range it.Entities() {
			fn(e,
				bindElem[T1](q.specs[0].deref, b1, s1, row),
				bindElem[T2](q.specs[1].deref, b2, s2, row),
				bindElem[T3](q.specs[2].deref, b3, s3, row),
				bindElem[T4](q.specs[3].deref, b4, s4, row),
			)
		}
	})
}
