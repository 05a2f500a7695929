package kozo

import (
	"iter"

	"github.com/edwinsyarief/kozo/internal/engine"
)

// Query is a built, reference counted query. Systems and observers created
// from it hold their own references.
type Query struct {
	world *World
	q     *engine.Query
	terms []boundTerm
}

// World returns the world the query belongs to.
func (q *Query) World() *World {
	return q.world
}

// TermCount returns the number of terms.
func (q *Query) TermCount() int {
	return len(q.terms)
}

// TermID returns the id term i was resolved to.
func (q *Query) TermID(i int) ID {
	return q.terms[i].id
}

// Retain adds a reference.
func (q *Query) Retain() *Query {
	q.q.Retain()
	return q
}

// Release drops a reference. The query is destroyed with the last one.
func (q *Query) Release() {
	q.q.Release()
}

// Alive reports whether the query can still be iterated.
func (q *Query) Alive() bool {
	return q.q.Alive()
}

// Count returns the number of entities the query currently matches.
func (q *Query) Count() int {
	return q.q.Count()
}

// Iter starts a manual iteration. The caller must call Fini unless Next
// returned false.
//
// Example:
//
//	it := q.Iter()
//	defer it.Fini()
//	for it.Next() {
//	    pos := kozo.FieldMut[Position](it, 0)
//	    // ...
//	}
func (q *Query) Iter() *Iter {
	return &Iter{it: q.q.Iter(), q: q}
}

// Run calls fn for every batch. Structural changes made by fn are applied
// when iteration completes and dropped if fn panics. The iterator is released
// on every exit path.
func (q *Query) Run(fn func(it *Iter)) {
	w := q.world.w
	it := q.Iter()
	w.DeferBegin()
	done := false
	defer func() {
		it.Fini()
		if done {
			w.DeferEnd()
		} else {
			w.DeferDiscard()
		}
	}()
	for it.Next() {
		fn(it)
	}
	done = true
}

// All returns the batches as a range-over-func sequence. Breaking out of the
// loop releases the iterator.
func (q *Query) All() iter.Seq[*Iter] {
	return func(yield func(*Iter) bool) {
		it := q.Iter()
		defer it.Fini()
		for it.Next() {
			if !yield(it) {
				return
			}
		}
	}
}

// Entities returns every matched entity.
func (q *Query) Entities() []Entity {
	var out []Entity
	for it := range q.All() {
		out = append(out, it.Entities()...)
	}
	return out
}
