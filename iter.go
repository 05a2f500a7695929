package kozo

import (
	"reflect"
	"unsafe"

	"github.com/edwinsyarief/kozo/internal/engine"
)

// Event is a lifecycle event observers listen for.
type Event = engine.Event

const (
	EventOnAdd    = engine.EventOnAdd
	EventOnRemove = engine.EventOnRemove
	EventOnSet    = engine.EventOnSet
)

// Iter is a cursor over the batches of a query. The table of the current
// batch stays locked until the next call to Next or Fini.
type Iter struct {
	it *engine.Iter
	q  *Query
}

// Next advances to the next batch.
func (it *Iter) Next() bool {
	return it.it.Next()
}

// Fini releases the iterator. It is safe to call more than once.
func (it *Iter) Fini() {
	it.it.Fini()
}

// World returns the world being iterated.
func (it *Iter) World() *World {
	return it.q.world
}

// Count returns the number of entities in the batch.
func (it *Iter) Count() int {
	return it.it.Count()
}

// Entities returns the entities of the batch. The slice is only valid until
// the next call to Next.
func (it *Iter) Entities() []Entity {
	return it.it.Entities()
}

// Entity returns the entity at row.
func (it *Iter) Entity(row int) Entity {
	return it.it.Entities()[row]
}

// IsSet reports whether term i matched in this batch.
func (it *Iter) IsSet(i int) bool {
	return it.it.IsSet(i)
}

// IsSelf reports whether term i is owned by the iterated entities.
func (it *Iter) IsSelf(i int) bool {
	return it.it.IsSelf(i)
}

// Src returns the entity term i was matched on, 0 for owned terms.
func (it *Iter) Src(i int) Entity {
	return it.it.Src(i)
}

// ID returns the id term i matched. For wildcard terms this is the concrete
// pair.
func (it *Iter) ID(i int) ID {
	return it.it.ID(i)
}

// GroupID returns the group of the batch.
func (it *Iter) GroupID() uint64 {
	return it.it.GroupID()
}

// SetGroup restricts iteration to one group. Call it before the first Next.
func (it *Iter) SetGroup(group uint64) {
	it.it.SetGroup(group)
}

// DeltaTime returns the time passed to Progress when running a system.
func (it *Iter) DeltaTime() float32 {
	return it.it.DeltaTime()
}

// Event returns the event an observer was invoked for.
func (it *Iter) Event() Event {
	return it.it.Event()
}

// EventID returns the id that triggered an observer.
func (it *Iter) EventID() ID {
	return it.it.EventID()
}

// tagBase gives zero-sized elements a valid address.
var tagBase [1]byte

// binding returns the base pointer and stride of term i for the batch. Unset
// terms bind to nil with stride 0, shared terms repeat their single value.
func (it *Iter) binding(i int) (unsafe.Pointer, uintptr) {
	if !it.it.IsSet(i) {
		return nil, 0
	}
	base := it.it.Column(i)
	if base == nil {
		return unsafe.Pointer(&tagBase), 0
	}
	if !it.it.IsSelf(i) {
		return base, 0
	}
	return base, it.it.ColumnSize(i)
}

// checkBinding panics with *BindingMismatch when term i cannot be viewed as T.
func (it *Iter) checkBinding(i int, t reflect.Type, write bool) *boundTerm {
	if i < 0 || i >= len(it.q.terms) {
		panic(&BindingMismatch{Term: i, Want: t, Have: "nothing", Reason: "term index out of range"})
	}
	bt := &it.q.terms[i]
	if write && !bt.writable() {
		panic(&BindingMismatch{Term: i, Want: t, Have: bt.label, Reason: "term is read-only"})
	}
	if !it.it.IsSet(i) {
		return bt
	}
	id := it.it.ID(i)
	info, ok := it.q.world.w.ComponentInfo(id)
	switch {
	case !ok:
		panic(&BindingMismatch{Term: i, Want: t, Have: bt.label, Reason: "term carries no data"})
	case t.Size() == 0:
		panic(&BindingMismatch{Term: i, Want: t, Have: info.Name, Reason: ErrTagDataMismatch.Error()})
	case info.Type != nil && info.Type != t:
		panic(&BindingMismatch{Term: i, Want: t, Have: info.Name, Reason: "type differs"})
	case info.Size != t.Size():
		panic(&BindingMismatch{Term: i, Want: t, Have: info.Name, Reason: "size differs"})
	}
	return bt
}
