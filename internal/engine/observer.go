package engine

import (
	"slices"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Event is a lifecycle event observers can listen for.
type Event uint8

const (
	EventOnAdd Event = iota
	EventOnRemove
	EventOnSet
	eventCount
)

func (e Event) String() string {
	switch e {
	case EventOnAdd:
		return "OnAdd"
	case EventOnRemove:
		return "OnRemove"
	case EventOnSet:
		return "OnSet"
	}
	return "unknown"
}

// ObserverDesc describes an observer. The observer is triggered by the first
// self-matched And term of the query and only runs for entities that match the
// whole query.
type ObserverDesc struct {
	Name     string
	Query    *Query
	Events   []Event
	Callback SystemFunc
	Ctx      unsafe.Pointer
	Free     FreeFunc
}

// Observer is a callback invoked synchronously on lifecycle events.
type Observer struct {
	world   *World
	desc    ObserverDesc
	trigger ID
	events  [eventCount]bool
	dead    bool
}

// observerRegistry keeps observers per event in registration order.
type observerRegistry struct {
	byEvent [eventCount][]*Observer
	all     []*Observer
}

func (r *observerRegistry) init() {
	for i := range r.byEvent {
		r.byEvent[i] = make([]*Observer, 0, 4)
	}
}

// CreateObserver registers an observer. The observer takes its own reference
// on the query.
func (w *World) CreateObserver(desc ObserverDesc) (*Observer, error) {
	if w.finished {
		return nil, ErrWorldFinished
	}
	if desc.Query == nil || !desc.Query.Alive() {
		return nil, errors.Wrap(ErrQueryInvalid, "observer requires a live query")
	}
	if desc.Callback == nil {
		return nil, errors.Wrap(ErrQueryInvalid, "observer requires a callback")
	}
	if len(desc.Events) == 0 {
		return nil, errors.Wrap(ErrQueryInvalid, "observer requires at least one event")
	}
	o := &Observer{world: w, desc: desc}
	for _, t := range desc.Query.desc.Terms {
		if t.Src == SrcSelf && t.Oper == OperAnd {
			o.trigger = t.ID
			break
		}
	}
	if o.trigger == 0 {
		return nil, errors.Wrap(ErrQueryInvalid, "observer query has no term to trigger on")
	}
	for _, ev := range desc.Events {
		if ev >= eventCount {
			return nil, errors.Wrapf(ErrQueryInvalid, "unknown event %d", ev)
		}
		if !o.events[ev] {
			o.events[ev] = true
			w.observers.byEvent[ev] = append(w.observers.byEvent[ev], o)
		}
	}
	desc.Query.Retain()
	w.observers.all = append(w.observers.all, o)
	w.log.Debug("observer created", zap.String("name", desc.Name), zap.Stringer("trigger", o.trigger))
	return o, nil
}

// emit invokes the observers of ev whose trigger matches id, in registration
// order. Changes made by observers are deferred until the callback returns.
func (r *observerRegistry) emit(w *World, ev Event, e, id ID) {
	list := r.byEvent[ev]
	if len(list) == 0 {
		return
	}
	for _, o := range slices.Clone(list) {
		if o.dead || !w.IsAlive(e) || !id.Matches(o.trigger) {
			continue
		}
		it, ok := o.desc.Query.entityIter(e)
		if !ok {
			continue
		}
		it.event = ev
		it.evID = id
		it.ctx = o.desc.Ctx
		o.run(it)
	}
}

func (o *Observer) run(it *Iter) {
	w := o.world
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
	if it.Next() {
		o.desc.Callback(it)
	}
	done = true
}

// Destroy unregisters the observer, releases its query reference and frees its
// context. Calling Destroy again is a no-op.
func (o *Observer) Destroy() {
	if o.dead {
		return
	}
	o.dead = true
	r := &o.world.observers
	for ev := range r.byEvent {
		if i := slices.Index(r.byEvent[ev], o); i >= 0 {
			r.byEvent[ev] = slices.Delete(r.byEvent[ev], i, i+1)
		}
	}
	if i := slices.Index(r.all, o); i >= 0 {
		r.all = slices.Delete(r.all, i, i+1)
	}
	o.desc.Query.Release()
	if o.desc.Free != nil && o.desc.Ctx != nil {
		o.desc.Free(o.desc.Ctx)
	}
	o.desc.Ctx = nil
}

// Alive reports whether the observer is still registered.
func (o *Observer) Alive() bool {
	return !o.dead
}

func (r *observerRegistry) destroyAll() {
	for _, o := range slices.Clone(r.all) {
		o.Destroy()
	}
}
