package kozo

import (
	"github.com/cockroachdb/errors"
	"github.com/edwinsyarief/kozo/internal/engine"
)

// System runs a callback over the batches of its query on every Progress.
type System struct {
	s *engine.System
}

// Observer runs a callback when a lifecycle event hits an entity matching its
// query.
type Observer struct {
	o *engine.Observer
}

// System builds the query and registers a system running fn once per batch.
// Structural changes made by fn are applied after the system finishes.
func (b *QueryBuilder) System(name string, fn func(it *Iter)) (*System, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	defer q.Release()
	return q.System(name, fn)
}

// System registers a system over q. The system holds its own reference.
func (q *Query) System(name string, fn func(it *Iter)) (*System, error) {
	if fn == nil {
		return nil, errors.New("kozo: system callback is nil")
	}
	s, err := q.world.w.CreateSystem(engine.SystemDesc{
		Name:  name,
		Query: q.q,
		Callback: func(it *engine.Iter) {
			fn(&Iter{it: it, q: q})
		},
	})
	if err != nil {
		return nil, err
	}
	return &System{s: s}, nil
}

// Name returns the name of the system.
func (s *System) Name() string {
	return s.s.Name()
}

// Run runs the system once outside Progress.
func (s *System) Run(dt float32) {
	s.s.Run(dt)
}

// Destroy unregisters the system. Calling it again is a no-op.
func (s *System) Destroy() {
	s.s.Destroy()
}

// Observer builds the query and registers fn for the given events. The
// observer triggers on the first owned, required term and receives an
// iterator positioned on the single affected entity. Changes made by fn are
// applied when it returns.
func (b *QueryBuilder) Observer(fn func(it *Iter), events ...Event) (*Observer, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	defer q.Release()
	return q.Observer(fn, events...)
}

// Observer registers an observer over q. The observer holds its own
// reference.
func (q *Query) Observer(fn func(it *Iter), events ...Event) (*Observer, error) {
	if fn == nil {
		return nil, errors.New("kozo: observer callback is nil")
	}
	o, err := q.world.w.CreateObserver(engine.ObserverDesc{
		Query:  q.q,
		Events: events,
		Callback: func(it *engine.Iter) {
			fn(&Iter{it: it, q: q})
		},
	})
	if err != nil {
		return nil, err
	}
	return &Observer{o: o}, nil
}

// Destroy unregisters the observer. Calling it again is a no-op.
func (o *Observer) Destroy() {
	o.o.Destroy()
}
