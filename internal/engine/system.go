package engine

import (
	"slices"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// SystemFunc is the callback shape shared by systems and observers. It is
// invoked once per batch.
type SystemFunc func(it *Iter)

// SystemDesc describes a system.
type SystemDesc struct {
	Name     string
	Query    *Query
	Callback SystemFunc
	Ctx      unsafe.Pointer
	Free     FreeFunc
}

// System runs a callback over the batches of a query on every Progress.
type System struct {
	world *World
	desc  SystemDesc
	dead  bool
}

// CreateSystem registers a system. Systems run in creation order and take
// their own reference on the query.
func (w *World) CreateSystem(desc SystemDesc) (*System, error) {
	if w.finished {
		return nil, ErrWorldFinished
	}
	if desc.Query == nil || !desc.Query.Alive() {
		return nil, errors.Wrap(ErrQueryInvalid, "system requires a live query")
	}
	if desc.Callback == nil {
		return nil, errors.Wrap(ErrQueryInvalid, "system requires a callback")
	}
	desc.Query.Retain()
	s := &System{world: w, desc: desc}
	w.systems = append(w.systems, s)
	w.log.Debug("system created", zap.String("name", desc.Name))
	return s, nil
}

// Name returns the name of the system.
func (s *System) Name() string {
	return s.desc.Name
}

// Run runs the system once. Structural changes made by the callback are
// applied after iteration completes; they are dropped if the callback panics.
func (s *System) Run(dt float32) {
	if s.dead {
		return
	}
	w := s.world
	it := s.desc.Query.Iter()
	it.ctx = s.desc.Ctx
	it.dt = dt
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
		s.desc.Callback(it)
	}
	done = true
}

// Destroy unregisters the system, releases its query reference and frees its
// context exactly once.
func (s *System) Destroy() {
	if s.dead {
		return
	}
	s.dead = true
	w := s.world
	if i := slices.Index(w.systems, s); i >= 0 {
		w.systems = slices.Delete(w.systems, i, i+1)
	}
	s.desc.Query.Release()
	if s.desc.Free != nil && s.desc.Ctx != nil {
		s.desc.Free(s.desc.Ctx)
	}
	s.desc.Ctx = nil
}

// Alive reports whether the system is still registered.
func (s *System) Alive() bool {
	return !s.dead
}

// Progress runs every system once, in creation order. It returns false once
// the world is finished.
func (w *World) Progress(dt float32) bool {
	if w.finished {
		return false
	}
	for _, s := range slices.Clone(w.systems) {
		s.Run(dt)
	}
	return !w.finished
}

// Systems returns the number of registered systems.
func (w *World) Systems() int {
	return len(w.systems)
}
