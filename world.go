package kozo

import (
	"reflect"

	"github.com/edwinsyarief/kozo/internal/engine"
	"go.uber.org/zap"
)

// ID identifies an entity, a component or a pair.
type ID = engine.ID

// Entity is an ID used as an entity.
type Entity = engine.ID

// Builtin ids shared by every world.
const (
	Wildcard    = engine.Wildcard
	ChildOf     = engine.ChildOf
	Traversable = engine.Traversable
)

// MakePair builds a (relationship, target) pair id.
func MakePair(rel, target ID) ID {
	return engine.MakePair(rel, target)
}

// World owns the engine instance and the Go type registry for it. A World
// must only be used from one goroutine at a time.
type World struct {
	w   *engine.World
	log *zap.Logger

	types      map[reflect.Type]*typeIdentity
	symbols    map[string]reflect.Type // symbol -> Go type that claimed it
	shortNames map[string][]ID

	hooksInstalled int
	hooksReleased  int
}

// NewWorld creates a world.
//
// Parameters:
//   - opts: functional options (WithLogger, WithInitialCapacity,
//     WithChunkSize, WithConfig).
//
// Returns:
//   - The newly created World. Call Fini to tear it down.
func NewWorld(opts ...Option) *World {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg
	cfgErr := cfg.Validate()
	log := o.logger
	if log == nil && cfg.LogLevel != "" {
		if l, err := cfg.logger(); err == nil {
			log = l
		}
	}
	if log == nil {
		log = engine.Logger()
	}
	if cfgErr != nil {
		log.Warn("kozo: invalid config, falling back to defaults", zap.Error(cfgErr))
	}
	w := &World{
		w: engine.NewWorld(engine.Options{
			InitialCapacity: cfg.InitialCapacity,
			ChunkSize:       cfg.ChunkSize,
			Logger:          log,
		}),
		log:        log,
		types:      make(map[reflect.Type]*typeIdentity, 16),
		symbols:    make(map[string]reflect.Type, 16),
		shortNames: make(map[string][]ID, 16),
	}
	return w
}

// Logger returns the logger of the world.
func (w *World) Logger() *zap.Logger {
	return w.log
}

// Fini tears the world down: systems and observers are destroyed, remove
// hooks run for the remaining components and every hook context is released
// exactly once. Calling Fini again is a no-op.
func (w *World) Fini() {
	if w.w.Finished() {
		return
	}
	w.w.Fini()
	w.log.Debug("world torn down",
		zap.Int("hooks_installed", w.hooksInstalled),
		zap.Int("hooks_released", w.hooksReleased))
}

// Finished reports whether Fini was called.
func (w *World) Finished() bool {
	return w.w.Finished()
}

// HookStats returns the number of hook contexts installed and released.
func (w *World) HookStats() (installed, released int) {
	return w.hooksInstalled, w.hooksReleased
}

// NewEntity creates an entity with no components.
func (w *World) NewEntity() Entity {
	return w.w.NewEntity()
}

// NewNamedEntity creates an entity bound to name, so queries can use it as a
// source.
func (w *World) NewNamedEntity(name string) (Entity, error) {
	e := w.w.NewEntity()
	if err := w.w.SetName(e, name); err != nil {
		w.w.Delete(e)
		return 0, err
	}
	return e, nil
}

// SetName binds name to e.
func (w *World) SetName(e Entity, name string) error {
	return w.w.SetName(e, name)
}

// Name returns the name bound to e.
func (w *World) Name(e Entity) string {
	return w.w.Name(e)
}

// IsAlive reports whether e refers to a live entity.
func (w *World) IsAlive(e Entity) bool {
	return w.w.IsAlive(e)
}

// Delete deletes e together with its ChildOf descendants. Deleting a
// registered component is refused.
func (w *World) Delete(e Entity) {
	w.w.Delete(e)
}

// Count returns the number of live entities, components included.
func (w *World) Count() int {
	return w.w.Count()
}

// Add adds a raw id (tag or pair) to e.
func (w *World) Add(e Entity, id ID) error {
	return w.w.Add(e, id)
}

// Remove removes a raw id from e. Wildcard pairs remove every match.
func (w *World) Remove(e Entity, id ID) error {
	return w.w.Remove(e, id)
}

// Has reports whether e has id. Wildcard pairs match any pair.
func (w *World) Has(e Entity, id ID) bool {
	return w.w.Has(e, id)
}

// Type returns the sorted ids of e.
func (w *World) Type(e Entity) []ID {
	return w.w.Type(e)
}

// Target returns the target of the first (rel, *) pair of e, or 0.
func (w *World) Target(e Entity, rel ID) Entity {
	return w.w.Target(e, rel)
}

// Parent returns the ChildOf target of e, or 0.
func (w *World) Parent(e Entity) Entity {
	return w.w.Parent(e)
}

// ChildOf makes e a child of parent, replacing its previous parent.
func (w *World) ChildOf(e, parent Entity) error {
	return w.w.Add(e, engine.MakePair(engine.ChildOf, parent))
}

// Defer runs fn with structural changes queued, then applies them. When fn
// panics the queued changes are dropped.
func (w *World) Defer(fn func()) {
	w.w.DeferBegin()
	done := false
	defer func() {
		if done {
			w.w.DeferEnd()
		} else {
			w.w.DeferDiscard()
		}
	}()
	fn()
	done = true
}

// Progress runs every system once in creation order. It returns false once
// the world is finished.
func (w *World) Progress(dt float32) bool {
	return w.w.Progress(dt)
}
