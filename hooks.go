package kozo

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/edwinsyarief/kozo/internal/engine"
	"go.uber.org/zap"
)

// hookContext boxes a hook closure. The engine owns it through an opaque
// pointer and releases it through hookFree exactly once.
type hookContext[T any] struct {
	fn    func(e Entity, v *T)
	world *World
	freed bool
}

func hookTrampoline[T any](_ *engine.World, e engine.ID, ptr, ctx unsafe.Pointer) {
	c := (*hookContext[T])(ctx)
	if c.freed {
		return
	}
	c.fn(e, (*T)(ptr))
}

func hookFree[T any](ctx unsafe.Pointer) {
	c := (*hookContext[T])(ctx)
	if c.freed {
		return
	}
	c.freed = true
	c.fn = nil
	c.world.hooksReleased++
}

// OnAdd installs fn to run when T is added to an entity. It does not run when
// the entity already had T. For zero-sized T the pointer is nil. Installing a
// new OnAdd hook for T replaces the previous one.
//
// Parameters:
//   - w: The World to install the hook in.
//   - fn: The callback, invoked synchronously inside the engine call.
//
// Returns:
//   - A *RegistrationError when T cannot be registered.
func OnAdd[T any](w *World, fn func(e Entity, v *T)) error {
	return installHook(w, engine.HookOnAdd, fn)
}

// OnRemove installs fn to run before T is removed from an entity, including
// when the entity is deleted or the world is torn down.
func OnRemove[T any](w *World, fn func(e Entity, v *T)) error {
	return installHook(w, engine.HookOnRemove, fn)
}

// OnSet installs fn to run after a value of T is set or marked modified.
func OnSet[T any](w *World, fn func(e Entity, v *T)) error {
	return installHook(w, engine.HookOnSet, fn)
}

func installHook[T any](w *World, kind engine.HookKind, fn func(Entity, *T)) error {
	id, err := Component[T](w)
	if err != nil {
		return err
	}
	ctx := &hookContext[T]{fn: fn, world: w}
	if err := w.w.SetHook(id, kind, hookTrampoline[T], unsafe.Pointer(ctx), hookFree[T]); err != nil {
		return err
	}
	w.hooksInstalled++
	w.log.Debug("hook installed", zap.Stringer("component", id), zap.Stringer("kind", kind))
	return nil
}

// ClearHook removes the hook of the given event for T, releasing its context.
// Unknown events are an error and clear nothing.
func ClearHook[T any](w *World, ev Event) error {
	id, err := Component[T](w)
	if err != nil {
		return err
	}
	var kind engine.HookKind
	switch ev {
	case EventOnAdd:
		kind = engine.HookOnAdd
	case EventOnRemove:
		kind = engine.HookOnRemove
	case EventOnSet:
		kind = engine.HookOnSet
	default:
		return errors.Newf("kozo: no hook for event %s", ev)
	}
	w.w.ClearHook(id, kind)
	return nil
}
