package engine

import (
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// TypeHooks are the type-erased lifecycle operations the engine uses to manage
// values stored in its columns. Each operation works on count consecutive
// elements. Nil hooks fall back to reflection (when the descriptor carries a
// reflect.Type) or to raw byte copies.
type TypeHooks struct {
	Ctor func(ptr unsafe.Pointer, count int)
	Dtor func(ptr unsafe.Pointer, count int)
	Copy func(dst, src unsafe.Pointer, count int)
	Move func(dst, src unsafe.Pointer, count int)
}

// ComponentDesc describes a component to register.
type ComponentDesc struct {
	// Name is the symbol used to find the component again, in this world and
	// in any other world registering the same symbol.
	Name string
	// PreferredID is honored when it falls in the reserved component range
	// and is not in use. Zero lets the engine pick.
	PreferredID ID
	Size        uintptr
	Align       uintptr
	// Type, when set, makes columns typed Go memory so pointers stored in
	// components stay visible to the garbage collector.
	Type  reflect.Type
	Hooks TypeHooks
}

// ComponentInfo is the registered layout of a component.
type ComponentInfo struct {
	ID    ID
	Name  string
	Size  uintptr
	Align uintptr
	Type  reflect.Type
}

// HookKind selects one of the lifecycle events a hook can be installed for.
type HookKind uint8

const (
	HookOnAdd HookKind = iota
	HookOnRemove
	HookOnSet
	hookKindCount
)

func (k HookKind) String() string {
	switch k {
	case HookOnAdd:
		return "on_add"
	case HookOnRemove:
		return "on_remove"
	case HookOnSet:
		return "on_set"
	}
	return "unknown"
}

// HookFunc is the callback shape for add/remove/set hooks. ptr points at the
// affected component value (nil for tags), ctx is the opaque context supplied
// at registration.
type HookFunc func(w *World, e ID, ptr unsafe.Pointer, ctx unsafe.Pointer)

// FreeFunc releases a context supplied together with a callback.
type FreeFunc func(ctx unsafe.Pointer)

type hookSlot struct {
	fn   HookFunc
	ctx  unsafe.Pointer
	free FreeFunc
}

func (s *hookSlot) release() {
	if s.free != nil && s.ctx != nil {
		s.free(s.ctx)
	}
	*s = hookSlot{}
}

// componentRecord is the per-component storage metadata.
type componentRecord struct {
	info  ComponentInfo
	hooks TypeHooks
	slots [hookKindCount]hookSlot
}

func (w *World) defaultHooks(desc *ComponentDesc) TypeHooks {
	h := desc.Hooks
	size := desc.Size
	typ := desc.Type
	if h.Ctor == nil {
		h.Ctor = func(ptr unsafe.Pointer, count int) {
			clear(unsafe.Slice((*byte)(ptr), uintptr(count)*size))
		}
		if typ != nil {
			h.Ctor = func(ptr unsafe.Pointer, count int) {
				for i := 0; i < count; i++ {
					reflect.NewAt(typ, unsafe.Add(ptr, uintptr(i)*size)).Elem().SetZero()
				}
			}
		}
	}
	if h.Dtor == nil {
		h.Dtor = h.Ctor
	}
	if h.Copy == nil {
		h.Copy = func(dst, src unsafe.Pointer, count int) {
			memCopy(dst, src, uintptr(count)*size)
		}
		if typ != nil {
			h.Copy = func(dst, src unsafe.Pointer, count int) {
				for i := 0; i < count; i++ {
					off := uintptr(i) * size
					reflect.NewAt(typ, unsafe.Add(dst, off)).Elem().Set(reflect.NewAt(typ, unsafe.Add(src, off)).Elem())
				}
			}
		}
	}
	if h.Move == nil {
		h.Move = h.Copy
	}
	return h
}

// newColumn allocates storage for n elements of the component.
func (c *componentRecord) newColumn(n int) unsafe.Pointer {
	if c.info.Type != nil {
		return reflect.MakeSlice(reflect.SliceOf(c.info.Type), n, n).UnsafePointer()
	}
	buf := make([]byte, uintptr(n)*c.info.Size)
	return unsafe.Pointer(unsafe.SliceData(buf))
}

// RegisterComponent registers a component and returns its id. Registering a
// name that already denotes a component returns the existing id when the
// layout agrees.
func (w *World) RegisterComponent(desc ComponentDesc) (ID, error) {
	if w.finished {
		return 0, ErrWorldFinished
	}
	if desc.Name == "" {
		return 0, errors.Wrap(ErrComponentDesc, "component name is empty")
	}
	if desc.Type != nil {
		if desc.Size == 0 {
			desc.Size = desc.Type.Size()
		}
		if desc.Align == 0 {
			desc.Align = uintptr(desc.Type.Align())
		}
		if desc.Type.Size() != desc.Size {
			return 0, errors.Wrapf(ErrComponentDesc, "%s: size %d does not match type size %d", desc.Name, desc.Size, desc.Type.Size())
		}
	}
	if desc.Size > 0 && desc.Align == 0 {
		desc.Align = 1
	}
	if desc.Align&(desc.Align-1) != 0 {
		return 0, errors.Wrapf(ErrComponentDesc, "%s: alignment %d is not a power of two", desc.Name, desc.Align)
	}
	if desc.Type == nil && desc.Align > 8 {
		return 0, errors.Wrapf(ErrComponentDesc, "%s: alignment %d requires a Go type", desc.Name, desc.Align)
	}

	if existing, ok := w.names[desc.Name]; ok && w.IsAlive(existing) {
		rec, isComp := w.components[existing]
		if !isComp {
			return 0, errors.Wrapf(ErrNameConflict, "%s is bound to non-component entity %s", desc.Name, existing)
		}
		if rec.info.Size != desc.Size || (desc.Size > 0 && rec.info.Align != desc.Align) {
			return 0, errors.Wrapf(ErrComponentDesc, "%s: registered with size %d align %d, requested size %d align %d",
				desc.Name, rec.info.Size, rec.info.Align, desc.Size, desc.Align)
		}
		return existing, nil
	}

	id := w.allocComponentID(desc.PreferredID)
	rec := &componentRecord{
		info: ComponentInfo{
			ID:    id,
			Name:  desc.Name,
			Size:  desc.Size,
			Align: desc.Align,
			Type:  desc.Type,
		},
	}
	if desc.Size > 0 {
		rec.hooks = w.defaultHooks(&desc)
	}
	w.components[id] = rec
	w.names[desc.Name] = id
	w.entityNames[id.Index()] = desc.Name
	w.log.Debug("component registered",
		zap.String("name", desc.Name),
		zap.Stringer("id", id),
		zap.Uintptr("size", desc.Size),
		zap.Bool("preferred", desc.PreferredID != 0 && desc.PreferredID == id))
	return id, nil
}

// allocComponentID mints an id for a new component, honoring the preferred id
// when possible. Unpreferred ids come from the top of the reserved range so
// they rarely collide with preferred ones.
func (w *World) allocComponentID(preferred ID) ID {
	if preferred >= FirstComponentID && preferred < firstEntityIndex && !w.IsAlive(preferred) {
		return w.makeAlive(preferred.Index())
	}
	for w.reservedCursor >= FirstComponentID {
		idx := w.reservedCursor
		w.reservedCursor--
		if w.entities.metas[idx].alive {
			continue
		}
		return w.makeAlive(idx)
	}
	return w.NewEntity()
}

// ComponentInfo returns the layout registered for a component id. For pairs it
// returns the layout of the pair's data type: the relationship when it holds
// data, otherwise the target.
func (w *World) ComponentInfo(id ID) (ComponentInfo, bool) {
	rec := w.typeRecord(id)
	if rec == nil {
		return ComponentInfo{}, false
	}
	return rec.info, true
}

// IsComponent reports whether id was registered as a component.
func (w *World) IsComponent(id ID) bool {
	_, ok := w.components[id]
	return ok
}

// typeRecord returns the record providing storage for id, or nil when id
// carries no data.
func (w *World) typeRecord(id ID) *componentRecord {
	if !id.IsPair() {
		rec := w.components[w.aliveByIndex(id.Index())]
		if rec == nil || rec.info.Size == 0 {
			return nil
		}
		return rec
	}
	if first := id.First(); first != Wildcard {
		if rec := w.components[w.aliveByIndex(uint32(first))]; rec != nil && rec.info.Size > 0 {
			return rec
		}
	}
	if second := id.Second(); second != Wildcard {
		if rec := w.components[w.aliveByIndex(uint32(second))]; rec != nil && rec.info.Size > 0 {
			return rec
		}
	}
	return nil
}

// hookRecord returns the record whose hooks fire for id.
func (w *World) hookRecord(id ID) *componentRecord {
	if rec := w.typeRecord(id); rec != nil {
		return rec
	}
	if !id.IsPair() {
		return w.components[w.aliveByIndex(id.Index())]
	}
	return nil
}

// Lookup returns the entity bound to name, or 0.
func (w *World) Lookup(name string) ID {
	if id, ok := w.names[name]; ok && w.IsAlive(id) {
		return id
	}
	return 0
}

// SetName binds a symbol to an entity.
func (w *World) SetName(e ID, name string) error {
	if !w.IsAlive(e) {
		return ErrNotAlive
	}
	if other, ok := w.names[name]; ok && other != e && w.IsAlive(other) {
		return errors.Wrapf(ErrNameConflict, "%q is bound to %s", name, other)
	}
	if old, ok := w.entityNames[e.Index()]; ok {
		delete(w.names, old)
	}
	w.names[name] = e
	w.entityNames[e.Index()] = name
	return nil
}

// Name returns the symbol bound to e, if any.
func (w *World) Name(e ID) string {
	if !w.IsAlive(e) {
		return ""
	}
	return w.entityNames[e.Index()]
}

// SetHook installs a hook for a component. An installed hook of the same kind
// is released first, exactly once.
func (w *World) SetHook(comp ID, kind HookKind, fn HookFunc, ctx unsafe.Pointer, free FreeFunc) error {
	if w.finished {
		return ErrWorldFinished
	}
	if kind >= hookKindCount {
		return errors.Newf("ecs: unknown hook kind %d", kind)
	}
	rec, ok := w.components[comp]
	if !ok {
		return errors.Wrapf(ErrNotComponent, "cannot install %s hook on %s", kind, comp)
	}
	slot := &rec.slots[kind]
	if slot.fn != nil || slot.ctx != nil {
		w.log.Debug("hook replaced", zap.String("component", rec.info.Name), zap.Stringer("kind", kind))
		slot.release()
	}
	slot.fn = fn
	slot.ctx = ctx
	slot.free = free
	return nil
}

// ClearHook removes and releases a hook.
func (w *World) ClearHook(comp ID, kind HookKind) {
	if rec, ok := w.components[comp]; ok && kind < hookKindCount {
		rec.slots[kind].release()
	}
}

func (w *World) invokeHook(kind HookKind, e ID, id ID, ptr unsafe.Pointer) {
	rec := w.hookRecord(id)
	if rec == nil {
		return
	}
	slot := &rec.slots[kind]
	if slot.fn == nil {
		return
	}
	slot.fn(w, e, ptr, slot.ctx)
}

// memCopy copies size bytes from src to dst using built-in copy for performance.
func memCopy(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	dstBytes := unsafe.Slice((*byte)(dst), size)
	srcBytes := unsafe.Slice((*byte)(src), size)
	copy(dstBytes, srcBytes)
}
