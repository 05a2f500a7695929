package kozo

import (
	"path"
	"reflect"
	"strings"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/edwinsyarief/kozo/internal/engine"
	"go.uber.org/zap"
)

// typeIdentity is the memoized mapping of a Go type to its component id in
// one world.
type typeIdentity struct {
	typ    reflect.Type
	id     ID
	symbol string
	tag    bool
}

// symbolTable hands out one preferred id per symbol for the whole process.
// Worlds mint components at the preferred id when it is free, so the same
// type gets the same id in every world regardless of registration order.
type symbolTable struct {
	sync.Mutex
	ids   map[string]ID
	next  ID
	limit ID
}

var symbolIndex = &symbolTable{
	next:  engine.FirstComponentID,
	limit: engine.FirstComponentID + engine.MaxReservedComponents,
}

// preferred returns the id reserved for symbol. It reports false once the
// reserved range is used up; ids minted past that point would differ between
// worlds.
func (s *symbolTable) preferred(symbol string) (ID, bool) {
	s.Lock()
	defer s.Unlock()
	if id, ok := s.ids[symbol]; ok {
		return id, true
	}
	if s.next >= s.limit {
		return 0, false
	}
	if s.ids == nil {
		s.ids = make(map[string]ID, 64)
	}
	id := s.next
	s.next++
	s.ids[symbol] = id
	return id, true
}

func preferredID(t reflect.Type, symbol string) (ID, error) {
	id, ok := symbolIndex.preferred(symbol)
	if !ok {
		return 0, registrationError(t, symbol, ErrRegistration,
			"all %d process-wide component ids are taken", engine.MaxReservedComponents)
	}
	return id, nil
}

// symbolOf returns the identity symbol of a Go type: its package path and
// name, or the type literal for unnamed types.
func symbolOf(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// shortNamesOf returns the names a symbol can be looked up by besides the
// full symbol: "Name" and "pkg.Name".
func shortNamesOf(t reflect.Type) []string {
	if t == nil || t.Name() == "" || t.PkgPath() == "" {
		return nil
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return []string{name, path.Base(t.PkgPath()) + "." + name}
}

// Component returns the component id of T in w, registering T on first use.
//
// Parameters:
//   - w: The World to register in.
//
// Returns:
//   - The component id, or a *RegistrationError.
func Component[T any](w *World) (ID, error) {
	t := reflect.TypeFor[T]()
	if ti, ok := w.types[t]; ok {
		return ti.id, nil
	}
	return w.identify(t, typedHooks[T]())
}

// MustComponent is Component for setup code, panicking on error.
func MustComponent[T any](w *World) ID {
	id, err := Component[T](w)
	if err != nil {
		panic(err)
	}
	return id
}

// identify maps a Go type to its component id. hooks may be zero, in which
// case the engine manages values through reflection.
func (w *World) identify(t reflect.Type, hooks engine.TypeHooks) (ID, error) {
	if ti, ok := w.types[t]; ok {
		return ti.id, nil
	}
	symbol := symbolOf(t)
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.UnsafePointer:
		return 0, registrationError(t, symbol, ErrUnsupportedType, "%s components cannot be stored", t.Kind())
	}
	if other, ok := w.symbols[symbol]; ok && other != t {
		return 0, registrationError(t, symbol, ErrAmbiguousIdentity, "symbol already claimed by another type")
	}
	tag := t.Size() == 0

	var id ID
	if existing := w.w.Lookup(symbol); existing != 0 {
		info, ok := w.w.ComponentInfo(existing)
		switch {
		case !w.w.IsComponent(existing):
			return 0, registrationError(t, symbol, ErrAmbiguousIdentity, "name is bound to entity %s", existing)
		case !ok && !tag:
			return 0, registrationError(t, symbol, ErrTagDataMismatch, "registered as a tag")
		case ok && tag:
			return 0, registrationError(t, symbol, ErrTagDataMismatch, "registered with %d bytes of data", info.Size)
		case ok && (info.Size != t.Size() || info.Align != uintptr(t.Align())):
			return 0, registrationError(t, symbol, ErrLayoutMismatch,
				"registered with size %d align %d, type has size %d align %d", info.Size, info.Align, t.Size(), t.Align())
		}
		id = existing
	} else {
		pref, err := preferredID(t, symbol)
		if err != nil {
			return 0, err
		}
		desc := engine.ComponentDesc{
			Name:        symbol,
			PreferredID: pref,
		}
		if !tag {
			desc.Size = t.Size()
			desc.Align = uintptr(t.Align())
			desc.Type = t
			desc.Hooks = hooks
		}
		id, err = w.w.RegisterComponent(desc)
		if err != nil {
			if errors.Is(err, engine.ErrComponentDesc) {
				return 0, registrationError(t, symbol, ErrLayoutMismatch, "%v", err)
			}
			return 0, registrationError(t, symbol, ErrRegistration, "%v", err)
		}
	}
	if id == 0 || !w.w.IsAlive(id) {
		return 0, registrationError(t, symbol, ErrInvalidID, "engine returned %s", id)
	}
	w.types[t] = &typeIdentity{typ: t, id: id, symbol: symbol, tag: tag}
	w.symbols[symbol] = t
	for _, short := range shortNamesOf(t) {
		w.addShortName(short, id)
	}
	w.log.Debug("type registered", zap.String("symbol", symbol), zap.Stringer("id", id), zap.Bool("tag", tag))
	return id, nil
}

func (w *World) addShortName(name string, id ID) {
	for _, cur := range w.shortNames[name] {
		if cur == id {
			return
		}
	}
	w.shortNames[name] = append(w.shortNames[name], id)
}

// typedHooks returns lifecycle operations specialized for T.
func typedHooks[T any]() engine.TypeHooks {
	return engine.TypeHooks{
		Ctor: func(ptr unsafe.Pointer, count int) {
			clear(unsafe.Slice((*T)(ptr), count))
		},
		Dtor: func(ptr unsafe.Pointer, count int) {
			clear(unsafe.Slice((*T)(ptr), count))
		},
		Copy: func(dst, src unsafe.Pointer, count int) {
			copy(unsafe.Slice((*T)(dst), count), unsafe.Slice((*T)(src), count))
		},
		Move: func(dst, src unsafe.Pointer, count int) {
			copy(unsafe.Slice((*T)(dst), count), unsafe.Slice((*T)(src), count))
		},
	}
}

// RegisterDynamic registers a component that has no Go type. Its values are
// raw bytes of the given size and alignment. Registering the same name again
// returns the same id when the layout agrees.
func RegisterDynamic(w *World, name string, size, align uintptr) (ID, error) {
	var pref ID
	if w.w.Lookup(name) == 0 {
		var err error
		if pref, err = preferredID(nil, name); err != nil {
			return 0, err
		}
	}
	id, err := w.w.RegisterComponent(engine.ComponentDesc{
		Name:        name,
		PreferredID: pref,
		Size:        size,
		Align:       align,
	})
	if err != nil {
		kind := ErrRegistration
		if errors.Is(err, engine.ErrComponentDesc) {
			kind = ErrLayoutMismatch
		}
		return 0, registrationError(nil, name, kind, "%v", err)
	}
	if id == 0 || !w.w.IsAlive(id) {
		return 0, registrationError(nil, name, ErrInvalidID, "engine returned %s", id)
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		w.addShortName(name[i+1:], id)
	}
	return id, nil
}

// Lookup resolves a name to an id. Full symbols, names bound with SetName and
// builtin names resolve directly; the short forms "Name" and "pkg.Name" of
// registered Go types resolve when exactly one component matches.
func Lookup(w *World, name string) (ID, error) {
	if name == "" {
		return 0, registrationError(nil, name, ErrUnknownName, "empty name")
	}
	if id := w.w.Lookup(name); id != 0 {
		return id, nil
	}
	var live []ID
	for _, id := range w.shortNames[name] {
		if w.w.IsAlive(id) {
			live = append(live, id)
		}
	}
	switch len(live) {
	case 0:
		return 0, registrationError(nil, name, ErrUnknownName, "no component or entity with this name")
	case 1:
		return live[0], nil
	}
	return 0, registrationError(nil, name, ErrAmbiguousIdentity, "%d components share this short name", len(live))
}
