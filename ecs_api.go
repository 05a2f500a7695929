package kozo

import (
	"reflect"
	"unsafe"
)

// dataComponent returns the id of T, rejecting zero-sized types.
func dataComponent[T any](w *World) (ID, error) {
	id, err := Component[T](w)
	if err != nil {
		return 0, err
	}
	if t := reflect.TypeFor[T](); t.Size() == 0 {
		return 0, registrationError(t, symbolOf(t), ErrTagDataMismatch, "zero-sized type has no value to set")
	}
	return id, nil
}

// GetComponent retrieves a pointer to the component of type `T` for the given
// entity.
//
// If the entity is not alive, does not have the component, or T is a tag,
// this function returns nil. The pointer is valid until the next structural
// change of the entity.
//
// Parameters:
//   - w: The World containing the entity.
//   - e: The Entity from which to retrieve the component.
//
// Returns:
//   - A pointer to the component data (*T), or nil if not found.
func GetComponent[T any](w *World, e Entity) *T {
	id, err := Component[T](w)
	if err != nil {
		return nil
	}
	return (*T)(w.w.Get(e, id))
}

// SetComponent adds a component of type `T` with the given value to an entity,
// or updates it if the component already exists. OnAdd hooks run when the
// component is new, OnSet hooks always.
//
// Parameters:
//   - w: The World where the entity resides.
//   - e: The Entity to modify.
//   - val: The component data of type `T` to set.
//
// Returns:
//   - ErrNotAlive, or a *RegistrationError (ErrTagDataMismatch for tags).
func SetComponent[T any](w *World, e Entity, val T) error {
	id, err := dataComponent[T](w)
	if err != nil {
		return err
	}
	return w.w.Set(e, id, unsafe.Pointer(&val))
}

// AddComponent adds a zero-valued T (or the tag T) to an entity. Adding a
// component the entity already has changes nothing.
func AddComponent[T any](w *World, e Entity) error {
	id, err := Component[T](w)
	if err != nil {
		return err
	}
	return w.w.Add(e, id)
}

// HasComponent reports whether the entity has T.
func HasComponent[T any](w *World, e Entity) bool {
	id, err := Component[T](w)
	if err != nil {
		return false
	}
	return w.w.Has(e, id)
}

// RemoveComponent removes the component of type `T` from the specified entity.
// Removing a component the entity does not have changes nothing.
func RemoveComponent[T any](w *World, e Entity) error {
	id, err := Component[T](w)
	if err != nil {
		return err
	}
	return w.w.Remove(e, id)
}

// Modified runs the OnSet hooks and observers of T for an entity whose value
// was changed in place.
func Modified[T any](w *World, e Entity) error {
	id, err := Component[T](w)
	if err != nil {
		return err
	}
	return w.w.Modified(e, id)
}

// AddPair adds the (R, target) pair to an entity.
func AddPair[R any](w *World, e, target Entity) error {
	rel, err := Component[R](w)
	if err != nil {
		return err
	}
	return w.w.Add(e, MakePair(rel, target))
}

// SetPair sets the data of the (R, target) pair. R must carry data.
func SetPair[R any](w *World, e, target Entity, val R) error {
	rel, err := dataComponent[R](w)
	if err != nil {
		return err
	}
	return w.w.Set(e, MakePair(rel, target), unsafe.Pointer(&val))
}

// GetPair returns the data of the (R, target) pair, or nil.
func GetPair[R any](w *World, e, target Entity) *R {
	rel, err := Component[R](w)
	if err != nil {
		return nil
	}
	return (*R)(w.w.Get(e, MakePair(rel, target)))
}

// RemovePair removes the (R, target) pair. A Wildcard target removes every
// (R, *) pair.
func RemovePair[R any](w *World, e, target Entity) error {
	rel, err := Component[R](w)
	if err != nil {
		return err
	}
	return w.w.Remove(e, MakePair(rel, target))
}

// TargetOf returns the target of the first (R, *) pair of an entity, or 0.
func TargetOf[R any](w *World, e Entity) Entity {
	rel, err := Component[R](w)
	if err != nil {
		return 0
	}
	return w.w.Target(e, rel)
}

// SetSingleton stores a world-wide value of T on the component entity of T.
// Queries read it with a Singleton term or "T($)".
func SetSingleton[T any](w *World, val T) error {
	id, err := dataComponent[T](w)
	if err != nil {
		return err
	}
	return w.w.Set(id, id, unsafe.Pointer(&val))
}

// GetSingleton returns the singleton value of T, or nil when none is set.
func GetSingleton[T any](w *World) *T {
	id, err := Component[T](w)
	if err != nil {
		return nil
	}
	return (*T)(w.w.Get(id, id))
}
