package kozo

import (
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Builder creates entities of one fixed type and reads or writes their
// T value without looking the component up on every call.
//
// Example:
//
//	b, err := kozo.NewBuilder[Position](w)
//	if err != nil {
//	    return err
//	}
//	ents, _ := b.NewEntities(100)
//	b.Set(ents[0], Position{X: 1})
type Builder[T any] struct {
	world *World
	ids   [1]ID
	tags  [1]bool
}

// NewBuilder registers T for use by the builder.
//
// Parameters:
//   - w: The World to create entities in.
//
// Returns:
//   - The builder, or a *RegistrationError.
func NewBuilder[T any](w *World) (*Builder[T], error) {
	b := &Builder[T]{world: w}
	types := [1]reflect.Type{reflect.TypeFor[T]()}
	var err error
	if b.ids[0], err = Component[T](w); err != nil {
		return nil, err
	}
	for i, t := range types {
		b.tags[i] = t.Size() == 0
	}
	return b, nil
}

// New returns a builder for the same types in another world.
func (b *Builder[T]) New(w *World) (*Builder[T], error) {
	return NewBuilder[T](w)
}

// NewEntity creates one entity with zero values. It returns 0 when the world
// is finished.
func (b *Builder[T]) NewEntity() Entity {
	ents, err := b.NewEntities(1)
	if err != nil {
		b.world.log.Warn("builder: entity not created", zap.Error(err))
		return 0
	}
	return ents[0]
}

// NewEntities creates count entities with zero values in one table move each.
// OnAdd hooks and observers run for every entity.
func (b *Builder[T]) NewEntities(count int) ([]Entity, error) {
	if count <= 0 {
		return nil, nil
	}
	return b.world.w.NewEntities(b.ids[:], count)
}

// NewEntitiesWithValueSet creates count entities and sets the given values on
// each.
func (b *Builder[T]) NewEntitiesWithValueSet(count int, v1 T) ([]Entity, error) {
	ents, err := b.NewEntities(count)
	if err != nil {
		return nil, err
	}
	if err := b.SetBatch(ents, v1); err != nil {
		return nil, err
	}
	return ents, nil
}

// Get returns pointers to the values of e, nil for missing components and
// tags.
func (b *Builder[T]) Get(e Entity) *T {
	w := b.world.w
	return (*T)(w.Get(e, b.ids[0]))
}

// Set adds or updates the components of e. Tags are added.
func (b *Builder[T]) Set(e Entity, v1 T) error {
	if err := b.set(e, 0, unsafe.Pointer(&v1)); err != nil {
		return err
	}
	return nil
}

func (b *Builder[T]) set(e Entity, i int, v unsafe.Pointer) error {
	if b.tags[i] {
		return b.world.w.Add(e, b.ids[i])
	}
	return b.world.w.Set(e, b.ids[i], v)
}

// SetBatch calls Set for every entity and stops at the first error.
func (b *Builder[T]) SetBatch(entities []Entity, v1 T) error {
	for _, e := range entities {
		if err := b.Set(e, v1); err != nil {
			return errors.Wrapf(err, "set %s", e)
		}
	}
	return nil
}
