// Code generated by hand from Builder. Keep the arities in sync.

package kozo

import (
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Builder2 is the 2 component variant of Builder.
type Builder2[T1 any, T2 any] struct {
	world *World
	ids   [2]ID
	tags  [2]bool
}

// NewBuilder2 registers T1, T2. See NewBuilder.
func NewBuilder2[T1 any, T2 any](w *World) (*Builder2[T1, T2], error) {
	b := &Builder2[T1, T2]{world: w}
	types := [2]reflect.Type{reflect.TypeFor[T1](), reflect.TypeFor[T2]()}
	var err error
	if b.ids[0], err = Component[T1](w); err != nil {
		return nil, err
	}
	if b.ids[1], err = Component[T2](w); err != nil {
		return nil, err
	}
	for i, t := range types {
		b.tags[i] = t.Size() == 0
	}
	return b, nil
}

// New returns a builder for the same types in another world.
func (b *Builder2[T1, T2]) New(w *World) (*Builder2[T1, T2], error) {
	return NewBuilder2[T1, T2](w)
}

// NewEntity creates one entity with zero values. It returns 0 when the world
// is finished.
func (b *Builder2[T1, T2]) NewEntity() Entity {
	ents, err := b.NewEntities(1)
	if err != nil {
		b.world.log.Warn("builder: entity not created", zap.Error(err))
		return 0
	}
	return ents[0]
}

// NewEntities creates count entities with zero values in one table move each.
// OnAdd hooks and observers run for every entity.
func (b *Builder2[T1, T2]) NewEntities(count int) ([]Entity, error) {
	if count <= 0 {
		return nil, nil
	}
	return b.world.w.NewEntities(b.ids[:], count)
}

// NewEntitiesWithValueSet creates count entities and sets the given values on
// each.
func (b *Builder2[T1, T2]) NewEntitiesWithValueSet(count int, v1 T1, v2 T2) ([]Entity, error) {
	ents, err := b.NewEntities(count)
	if err != nil {
		return nil, err
	}
	if err := b.SetBatch(ents, v1, v2); err != nil {
		return nil, err
	}
	return ents, nil
}

// Get returns pointers to the values of e, nil for missing components and
// tags.
func (b *Builder2[T1, T2]) Get(e Entity) (*T1, *T2) {
	w := b.world.w
	return (*T1)(w.Get(e, b.ids[0])), (*T2)(w.Get(e, b.ids[1]))
}

// Set adds or updates the components of e. Tags are added.
func (b *Builder2[T1, T2]) Set(e Entity, v1 T1, v2 T2) error {
	if err := b.set(e, 0, unsafe.Pointer(&v1)); err != nil {
		return err
	}
	if err := b.set(e, 1, unsafe.Pointer(&v2)); err != nil {
		return err
	}
	return nil
}

func (b *Builder2[T1, T2]) set(e Entity, i int, v unsafe.Pointer) error {
	if b.tags[i] {
		return b.world.w.Add(e, b.ids[i])
	}
	return b.world.w.Set(e, b.ids[i], v)
}

// SetBatch calls Set for every entity and stops at the first error.
func (b *Builder2[T1, T2]) SetBatch(entities []Entity, v1 T1, v2 T2) error {
	for _, e := range entities {
		if err := b.Set(e, v1, v2); err != nil {
			return errors.Wrapf(err, "set %s", e)
		}
	}
	return nil
}

// Builder3 is the 3 component variant of Builder.
type Builder3[T1 any, T2 any, T3 any] struct {
	world *World
	ids   [3]ID
	tags  [3]bool
}

// NewBuilder3 registers T1, T2, T3. See NewBuilder.
func NewBuilder3[T1 any, T2 any, T3 any](w *World) (*Builder3[T1, T2, T3], error) {
	b := &Builder3[T1, T2, T3]{world: w}
	types := [3]reflect.Type{reflect.TypeFor[T1](), reflect.TypeFor[T2](), reflect.TypeFor[T3]()}
	var err error
	if b.ids[0], err = Component[T1](w); err != nil {
		return nil, err
	}
	if b.ids[1], err = Component[T2](w); err != nil {
		return nil, err
	}
	if b.ids[2], err = Component[T3](w); err != nil {
		return nil, err
	}
	for i, t := range types {
		b.tags[i] = t.Size() == 0
	}
	return b, nil
}

// New returns a builder for the same types in another world.
func (b *Builder3[T1, T2, T3]) New(w *World) (*Builder3[T1, T2, T3], error) {
	return NewBuilder3[T1, T2, T3](w)
}

// NewEntity creates one entity with zero values. It returns 0 when the world
// is finished.
func (b *Builder3[T1, T2, T3]) NewEntity() Entity {
	ents, err := b.NewEntities(1)
	if err != nil {
		b.world.log.Warn("builder: entity not created", zap.Error(err))
		return 0
	}
	return ents[0]
}

// NewEntities creates count entities with zero values in one table move each.
// OnAdd hooks and observers run for every entity.
func (b *Builder3[T1, T2, T3]) NewEntities(count int) ([]Entity, error) {
	if count <= 0 {
		return nil, nil
	}
	return b.world.w.NewEntities(b.ids[:], count)
}

// NewEntitiesWithValueSet creates count entities and sets the given values on
// each.
func (b *Builder3[T1, T2, T3]) NewEntitiesWithValueSet(count int, v1 T1, v2 T2, v3 T3) ([]Entity, error) {
	ents, err := b.NewEntities(count)
	if err != nil {
		return nil, err
	}
	if err := b.SetBatch(ents, v1, v2, v3); err != nil {
		return nil, err
	}
	return ents, nil
}

// Get returns pointers to the values of e, nil for missing components and
// tags.
func (b *Builder3[T1, T2, T3]) Get(e Entity) (*T1, *T2, *T3) {
	w := b.world.w
	return (*T1)(w.Get(e, b.ids[0])), (*T2)(w.Get(e, b.ids[1])), (*T3)(w.Get(e, b.ids[2]))
}

// Set adds or updates the components of e. Tags are added.
func (b *Builder3[T1, T2, T3]) Set(e Entity, v1 T1, v2 T2, v3 T3) error {
	if err := b.set(e, 0, unsafe.Pointer(&v1)); err != nil {
		return err
	}
	if err := b.set(e, 1, unsafe.Pointer(&v2)); err != nil {
		return err
	}
	if err := b.set(e, 2, unsafe.Pointer(&v3)); err != nil {
		return err
	}
	return nil
}

func (b *Builder3[T1, T2, T3]) set(e Entity, i int, v unsafe.Pointer) error {
	if b.tags[i] {
		return b.world.w.Add(e, b.ids[i])
	}
	return b.world.w.Set(e, b.ids[i], v)
}

// SetBatch calls Set for every entity and stops at the first error.
func (b *Builder3[T1, T2, T3]) SetBatch(entities []Entity, v1 T1, v2 T2, v3 T3) error {
	for _, e := range entities {
		if err := b.Set(e, v1, v2, v3); err != nil {
			return errors.Wrapf(err, "set %s", e)
		}
	}
	return nil
}

// Builder4 is the 4 component variant of Builder.
type Builder4[T1 any, T2 any, T3 any, T4 any] struct {
	world *World
	ids   [4]ID
	tags  [4]bool
}

// NewBuilder4 registers T1, T2, T3, T4. See NewBuilder.
func NewBuilder4[T1 any, T2 any, T3 any, T4 any](w *World) (*Builder4[T1, T2, T3, T4], error) {
	b := &Builder4[T1, T2, T3, T4]{world: w}
	types := [4]reflect.Type{reflect.TypeFor[T1](), reflect.TypeFor[T2](), reflect.TypeFor[T3](), reflect.TypeFor[T4]()}
	var err error
	if b.ids[0], err = Component[T1](w); err != nil {
		return nil, err
	}
	if b.ids[1], err = Component[T2](w); err != nil {
		return nil, err
	}
	if b.ids[2], err = Component[T3](w); err != nil {
		return nil, err
	}
	if b.ids[3], err = Component[T4](w); err != nil {
		return nil, err
	}
	for i, t := range types {
		b.tags[i] = t.Size() == 0
	}
	return b, nil
}

// New returns a builder for the same types in another world.
func (b *Builder4[T1, T2, T3, T4]) New(w *World) (*Builder4[T1, T2, T3, T4], error) {
	return NewBuilder4[T1, T2, T3, T4](w)
}

// NewEntity creates one entity with zero values. It returns 0 when the world
// is finished.
func (b *Builder4[T1, T2, T3, T4]) NewEntity() Entity {
	ents, err := b.NewEntities(1)
	if err != nil {
		b.world.log.Warn("builder: entity not created", zap.Error(err))
		return 0
	}
	return ents[0]
}

// NewEntities creates count entities with zero values in one table move each.
// OnAdd hooks and observers run for every entity.
func (b *Builder4[T1, T2, T3, T4]) NewEntities(count int) ([]Entity, error) {
	if count <= 0 {
		return nil, nil
	}
	return b.world.w.NewEntities(b.ids[:], count)
}

// NewEntitiesWithValueSet creates count entities and sets the given values on
// each.
func (b *Builder4[T1, T2, T3, T4]) NewEntitiesWithValueSet(count int, v1 T1, v2 T2, v3 T3, v4 T4) ([]Entity, error) {
	ents, err := b.NewEntities(count)
	if err != nil {
		return nil, err
	}
	if err := b.SetBatch(ents, v1, v2, v3, v4); err != nil {
		return nil, err
	}
	return ents, nil
}

// Get returns pointers to the values of e, nil for missing components and
// tags.
func (b *Builder4[T1, T2, T3, T4]) Get(e Entity) (*T1, *T2, *T3, *T4) {
	w := b.world.w
	return (*T1)(w.Get(e, b.ids[0])), (*T2)(w.Get(e, b.ids[1])), (*T3)(w.Get(e, b.ids[2])), (*T4)(w.Get(e, b.ids[3]))
}

// Set adds or updates the components of e. Tags are added.
func (b *Builder4[T1, T2, T3, T4]) Set(e Entity, v1 T1, v2 T2, v3 T3, v4 T4) error {
	if err := b.set(e, 0, unsafe.Pointer(&v1)); err != nil {
		return err
	}
	if err := b.set(e, 1, unsafe.Pointer(&v2)); err != nil {
		return err
	}
	if err := b.set(e, 2, unsafe.Pointer(&v3)); err != nil {
		return err
	}
	if err := b.set(e, 3, unsafe.Pointer(&v4)); err != nil {
		return err
	}
	return nil
}

func (b *Builder4[T1, T2, T3, T4]) set(e Entity, i int, v unsafe.Pointer) error {
	if b.tags[i] {
		return b.world.w.Add(e, b.ids[i])
	}
	return b.world.w.Set(e, b.ids[i], v)
}

// SetBatch calls Set for every entity and stops at the first error.
func (b *Builder4[T1, T2, T3, T4]) SetBatch(entities []Entity, v1 T1, v2 T2, v3 T3, v4 T4) error {
	for _, e := range entities {
		if err := b.Set(e, v1, v2, v3, v4); err != nil {
			return errors.Wrapf(err, "set %s", e)
		}
	}
	return nil
}
