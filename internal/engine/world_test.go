package engine

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct {
	X, Y float32
}

type velocity struct {
	X, Y float32
}

func registerTyped[T any](t *testing.T, w *World, name string) ID {
	t.Helper()
	typ := reflect.TypeFor[T]()
	id, err := w.RegisterComponent(ComponentDesc{Name: name, Type: typ})
	require.NoError(t, err)
	return id
}

func registerTag(t *testing.T, w *World, name string) ID {
	t.Helper()
	id, err := w.RegisterComponent(ComponentDesc{Name: name})
	require.NoError(t, err)
	return id
}

func setValue[T any](t *testing.T, w *World, e, id ID, v T) {
	t.Helper()
	require.NoError(t, w.Set(e, id, unsafe.Pointer(&v)))
}

// go test -run ^TestRegisterComponentIdempotent$ ./internal/engine -count 1
func TestRegisterComponentIdempotent(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()

	a := registerTyped[position](t, w, "engine.position")
	b := registerTyped[position](t, w, "engine.position")
	assert.Equal(t, a, b)
	assert.True(t, w.IsComponent(a))
	assert.Equal(t, a, w.Lookup("engine.position"))

	_, err := w.RegisterComponent(ComponentDesc{Name: "engine.position", Size: 4, Align: 4})
	assert.True(t, errors.Is(err, ErrComponentDesc))
}

// go test -run ^TestPreferredID$ ./internal/engine -count 1
func TestPreferredID(t *testing.T) {
	w1 := NewWorld(Options{})
	defer w1.Fini()
	w2 := NewWorld(Options{})
	defer w2.Fini()

	_, err := w2.RegisterComponent(ComponentDesc{Name: "other", Size: 8, Align: 8})
	require.NoError(t, err)

	want := ID(FirstComponentID + 7)
	a, err := w1.RegisterComponent(ComponentDesc{Name: "pos", PreferredID: want, Type: reflect.TypeFor[position]()})
	require.NoError(t, err)
	b, err := w2.RegisterComponent(ComponentDesc{Name: "pos", PreferredID: want, Type: reflect.TypeFor[position]()})
	require.NoError(t, err)
	assert.Equal(t, want, a)
	assert.Equal(t, a, b)
}

// go test -run ^TestSetGetRemove$ ./internal/engine -count 1
func TestSetGetRemove(t *testing.T) {
	w := NewWorld(Options{ChunkSize: 4})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")

	var entities []ID
	for i := 0; i < 10; i++ {
		e := w.NewEntity()
		setValue(t, w, e, pos, position{X: float32(i)})
		if i%2 == 0 {
			setValue(t, w, e, vel, velocity{Y: 1})
		}
		entities = append(entities, e)
	}
	for i, e := range entities {
		p := (*position)(w.Get(e, pos))
		require.NotNil(t, p)
		assert.Equal(t, float32(i), p.X)
		assert.Equal(t, i%2 == 0, w.Has(e, vel))
	}

	require.NoError(t, w.Remove(entities[0], vel))
	assert.False(t, w.Has(entities[0], vel))
	assert.Equal(t, float32(0), (*position)(w.Get(entities[0], pos)).X)
	for i, e := range entities[1:] {
		assert.Equal(t, float32(i+1), (*position)(w.Get(e, pos)).X)
	}
}

// go test -run ^TestDeleteRecyclesIndex$ ./internal/engine -count 1
func TestDeleteRecyclesIndex(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()

	e := w.NewEntity()
	w.Delete(e)
	assert.False(t, w.IsAlive(e))

	e2 := w.NewEntity()
	assert.Equal(t, e.Index(), e2.Index())
	assert.NotEqual(t, e.Generation(), e2.Generation())
	assert.ErrorIs(t, w.Add(e, ChildOf), ErrNotAlive)
}

// go test -run ^TestDeleteRefusesComponents$ ./internal/engine -count 1
func TestDeleteRefusesComponents(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")

	w.Delete(pos)
	w.Delete(ChildOf)
	assert.True(t, w.IsAlive(pos))
	assert.True(t, w.IsAlive(ChildOf))
}

// go test -run ^TestChildOfCascade$ ./internal/engine -count 1
func TestChildOfCascade(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	likes := registerTag(t, w, "likes")

	parent := w.NewEntity()
	child := w.NewEntity()
	grandchild := w.NewEntity()
	fan := w.NewEntity()
	require.NoError(t, w.Add(child, MakePair(ChildOf, parent)))
	require.NoError(t, w.Add(grandchild, MakePair(ChildOf, child)))
	require.NoError(t, w.Add(fan, MakePair(likes, parent)))
	assert.Equal(t, parent, w.Parent(child))

	w.Delete(parent)
	assert.False(t, w.IsAlive(child))
	assert.False(t, w.IsAlive(grandchild))
	assert.True(t, w.IsAlive(fan))
	assert.False(t, w.Has(fan, MakePair(likes, Wildcard)))
}

// go test -run ^TestChildOfExclusive$ ./internal/engine -count 1
func TestChildOfExclusive(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()

	a, b, child := w.NewEntity(), w.NewEntity(), w.NewEntity()
	require.NoError(t, w.Add(child, MakePair(ChildOf, a)))
	require.NoError(t, w.Add(child, MakePair(ChildOf, b)))
	assert.Equal(t, b, w.Parent(child))
	assert.False(t, w.Has(child, MakePair(ChildOf, a)))
}

type hookCounter struct {
	calls map[HookKind]int
	freed int
}

func installCounter(t *testing.T, w *World, comp ID, c *hookCounter, kind HookKind) {
	t.Helper()
	fn := func(_ *World, _ ID, _ unsafe.Pointer, ctx unsafe.Pointer) {
		(*hookCounter)(ctx).calls[kind]++
	}
	free := func(ctx unsafe.Pointer) {
		(*hookCounter)(ctx).freed++
	}
	require.NoError(t, w.SetHook(comp, kind, fn, unsafe.Pointer(c), free))
}

// go test -run ^TestHooksFireAndReleaseOnce$ ./internal/engine -count 1
func TestHooksFireAndReleaseOnce(t *testing.T) {
	w := NewWorld(Options{})
	pos := registerTyped[position](t, w, "position")
	c := &hookCounter{calls: map[HookKind]int{}}
	installCounter(t, w, pos, c, HookOnAdd)
	installCounter(t, w, pos, c, HookOnRemove)
	installCounter(t, w, pos, c, HookOnSet)

	e := w.NewEntity()
	setValue(t, w, e, pos, position{1, 2})
	setValue(t, w, e, pos, position{3, 4})
	assert.Equal(t, 1, c.calls[HookOnAdd])
	assert.Equal(t, 2, c.calls[HookOnSet])

	require.NoError(t, w.Add(e, pos))
	assert.Equal(t, 1, c.calls[HookOnAdd])

	w.NewEntity()
	e2 := w.NewEntity()
	setValue(t, w, e2, pos, position{})
	w.Delete(e)
	assert.Equal(t, 1, c.calls[HookOnRemove])

	w.Fini()
	assert.Equal(t, 2, c.calls[HookOnRemove])
	assert.Equal(t, 3, c.freed)
	w.Fini()
	assert.Equal(t, 3, c.freed)
}

// go test -run ^TestHookReplaceReleasesPrevious$ ./internal/engine -count 1
func TestHookReplaceReleasesPrevious(t *testing.T) {
	w := NewWorld(Options{})
	pos := registerTyped[position](t, w, "position")
	first := &hookCounter{calls: map[HookKind]int{}}
	second := &hookCounter{calls: map[HookKind]int{}}

	installCounter(t, w, pos, first, HookOnAdd)
	installCounter(t, w, pos, second, HookOnAdd)
	assert.Equal(t, 1, first.freed)
	assert.Equal(t, 0, second.freed)

	w.Fini()
	assert.Equal(t, 1, first.freed)
	assert.Equal(t, 1, second.freed)
}

// go test -run ^TestLockedTablePanics$ ./internal/engine -count 1
func TestLockedTablePanics(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")
	e := w.NewEntity()
	setValue(t, w, e, pos, position{})

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: pos, InOut: InOutRW}}})
	require.NoError(t, err)
	defer q.Release()

	it := q.Iter()
	require.True(t, it.Next())
	assert.PanicsWithValue(t, "ecs: structural change on locked table; defer changes made during iteration", func() {
		_ = w.Add(e, vel)
	})
	it.Fini()
	it.Fini()
	require.NoError(t, w.Add(e, vel))
	assert.True(t, w.Has(e, vel))
}

// go test -run ^TestDeferredChanges$ ./internal/engine -count 1
func TestDeferredChanges(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")

	e := w.NewEntity()
	w.DeferBegin()
	setValue(t, w, e, pos, position{5, 6})
	p, err := w.Ensure(e, vel)
	require.NoError(t, err)
	(*velocity)(p).X = 9
	doomed := w.NewEntity()
	w.Delete(doomed)
	assert.False(t, w.Has(e, pos))
	assert.True(t, w.IsAlive(doomed))
	w.DeferEnd()

	assert.Equal(t, position{5, 6}, *(*position)(w.Get(e, pos)))
	assert.Equal(t, velocity{X: 9}, *(*velocity)(w.Get(e, vel)))
	assert.False(t, w.IsAlive(doomed))

	w.DeferBegin()
	require.NoError(t, w.Remove(e, pos))
	w.DeferDiscard()
	assert.True(t, w.Has(e, pos))
}

// go test -run ^TestWildcardRemove$ ./internal/engine -count 1
func TestWildcardRemove(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	likes := registerTag(t, w, "likes")
	a, b, e := w.NewEntity(), w.NewEntity(), w.NewEntity()
	require.NoError(t, w.Add(e, MakePair(likes, a)))
	require.NoError(t, w.Add(e, MakePair(likes, b)))
	assert.True(t, w.Has(e, MakePair(likes, Wildcard)))

	require.NoError(t, w.Remove(e, MakePair(likes, Wildcard)))
	assert.False(t, w.Has(e, MakePair(likes, Wildcard)))
}

// go test -run ^TestFinishedWorldRejects$ ./internal/engine -count 1
func TestFinishedWorldRejects(t *testing.T) {
	w := NewWorld(Options{})
	w.Fini()
	assert.True(t, w.Finished())
	_, err := w.RegisterComponent(ComponentDesc{Name: "late"})
	assert.ErrorIs(t, err, ErrWorldFinished)
	assert.False(t, w.Progress(0))
}

// go test -run ^TestFiniHooksCannotReshape$ ./internal/engine -count 1
func TestFiniHooksCannotReshape(t *testing.T) {
	w := NewWorld(Options{})
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")

	ents := make([]ID, 4)
	for i := range ents {
		ents[i] = w.NewEntity()
		setValue(t, w, ents[i], pos, position{X: float32(i)})
	}

	seen := map[ID]int{}
	var errs []error
	fn := func(w *World, e ID, ptr unsafe.Pointer, _ unsafe.Pointer) {
		seen[e]++
		require.NotNil(t, ptr)
		errs = append(errs, w.Remove(ents[3], pos), w.Set(e, vel, unsafe.Pointer(&velocity{})))
		w.Delete(ents[0])
	}
	require.NoError(t, w.SetHook(pos, HookOnRemove, fn, nil, nil))

	w.Fini()
	for _, e := range ents {
		assert.Equal(t, 1, seen[e], "entity %s", e)
	}
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrWorldFinished)
	}
}
