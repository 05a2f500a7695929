package engine

import (
	"cmp"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEntities(q *Query) []ID {
	var out []ID
	it := q.Iter()
	for it.Next() {
		out = append(out, it.Entities()...)
	}
	return out
}

// go test -run ^TestQueryValidation$ ./internal/engine -count 1
func TestQueryValidation(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	likes := registerTag(t, w, "likes")
	dead := w.NewEntity()
	w.Delete(dead)

	cases := map[string]QueryDesc{
		"empty":           {},
		"zero id":         {Terms: []TermDesc{{ID: 0}}},
		"dead id":         {Terms: []TermDesc{{ID: dead}}},
		"or last":         {Terms: []TermDesc{{ID: pos, Oper: OperOr}}},
		"or with not":     {Terms: []TermDesc{{ID: pos, Oper: OperOr}, {ID: likes, Oper: OperNot}}},
		"only not":        {Terms: []TermDesc{{ID: pos, Oper: OperNot}}},
		"write wildcard":  {Terms: []TermDesc{{ID: MakePair(likes, Wildcard), InOut: Out}}},
		"not traversable": {Terms: []TermDesc{{ID: pos, Src: SrcUp, Trav: likes}}},
		"dead source":     {Terms: []TermDesc{{ID: pos, Src: SrcFixed, Entity: dead}}},
		"order no cmp":    {Terms: []TermDesc{{ID: pos}}, OrderBy: pos},
	}
	for name, desc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := w.CreateQuery(desc)
			assert.ErrorIs(t, err, ErrQueryInvalid)
		})
	}
}

// go test -run ^TestQueryOperators$ ./internal/engine -count 1
func TestQueryOperators(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")
	frozen := registerTag(t, w, "frozen")

	a, b, c := w.NewEntity(), w.NewEntity(), w.NewEntity()
	setValue(t, w, a, pos, position{})
	setValue(t, w, b, pos, position{})
	setValue(t, w, b, vel, velocity{})
	setValue(t, w, c, vel, velocity{})
	require.NoError(t, w.Add(c, frozen))

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: pos}, {ID: vel, Oper: OperNot}}})
	require.NoError(t, err)
	assert.Equal(t, []ID{a}, collectEntities(q))

	q, err = w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: pos, Oper: OperOr}, {ID: vel}}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []ID{a, b, c}, collectEntities(q))

	q, err = w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: vel}, {ID: pos, Oper: OperOptional}}})
	require.NoError(t, err)
	it := q.Iter()
	seen := map[ID]bool{}
	for it.Next() {
		for _, e := range it.Entities() {
			seen[e] = it.IsSet(1)
		}
	}
	assert.Equal(t, map[ID]bool{b: true, c: false}, seen)
	assert.Equal(t, 2, q.Count())
}

// go test -run ^TestQueryCachedSeesNewTables$ ./internal/engine -count 1
func TestQueryCachedSeesNewTables(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: pos}}, Cached: true})
	require.NoError(t, err)
	e := w.NewEntity()
	setValue(t, w, e, pos, position{})
	assert.Equal(t, 1, q.Count())

	setValue(t, w, e, vel, velocity{})
	assert.Equal(t, []ID{e}, collectEntities(q))

	q.Release()
	assert.False(t, q.Alive())
	assert.Panics(t, func() { q.Iter() })
}

// go test -run ^TestQueryWildcard$ ./internal/engine -count 1
func TestQueryWildcard(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	likes := registerTag(t, w, "likes")
	alice, bob := w.NewEntity(), w.NewEntity()
	require.NoError(t, w.Add(bob, MakePair(likes, alice)))

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: MakePair(likes, Wildcard)}}})
	require.NoError(t, err)
	it := q.Iter()
	require.True(t, it.Next())
	assert.Equal(t, []ID{bob}, it.Entities())
	assert.Equal(t, MakePair(likes, alice), it.ID(0))
	assert.False(t, it.Next())
	assert.True(t, it.Done())
}

// go test -run ^TestQueryUpAndCascade$ ./internal/engine -count 1
func TestQueryUpAndCascade(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")

	root := w.NewEntity()
	setValue(t, w, root, pos, position{X: 1})
	mid := w.NewEntity()
	setValue(t, w, mid, pos, position{X: 2})
	require.NoError(t, w.Add(mid, MakePair(ChildOf, root)))
	leaf := w.NewEntity()
	setValue(t, w, leaf, pos, position{X: 3})
	require.NoError(t, w.Add(leaf, MakePair(ChildOf, mid)))

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{
		{ID: pos},
		{ID: pos, Src: SrcCascade, Oper: OperOptional},
	}})
	require.NoError(t, err)
	var order []ID
	parents := map[ID]float32{}
	it := q.Iter()
	for it.Next() {
		for _, e := range it.Entities() {
			order = append(order, e)
			if it.IsSet(1) {
				assert.False(t, it.IsSelf(1))
				parents[e] = (*position)(it.Column(1)).X
			}
		}
	}
	assert.Equal(t, []ID{root, mid, leaf}, order)
	assert.Equal(t, map[ID]float32{mid: 1, leaf: 2}, parents)
}

// go test -run ^TestQueryFixedSource$ ./internal/engine -count 1
func TestQueryFixedSource(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")
	setValue(t, w, vel, vel, velocity{X: 7})
	for i := 0; i < 3; i++ {
		setValue(t, w, w.NewEntity(), pos, position{})
	}

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{
		{ID: pos},
		{ID: vel, Src: SrcFixed, Entity: vel},
	}})
	require.NoError(t, err)
	it := q.Iter()
	batches := 0
	for it.Next() {
		batches++
		assert.Equal(t, 1, it.Count())
		assert.Equal(t, vel, it.Src(1))
		assert.Equal(t, float32(7), (*velocity)(it.Column(1)).X)
	}
	assert.Equal(t, 3, batches)

	q, err = w.CreateQuery(QueryDesc{Terms: q.Terms(), Instanced: true})
	require.NoError(t, err)
	it = q.Iter()
	require.True(t, it.Next())
	assert.Equal(t, 3, it.Count())
	it.Fini()
}

// go test -run ^TestQueryOrderAndGroup$ ./internal/engine -count 1
func TestQueryOrderAndGroup(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	tag := registerTag(t, w, "tag")

	for _, x := range []float32{3, 1, 2} {
		setValue(t, w, w.NewEntity(), pos, position{X: x})
	}
	tagged := w.NewEntity()
	setValue(t, w, tagged, pos, position{X: 0})
	require.NoError(t, w.Add(tagged, tag))

	q, err := w.CreateQuery(QueryDesc{
		Terms:   []TermDesc{{ID: pos}},
		OrderBy: pos,
		Compare: func(_ ID, p1 unsafe.Pointer, _ ID, p2 unsafe.Pointer) int {
			return cmp.Compare((*position)(p1).X, (*position)(p2).X)
		},
		GroupBy: func(_ *World, ids []ID, _ ID) uint64 {
			if len(ids) > 1 {
				return 0
			}
			return 1
		},
	})
	require.NoError(t, err)
	var xs []float32
	var groups []uint64
	it := q.Iter()
	for it.Next() {
		col := unsafe.Slice((*position)(it.Column(0)), it.Count())
		for _, p := range col {
			xs = append(xs, p.X)
			groups = append(groups, it.GroupID())
		}
	}
	assert.Equal(t, []float32{0, 1, 2, 3}, xs)
	assert.Equal(t, []uint64{0, 1, 1, 1}, groups)

	it = q.Iter()
	it.SetGroup(0)
	require.True(t, it.Next())
	assert.Equal(t, []ID{tagged}, it.Entities())
	assert.False(t, it.Next())
}

// go test -run ^TestObserverOrderAndMatching$ ./internal/engine -count 1
func TestObserverOrderAndMatching(t *testing.T) {
	w := NewWorld(Options{})
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")

	var log []string
	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: pos}, {ID: vel}}})
	require.NoError(t, err)
	freed := 0
	for _, name := range []string{"first", "second"} {
		_, err := w.CreateObserver(ObserverDesc{
			Name:   name,
			Query:  q,
			Events: []Event{EventOnAdd, EventOnSet},
			Callback: func(it *Iter) {
				require.Equal(t, 1, it.Count())
				log = append(log, name+":"+it.Event().String())
			},
			Ctx:  unsafe.Pointer(&freed),
			Free: func(ctx unsafe.Pointer) { *(*int)(ctx)++ },
		})
		require.NoError(t, err)
	}
	q.Release()
	assert.True(t, q.Alive())

	e := w.NewEntity()
	setValue(t, w, e, vel, velocity{})
	assert.Empty(t, log)
	setValue(t, w, e, pos, position{})
	assert.Equal(t, []string{"first:OnAdd", "second:OnAdd", "first:OnSet", "second:OnSet"}, log)

	w.Fini()
	assert.Equal(t, 2, freed)
	assert.False(t, q.Alive())
}

// go test -run ^TestObserverDefersChanges$ ./internal/engine -count 1
func TestObserverDefersChanges(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	marked := registerTag(t, w, "marked")

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: pos}}})
	require.NoError(t, err)
	defer q.Release()
	_, err = w.CreateObserver(ObserverDesc{
		Query:  q,
		Events: []Event{EventOnAdd},
		Callback: func(it *Iter) {
			for _, e := range it.Entities() {
				require.NoError(t, it.World().Add(e, marked))
			}
		},
	})
	require.NoError(t, err)

	e := w.NewEntity()
	require.NoError(t, w.Add(e, pos))
	assert.True(t, w.Has(e, marked))
}

// go test -run ^TestSystemProgress$ ./internal/engine -count 1
func TestSystemProgress(t *testing.T) {
	w := NewWorld(Options{ChunkSize: 2})
	pos := registerTyped[position](t, w, "position")
	vel := registerTyped[velocity](t, w, "velocity")
	for i := 0; i < 5; i++ {
		e := w.NewEntity()
		setValue(t, w, e, pos, position{})
		setValue(t, w, e, vel, velocity{X: 1, Y: 2})
	}

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: pos, InOut: InOutRW}, {ID: vel, InOut: In}}, Cached: true})
	require.NoError(t, err)
	freed := 0
	s, err := w.CreateSystem(SystemDesc{
		Name:  "move",
		Query: q,
		Callback: func(it *Iter) {
			ps := unsafe.Slice((*position)(it.Column(0)), it.Count())
			vs := unsafe.Slice((*velocity)(it.Column(1)), it.Count())
			for i := range ps {
				ps[i].X += vs[i].X * it.DeltaTime()
				ps[i].Y += vs[i].Y * it.DeltaTime()
				if i == 0 {
					// Queued until the batch loop ends.
					_ = it.World().Remove(it.Entities()[i], vel)
				}
			}
		},
		Ctx:  unsafe.Pointer(&freed),
		Free: func(ctx unsafe.Pointer) { *(*int)(ctx)++ },
	})
	require.NoError(t, err)
	q.Release()

	require.True(t, w.Progress(1))
	assert.Equal(t, 2, q.Count())
	assert.Equal(t, 1, w.Systems())

	s.Destroy()
	s.Destroy()
	assert.Equal(t, 1, freed)
	assert.Equal(t, 0, w.Systems())
	w.Fini()
	assert.Equal(t, 1, freed)
}

// go test -run ^TestSystemPanicDiscardsChanges$ ./internal/engine -count 1
func TestSystemPanicDiscardsChanges(t *testing.T) {
	w := NewWorld(Options{})
	defer w.Fini()
	pos := registerTyped[position](t, w, "position")
	e := w.NewEntity()
	setValue(t, w, e, pos, position{})

	q, err := w.CreateQuery(QueryDesc{Terms: []TermDesc{{ID: pos}}})
	require.NoError(t, err)
	s, err := w.CreateSystem(SystemDesc{Query: q, Callback: func(it *Iter) {
		_ = it.World().Remove(it.Entities()[0], pos)
		panic("boom")
	}})
	require.NoError(t, err)
	q.Release()

	assert.PanicsWithValue(t, "boom", func() { s.Run(0) })
	assert.False(t, w.IsDeferred())
	assert.True(t, w.Has(e, pos))
	require.NoError(t, w.Add(e, ChildOf))
}
