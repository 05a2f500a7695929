package kozo_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/edwinsyarief/kozo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Components ---
type Position struct{ X, Y float32 }
type Velocity struct{ X, Y float32 }
type Health struct{ Current, Max int }
type Gravity struct{ G float32 }
type Frozen struct{}
type Likes struct{}
type Owns struct{ Since int }

func setupWorld(t testing.TB) *kozo.World {
	t.Helper()
	w := kozo.NewWorld()
	t.Cleanup(w.Fini)
	return w
}

// go test -run ^TestComponentIdempotent$ . -count 1
func TestComponentIdempotent(t *testing.T) {
	w := setupWorld(t)
	a, err := kozo.Component[Position](w)
	require.NoError(t, err)
	b, err := kozo.Component[Position](w)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, kozo.MustComponent[Velocity](w))
	assert.True(t, w.IsAlive(a))
}

// go test -run ^TestComponentIDsAgreeAcrossWorlds$ . -count 1
func TestComponentIDsAgreeAcrossWorlds(t *testing.T) {
	w1 := setupWorld(t)
	w2 := setupWorld(t)

	// Opposite registration order.
	p1 := kozo.MustComponent[Position](w1)
	v1 := kozo.MustComponent[Velocity](w1)
	h1 := kozo.MustComponent[Health](w1)
	h2 := kozo.MustComponent[Health](w2)
	v2 := kozo.MustComponent[Velocity](w2)
	p2 := kozo.MustComponent[Position](w2)

	assert.Equal(t, p1, p2)
	assert.Equal(t, v1, v2)
	assert.Equal(t, h1, h2)
}

// go test -run ^TestAmbiguousIdentity$ . -count 1
func TestAmbiguousIdentity(t *testing.T) {
	w := setupWorld(t)

	first := func() error {
		type Dup struct{ A int }
		_, err := kozo.Component[Dup](w)
		return err
	}
	second := func() error {
		type Dup struct{ B int }
		_, err := kozo.Component[Dup](w)
		return err
	}
	require.NoError(t, first())
	err := second()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kozo.ErrAmbiguousIdentity))
	assert.True(t, errors.Is(err, kozo.ErrRegistration))

	var re *kozo.RegistrationError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Symbol, "Dup")

	// The first registration is unaffected.
	require.NoError(t, first())
}

// go test -run ^TestUnsupportedTypes$ . -count 1
func TestUnsupportedTypes(t *testing.T) {
	w := setupWorld(t)

	_, err := kozo.Component[*Position](w)
	assert.True(t, errors.Is(err, kozo.ErrUnsupportedType))
	_, err = kozo.Component[error](w)
	assert.True(t, errors.Is(err, kozo.ErrUnsupportedType))
}

// go test -run ^TestTagDataMismatch$ . -count 1
func TestTagDataMismatch(t *testing.T) {
	w := setupWorld(t)
	e := w.NewEntity()

	err := kozo.SetComponent(w, e, Frozen{})
	assert.True(t, errors.Is(err, kozo.ErrTagDataMismatch))
	assert.False(t, kozo.HasComponent[Frozen](w, e))

	err = kozo.AddComponent[Frozen](w, e)
	require.NoError(t, err)
	assert.True(t, kozo.HasComponent[Frozen](w, e))
	assert.Nil(t, kozo.GetComponent[Frozen](w, e))
}

// go test -run ^TestLayoutMismatch$ . -count 1
func TestLayoutMismatch(t *testing.T) {
	w := setupWorld(t)

	id, err := kozo.RegisterDynamic(w, "dyn/blob", 16, 8)
	require.NoError(t, err)
	again, err := kozo.RegisterDynamic(w, "dyn/blob", 16, 8)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = kozo.RegisterDynamic(w, "dyn/blob", 24, 8)
	assert.True(t, errors.Is(err, kozo.ErrLayoutMismatch))

	short, err := kozo.Lookup(w, "blob")
	require.NoError(t, err)
	assert.Equal(t, id, short)
}

// go test -run ^TestLookup$ . -count 1
func TestLookup(t *testing.T) {
	w := setupWorld(t)
	pos := kozo.MustComponent[Position](w)

	for _, name := range []string{"Position", "kozo_test.Position", "github.com/edwinsyarief/kozo_test.Position"} {
		id, err := kozo.Lookup(w, name)
		require.NoError(t, err, name)
		assert.Equal(t, pos, id, name)
	}

	_, err := kozo.Lookup(w, "Nope")
	assert.True(t, errors.Is(err, kozo.ErrUnknownName))
	_, err = kozo.Lookup(w, "")
	assert.True(t, errors.Is(err, kozo.ErrUnknownName))

	e, err := w.NewNamedEntity("player")
	require.NoError(t, err)
	id, err := kozo.Lookup(w, "player")
	require.NoError(t, err)
	assert.Equal(t, e, id)
	assert.Equal(t, "player", w.Name(e))
}
