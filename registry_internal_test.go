package kozo

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/edwinsyarief/kozo/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lateComponent struct{ V int }

// go test -run ^TestSymbolTableRange$ . -count 1
func TestSymbolTableRange(t *testing.T) {
	s := &symbolTable{next: engine.FirstComponentID, limit: engine.FirstComponentID + 2}
	a, ok := s.preferred("a")
	require.True(t, ok)
	b, ok := s.preferred("b")
	require.True(t, ok)
	assert.NotEqual(t, a, b)

	_, ok = s.preferred("c")
	assert.False(t, ok)

	again, ok := s.preferred("a")
	assert.True(t, ok)
	assert.Equal(t, a, again)
}

// go test -run ^TestRegistrationFailsWhenRangeTaken$ . -count 1
func TestRegistrationFailsWhenRangeTaken(t *testing.T) {
	saved := symbolIndex
	symbolIndex = &symbolTable{next: saved.limit, limit: saved.limit}
	t.Cleanup(func() { symbolIndex = saved })

	w := NewWorld()
	defer w.Fini()
	_, err := Component[lateComponent](w)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegistration))
	var re *RegistrationError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, symbolOf(re.Type), re.Symbol)

	_, err = RegisterDynamic(w, "late/dynamic", 8, 8)
	assert.True(t, errors.Is(err, ErrRegistration))
}
