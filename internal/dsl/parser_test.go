package dsl

import (
	stderrors "errors"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -run ^TestParseGolden$ ./internal/dsl -count 1
// Regenerate with: go test ./internal/dsl -run ^TestParseGolden$ -update
func TestParseGolden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	cases := []struct {
		name string
		src  string
	}{
		{"access", "Position, [in] Velocity, [inout] Mass, [none] Tag"},
		{"operators", "*Position, Velocity, !Frozen, ?Mass, [out] *game.Health"},
		{"or_chain", "Position || Velocity || Mass, Tag"},
		{"pairs", "(Likes, *), *(Eats, game.Apples), [filter] !(*, Bob)"},
		{"sources", "Position($), Velocity(up), Mass(cascade ChildOf), Frozen(self), [filter] Tag(Player), [in] ?(Likes, *)(up Owns)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.src)
			require.NoError(t, err)
			g.Assert(t, tc.name, []byte(q.String()))
		})
	}
}

// go test -run ^TestParseTermFields$ ./internal/dsl -count 1
func TestParseTermFields(t *testing.T) {
	q, err := Parse("  [inout] ?*physics.Velocity(up ChildOf)")
	require.NoError(t, err)
	require.Len(t, q.Terms, 1)
	term := q.Terms[0]
	assert.Equal(t, Term{
		Access:     AccessInOut,
		Oper:       OperOptional,
		Mutable:    true,
		First:      "physics.Velocity",
		Source:     SourceUp,
		SourceName: "ChildOf",
		Pos:        2,
	}, term)
	assert.False(t, term.IsPair())
}

// go test -run ^TestParseErrors$ ./internal/dsl -count 1
func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		src string
		pos int
	}{
		"empty":           {"", 0},
		"blank":           {"   ", 0},
		"trailing comma":  {"Position,", 9},
		"trailing or":     {"Position ||", 11},
		"single bar":      {"Position | Velocity", 11},
		"unknown access":  {"[bogus] Position", 1},
		"unclosed access": {"[in Position", 4},
		"bare wildcard":   {"*, Position", 0},
		"pair no comma":   {"(Likes Apples)", 7},
		"unclosed source": {"Position(up", 11},
		"missing comma":   {"Position Velocity", 9},
		"not in or chain": {"!Position || Velocity", 0},
		"dangling dot":    {"game.", 5},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax), "%v", err)
			assert.True(t, stderrors.Is(err, ErrSyntax), "%v", err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.pos, se.Pos, se.Msg)
		})
	}
}
