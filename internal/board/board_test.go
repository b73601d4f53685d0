package board

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, s string) Board {
	t.Helper()
	s = strings.ReplaceAll(s, " ", "")
	require.Len(t, s, Size)
	var b Board
	for i, r := range s {
		switch r {
		case 'X':
			b[i] = X
		case 'O':
			b[i] = O
		}
	}
	return b
}

func TestWinner(t *testing.T) {
	cases := []struct {
		name  string
		board string
		want  Mark
	}{
		{"empty", "... ... ...", Empty},
		{"top row", "XXX OO. ...", X},
		{"middle row", "X.X OOO X..", O},
		{"bottom row", "O.O X.. XXX", X},
		{"left column", "OX. OX. O..", O},
		{"middle column", "OX. .X. OX.", X},
		{"right column", "X.O X.O ..O", O},
		{"main diagonal", "XO. OX. ..X", X},
		{"anti diagonal", "X.O XO. O..", O},
		{"full no line", "XOX XOO OXX", Empty},
		{"two in a row only", "XX. OO. ...", Empty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Winner(parse(t, tc.board)))
		})
	}
}

func TestWinnerScanOrderIsRowsFirst(t *testing.T) {
	// unreachable in play, but the scan must still be deterministic
	assert.Equal(t, X, Winner(parse(t, "XXX ... OOO")))
	assert.Equal(t, O, Winner(parse(t, "OOO ... XXX")))
	assert.Equal(t, X, Winner(parse(t, "X.O X.O X.O")))
	assert.Equal(t, O, Winner(parse(t, "XXO XOO OXX")))
}

// Every one of the 3^9 boards: a mark is returned iff some line is uniform and non-empty.
func TestWinnerExhaustive(t *testing.T) {
	marks := [3]Mark{Empty, X, O}
	for code := 0; code < 19683; code++ {
		var b Board
		c := code
		for i := 0; i < Size; i++ {
			b[i] = marks[c%3]
			c /= 3
		}
		uniform := false
		for _, l := range lines {
			if b[l[0]] != Empty && b[l[0]] == b[l[1]] && b[l[1]] == b[l[2]] {
				uniform = true
				break
			}
		}
		w := Winner(b)
		if uniform != (w != Empty) {
			t.Fatalf("board %v: uniform=%v winner=%q", b, uniform, w)
		}
	}
}

func TestIsFull(t *testing.T) {
	assert.False(t, IsFull(Board{}))
	assert.False(t, IsFull(parse(t, "XOX OXO OX.")))
	assert.True(t, IsFull(parse(t, "XOX OXO OXO")))
}

func TestCanPlace(t *testing.T) {
	b := parse(t, "X.. ... ..O")
	assert.False(t, CanPlace(b, 0))
	assert.False(t, CanPlace(b, 10))
	assert.False(t, CanPlace(b, -3))
	assert.False(t, CanPlace(b, 1))
	assert.False(t, CanPlace(b, 9))
	assert.True(t, CanPlace(b, 2))
	assert.True(t, CanPlace(b, 8))
}

func TestRender(t *testing.T) {
	got := Render(parse(t, "X.. .O. ..X"))
	want := "X | 2 | 3\n----------\n4 | O | 6\n----------\n7 | 8 | X\n"
	assert.Equal(t, want, got)
	assert.Equal(t, "1 | 2 | 3\n----------\n4 | 5 | 6\n----------\n7 | 8 | 9\n", Render(Board{}))
}

func TestStringsRoundTripTolerance(t *testing.T) {
	b := parse(t, "XO. ... ..X")
	assert.Equal(t, b, FromStrings(b.Strings()))
	assert.Equal(t, Board{}, FromStrings([]string{"", "?", "z"}))
	assert.Equal(t, X, FromStrings([]string{" x "})[0])
}

func TestOther(t *testing.T) {
	assert.Equal(t, O, X.Other())
	assert.Equal(t, X, O.Other())
	assert.Equal(t, Empty, Empty.Other())
}
