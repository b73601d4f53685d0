// Package board holds the tic-tac-toe rules: win/draw detection, move legality and text rendering.
// Everything here is pure and safe for concurrent use.
package board

import (
	"strconv"
	"strings"
)

// Size is the number of cells on the 3x3 grid.
const Size = 9

// Mark is a cell occupant. The zero value is an empty cell.
type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

// Other returns the opposing mark.
func (m Mark) Other() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Valid reports whether m is one of the two playable marks.
func (m Mark) Valid() bool { return m == X || m == O }

// Board is a row-major 3x3 grid, index 0 is the top-left cell.
type Board [Size]Mark

// lines are scanned in a fixed order: rows, columns, diagonals.
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Winner returns the mark of the first uniform, non-empty line, or Empty.
func Winner(b Board) Mark {
	for _, l := range lines {
		a := b[l[0]]
		if a != Empty && a == b[l[1]] && a == b[l[2]] {
			return a
		}
	}
	return Empty
}

// IsFull reports whether no cell is empty.
func IsFull(b Board) bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// CanPlace reports whether the 1-based cell n is on the grid and empty.
func CanPlace(b Board, n int) bool {
	if n < 1 || n > Size {
		return false
	}
	return b[n-1] == Empty
}

// Count returns how many cells hold m.
func Count(b Board, m Mark) int {
	n := 0
	for _, c := range b {
		if c == m {
			n++
		}
	}
	return n
}

// Render shows each occupied cell by its mark and each empty cell by its 1-based number,
// three rows separated by a rule line.
func Render(b Board) string {
	var sb strings.Builder
	for i := 0; i < Size; i++ {
		if b[i] != Empty {
			sb.WriteString(string(b[i]))
		} else {
			sb.WriteString(strconv.Itoa(i + 1))
		}
		if (i+1)%3 == 0 {
			sb.WriteByte('\n')
			if i < Size-1 {
				sb.WriteString("----------\n")
			}
		} else {
			sb.WriteString(" | ")
		}
	}
	return sb.String()
}

// FromStrings decodes the persisted form (one string per cell). Unknown values decode as Empty.
func FromStrings(cells []string) Board {
	var b Board
	for i := 0; i < Size && i < len(cells); i++ {
		switch m := Mark(strings.ToUpper(strings.TrimSpace(cells[i]))); m {
		case X, O:
			b[i] = m
		}
	}
	return b
}

// Strings encodes b in its persisted form.
func (b Board) Strings() []string {
	out := make([]string, Size)
	for i, c := range b {
		out[i] = string(c)
	}
	return out
}
