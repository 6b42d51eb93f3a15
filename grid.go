package main

import (
	"encoding/json"
	"strings"
)

// Hyphen is the only non-letter a word may contain. Hyphen cells are
// pre-filled and never typed by the player.
const Hyphen = '-'

// Direction is the orientation of a placed word.
type Direction string

const (
	Across Direction = "across"
	Down   Direction = "down"
)

// step returns the row/col delta between consecutive letters.
func (d Direction) step() (dr, dc int) {
	if d == Across {
		return 0, 1
	}
	return 1, 0
}

// Pos is a grid coordinate.
type Pos struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// cell is one square of the solution grid. ch is 0 when unused.
type cell struct {
	ch     byte
	across bool
	down   bool
}

func (c cell) has(d Direction) bool {
	if d == Across {
		return c.across
	}
	return c.down
}

// Grid is the square solution grid. It is only mutated while a layout is
// being built.
type Grid struct {
	size  int
	cells [][]cell
}

// NewGrid returns an empty size×size grid.
func NewGrid(size int) *Grid {
	if size < 0 {
		size = 0
	}
	cells := make([][]cell, size)
	for i := range cells {
		cells[i] = make([]cell, size)
	}
	return &Grid{size: size, cells: cells}
}

// Size returns the side length.
func (g *Grid) Size() int { return g.size }

// InBounds reports whether (r, c) lies on the grid.
func (g *Grid) InBounds(r, c int) bool {
	return r >= 0 && r < g.size && c >= 0 && c < g.size
}

// At returns the solution letter at (r, c), or 0 for an unused or
// out-of-bounds cell.
func (g *Grid) At(r, c int) byte {
	if !g.InBounds(r, c) {
		return 0
	}
	return g.cells[r][c].ch
}

// IsEmpty reports whether (r, c) is unused. Out-of-bounds counts as empty.
func (g *Grid) IsEmpty(r, c int) bool {
	return g.At(r, c) == 0
}

// IsHyphen reports whether (r, c) holds a fixed hyphen.
func (g *Grid) IsHyphen(r, c int) bool {
	return g.At(r, c) == Hyphen
}

// Rows renders the grid as strings, "." for unused cells.
func (g *Grid) Rows() []string {
	lines := make([]string, g.size)
	for r := range g.size {
		var b strings.Builder
		for c := range g.size {
			if ch := g.cells[r][c].ch; ch != 0 {
				b.WriteByte(ch)
			} else {
				b.WriteByte('.')
			}
		}
		lines[r] = b.String()
	}
	return lines
}

// String renders the grid one row per line.
func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}

// MarshalJSON encodes the solution as rows of single-letter strings.
func (g *Grid) MarshalJSON() ([]byte, error) {
	out := make([][]string, g.size)
	for r := range g.size {
		out[r] = make([]string, g.size)
		for c := range g.size {
			if ch := g.cells[r][c].ch; ch != 0 {
				out[r][c] = string(ch)
			}
		}
	}
	return json.Marshal(out)
}

// PlacedWord is a candidate positioned on the grid. Row/Col locate its first
// letter. Number follows placement order, not reading order.
type PlacedWord struct {
	Word      string    `json:"word"`
	Phrase    Phrase    `json:"phrase"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Direction Direction `json:"direction"`
	Number    int       `json:"number"`
}

// Len returns the number of cells the word covers.
func (w PlacedWord) Len() int { return len(w.Word) }

// Cell returns the coordinate of the i-th letter.
func (w PlacedWord) Cell(i int) Pos {
	dr, dc := w.Direction.step()
	return Pos{Row: w.Row + i*dr, Col: w.Col + i*dc}
}

// Cells returns every coordinate the word covers, in reading order.
func (w PlacedWord) Cells() []Pos {
	out := make([]Pos, w.Len())
	for i := range out {
		out[i] = w.Cell(i)
	}
	return out
}

// IndexOf returns the letter index of (r, c) within the word, or -1.
func (w PlacedWord) IndexOf(r, c int) int {
	var i int
	if w.Direction == Across {
		if r != w.Row {
			return -1
		}
		i = c - w.Col
	} else {
		if c != w.Col {
			return -1
		}
		i = r - w.Row
	}
	if i < 0 || i >= w.Len() {
		return -1
	}
	return i
}

// Contains reports whether the word covers (r, c).
func (w PlacedWord) Contains(r, c int) bool {
	return w.IndexOf(r, c) >= 0
}
