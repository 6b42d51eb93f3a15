package main

import (
	"strings"
)

// Completion is the outcome of one Tracker.Check call.
type Completion struct {
	// Found holds the indices of every correctly filled word.
	Found []int
	// NewlyFound holds the words that became correct since the previous check.
	NewlyFound []PlacedWord
	Solved     bool
	// JustSolved and JustUnsolved mark transitions of the whole puzzle.
	JustSolved   bool
	JustUnsolved bool
}

// Tracker holds the player's letters for one layout and decides which words
// are solved. The solution grid is never modified.
type Tracker struct {
	layout *Layout
	input  [][]byte
	found  []bool
	solved bool
}

// NewTracker returns a tracker with a blank input grid. Hyphen cells are
// pre-seeded since the player never types them.
func NewTracker(layout *Layout) *Tracker {
	t := &Tracker{layout: layout}
	t.Reset()
	return t
}

// Reset blanks every editable cell and forgets found words.
func (t *Tracker) Reset() {
	n := t.layout.Grid.Size()
	t.input = make([][]byte, n)
	for r := range n {
		t.input[r] = make([]byte, n)
		for c := range n {
			if t.layout.Grid.IsHyphen(r, c) {
				t.input[r][c] = Hyphen
			}
		}
	}
	t.found = make([]bool, len(t.layout.Words))
	t.solved = false
}

// Editable reports whether the player may type into (r, c).
func (t *Tracker) Editable(r, c int) bool {
	ch := t.layout.Grid.At(r, c)
	return ch != 0 && ch != Hyphen
}

// SetCell writes a single letter, stored uppercase. Anything other than one
// A-Z letter, or a write to a hyphen or unused cell, is ignored and returns
// false.
func (t *Tracker) SetCell(r, c int, letter string) bool {
	if !t.Editable(r, c) {
		return false
	}
	ch, ok := normalizeLetter(letter)
	if !ok {
		return false
	}
	t.input[r][c] = ch
	return true
}

// ClearCell erases an editable cell. Hyphen cells stay fixed.
func (t *Tracker) ClearCell(r, c int) bool {
	if !t.Editable(r, c) {
		return false
	}
	t.input[r][c] = 0
	return true
}

// Cell returns the letter typed at (r, c), or "".
func (t *Tracker) Cell(r, c int) string {
	if !t.layout.Grid.InBounds(r, c) || t.input[r][c] == 0 {
		return ""
	}
	return string(t.input[r][c])
}

// Inputs returns a copy of the input grid as strings.
func (t *Tracker) Inputs() [][]string {
	out := make([][]string, len(t.input))
	for r, row := range t.input {
		out[r] = make([]string, len(row))
		for c, ch := range row {
			if ch != 0 {
				out[r][c] = string(ch)
			}
		}
	}
	return out
}

// WordFound reports whether every cell of the i-th word matches the solution.
func (t *Tracker) WordFound(i int) bool {
	w := t.layout.Words[i]
	for k := range w.Len() {
		p := w.Cell(k)
		if t.input[p.Row][p.Col] != w.Word[k] {
			return false
		}
	}
	return true
}

// Solved reports the state recorded by the last Check.
func (t *Tracker) Solved() bool { return t.solved }

// IsFound reports whether word i was found at the last Check.
func (t *Tracker) IsFound(i int) bool {
	return i >= 0 && i < len(t.found) && t.found[i]
}

// Check recomputes found words and the puzzle state. An empty layout is
// never solved.
func (t *Tracker) Check() Completion {
	var res Completion
	all := true
	for i, w := range t.layout.Words {
		ok := t.WordFound(i)
		if ok {
			res.Found = append(res.Found, i)
			if !t.found[i] {
				res.NewlyFound = append(res.NewlyFound, w)
			}
		} else {
			all = false
		}
		t.found[i] = ok
	}

	res.Solved = all && len(t.layout.Words) > 0
	res.JustSolved = res.Solved && !t.solved
	res.JustUnsolved = !res.Solved && t.solved
	t.solved = res.Solved
	return res
}

// normalizeLetter accepts exactly one ASCII letter in either case.
func normalizeLetter(s string) (byte, bool) {
	if len(s) != 1 {
		return 0, false
	}
	ch := strings.ToUpper(s)[0]
	if ch < 'A' || ch > 'Z' {
		return 0, false
	}
	return ch, true
}
