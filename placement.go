package main

import (
	"math/rand/v2"
)

const (
	DefaultGridSize = 12
	DefaultMaxWords = 8
)

// Layout is the result of one placement pass.
type Layout struct {
	Grid  *Grid        `json:"grid"`
	Words []PlacedWord `json:"words"`
	// Skipped lists candidates that fit nowhere. They are dropped from the
	// puzzle, not reported as errors.
	Skipped []string `json:"skipped,omitempty"`
}

// WordsAt returns the indices of the words covering (r, c).
func (l *Layout) WordsAt(r, c int) []int {
	var idx []int
	for i, w := range l.Words {
		if w.Contains(r, c) {
			idx = append(idx, i)
		}
	}
	return idx
}

// StartNumbers returns the numbers of the words starting at (r, c) in
// ascending order. An across and a down word may share a start cell.
func (l *Layout) StartNumbers(r, c int) []int {
	var nums []int
	for _, w := range l.Words {
		if w.Row == r && w.Col == c {
			nums = append(nums, w.Number)
		}
	}
	return nums
}

// Builder places candidate words into a fixed-size grid with a greedy
// first-fit scan.
type Builder struct {
	size     int
	maxWords int
	rand     *rand.Rand
}

// NewBuilder returns a builder for a size×size grid placing at most maxWords
// words. A nil rnd uses the global source.
func NewBuilder(size, maxWords int, rnd *rand.Rand) *Builder {
	return &Builder{size: size, maxWords: maxWords, rand: rnd}
}

func (b *Builder) coin() bool {
	if b.rand == nil {
		return rand.IntN(2) == 0
	}
	return b.rand.IntN(2) == 0
}

// Build places cands in order until maxWords words are on the grid or the
// list runs out. Candidates are expected longest first.
func (b *Builder) Build(cands []Candidate) *Layout {
	l := &Layout{Grid: NewGrid(b.size)}
	next := 1
	for _, cand := range cands {
		if len(l.Words) >= b.maxWords {
			break
		}
		pw, ok := b.placeFirstFit(l.Grid, cand)
		if !ok {
			l.Skipped = append(l.Skipped, cand.Word)
			continue
		}
		pw.Number = next
		next++
		l.Words = append(l.Words, pw)
	}
	return l
}

// placeFirstFit scans row-major and commits the first legal position. The
// orientation tried first is randomized per position.
func (b *Builder) placeFirstFit(g *Grid, cand Candidate) (PlacedWord, bool) {
	for r := range g.size {
		for c := range g.size {
			dirs := [2]Direction{Across, Down}
			if b.coin() {
				dirs = [2]Direction{Down, Across}
			}
			for _, dir := range dirs {
				if g.CanPlace(cand.Word, r, c, dir) {
					g.place(cand.Word, r, c, dir)
					return PlacedWord{
						Word:      cand.Word,
						Phrase:    cand.Phrase,
						Row:       r,
						Col:       c,
						Direction: dir,
					}, true
				}
			}
		}
	}
	return PlacedWord{}, false
}

// CanPlace reports whether word fits at (r, c) in dir without breaking the
// grid invariants. It does not modify the grid.
//
// The cells just before and after the word must be free. An occupied cell
// is only a valid crossing if it holds the same letter and no word already
// runs through it in dir. A free cell must have free neighbours on the
// perpendicular axis, so unrelated words never touch side by side.
func (g *Grid) CanPlace(word string, r, c int, dir Direction) bool {
	n := len(word)
	if n == 0 || !g.InBounds(r, c) {
		return false
	}
	dr, dc := dir.step()
	if !g.InBounds(r+(n-1)*dr, c+(n-1)*dc) {
		return false
	}
	if !g.IsEmpty(r-dr, c-dc) || !g.IsEmpty(r+n*dr, c+n*dc) {
		return false
	}

	// Perpendicular offsets: above/below for Across, left/right for Down.
	pr, pc := dc, dr
	for i := range n {
		rr, cc := r+i*dr, c+i*dc
		cur := g.cells[rr][cc]
		if cur.ch != 0 {
			if cur.ch != word[i] || cur.has(dir) {
				return false
			}
			continue
		}
		if !g.IsEmpty(rr-pr, cc-pc) || !g.IsEmpty(rr+pr, cc+pc) {
			return false
		}
	}
	return true
}

func (g *Grid) place(word string, r, c int, dir Direction) {
	dr, dc := dir.step()
	for i := range len(word) {
		cl := &g.cells[r+i*dr][c+i*dc]
		cl.ch = word[i]
		if dir == Across {
			cl.across = true
		} else {
			cl.down = true
		}
	}
}
