package main

// Cursor tracks the active word and the focused cell while a player types.
// It holds no letters; writes go through the Tracker.
type Cursor struct {
	layout *Layout
	active int
	pos    int // letter index within the active word
}

// NewCursor returns a cursor with no active word.
func NewCursor(layout *Layout) *Cursor {
	return &Cursor{layout: layout, active: -1}
}

// ActiveIndex returns the index of the active word, or -1.
func (c *Cursor) ActiveIndex() int { return c.active }

// Active returns the active word.
func (c *Cursor) Active() (PlacedWord, bool) {
	if c.active < 0 {
		return PlacedWord{}, false
	}
	return c.layout.Words[c.active], true
}

// Position returns the focused cell.
func (c *Cursor) Position() (Pos, bool) {
	w, ok := c.Active()
	if !ok {
		return Pos{}, false
	}
	return w.Cell(c.pos), true
}

// Clear drops the active word.
func (c *Cursor) Clear() {
	c.active = -1
	c.pos = 0
}

// Select focuses (r, c). When the cell already belongs to the active word and
// another word crosses it, the other word becomes active; otherwise the first
// word covering the cell does. Returns false when no word covers the cell.
func (c *Cursor) Select(r, col int) bool {
	words := c.layout.WordsAt(r, col)
	if len(words) == 0 {
		return false
	}

	next := words[0]
	if c.active >= 0 && c.layout.Words[c.active].Contains(r, col) && len(words) > 1 {
		for _, i := range words {
			if i != c.active {
				next = i
				break
			}
		}
	}

	c.active = next
	c.pos = c.layout.Words[next].IndexOf(r, col)
	c.skipHyphen()
	return true
}

// Type writes letter at the focused cell and moves to the next editable cell
// of the active word, staying put at the end of it. Rejected letters leave the
// cursor where it is.
func (c *Cursor) Type(t *Tracker, letter string) bool {
	p, ok := c.Position()
	if !ok {
		return false
	}
	if !t.SetCell(p.Row, p.Col, letter) {
		return false
	}
	if i, ok := c.step(+1); ok {
		c.pos = i
	}
	return true
}

// Backspace clears the focused cell and moves back one editable cell,
// staying put at the start of the word.
func (c *Cursor) Backspace(t *Tracker) bool {
	p, ok := c.Position()
	if !ok {
		return false
	}
	t.ClearCell(p.Row, p.Col)
	if i, ok := c.step(-1); ok {
		c.pos = i
	}
	return true
}

// step finds the next non-hyphen letter index in direction delta.
func (c *Cursor) step(delta int) (int, bool) {
	w := c.layout.Words[c.active]
	for i := c.pos + delta; i >= 0 && i < w.Len(); i += delta {
		if w.Word[i] != Hyphen {
			return i, true
		}
	}
	return 0, false
}

// skipHyphen moves a cursor resting on a hyphen to the nearest editable cell,
// preferring forward.
func (c *Cursor) skipHyphen() {
	w := c.layout.Words[c.active]
	if w.Word[c.pos] != Hyphen {
		return
	}
	if i, ok := c.step(+1); ok {
		c.pos = i
		return
	}
	if i, ok := c.step(-1); ok {
		c.pos = i
	}
}
