package main

import "testing"

func TestCursorSelectTogglesAtIntersection(t *testing.T) {
	c := NewCursor(crossLayout(t))

	if !c.Select(2, 2) {
		t.Fatal("expected selection on a word cell")
	}
	if w, _ := c.Active(); w.Word != "CHURCH" {
		t.Fatalf("expected CHURCH active first, got %s", w.Word)
	}
	if p, _ := c.Position(); p != (Pos{Row: 2, Col: 2}) {
		t.Fatalf("expected cursor at (2,2), got %v", p)
	}

	c.Select(2, 2)
	if w, _ := c.Active(); w.Word != "UNITY" {
		t.Fatalf("expected toggle to UNITY, got %s", w.Word)
	}

	c.Select(2, 2)
	if w, _ := c.Active(); w.Word != "CHURCH" {
		t.Fatalf("expected toggle back to CHURCH, got %s", w.Word)
	}
}

func TestCursorSelectKeepsWordOffIntersection(t *testing.T) {
	c := NewCursor(crossLayout(t))
	c.Select(4, 2)
	c.Select(3, 2)

	if w, _ := c.Active(); w.Word != "UNITY" {
		t.Fatalf("expected UNITY to stay active, got %s", w.Word)
	}
	if p, _ := c.Position(); p != (Pos{Row: 3, Col: 2}) {
		t.Fatalf("expected cursor at (3,2), got %v", p)
	}
}

func TestCursorSelectEmptyCell(t *testing.T) {
	c := NewCursor(crossLayout(t))

	if c.Select(0, 0) {
		t.Fatal("expected no selection on an unused cell")
	}
	if c.ActiveIndex() != -1 {
		t.Fatalf("expected no active word, got %d", c.ActiveIndex())
	}
}

func TestCursorTypeAdvancesAndStops(t *testing.T) {
	l := crossLayout(t)
	c := NewCursor(l)
	tr := NewTracker(l)
	c.Select(2, 0)

	for _, ch := range "churchX" {
		c.Type(tr, string(ch))
	}

	// The extra X overwrote the last cell, the cursor stayed at the end.
	if p, _ := c.Position(); p != (Pos{Row: 2, Col: 5}) {
		t.Fatalf("expected cursor at the end (2,5), got %v", p)
	}
	if got := tr.Cell(2, 5); got != "X" {
		t.Fatalf("expected X in the last cell, got %q", got)
	}
	if got := tr.Cell(2, 2); got != "U" {
		t.Fatalf("expected U at (2,2), got %q", got)
	}
}

func TestCursorTypeRejectedLetterDoesNotMove(t *testing.T) {
	l := crossLayout(t)
	c := NewCursor(l)
	tr := NewTracker(l)
	c.Select(2, 0)

	if c.Type(tr, "1") {
		t.Fatal("digit should be rejected")
	}
	if p, _ := c.Position(); p != (Pos{Row: 2, Col: 0}) {
		t.Fatalf("expected cursor to stay at (2,0), got %v", p)
	}
}

func TestCursorSkipsHyphen(t *testing.T) {
	l := crossLayout(t)
	c := NewCursor(l)
	tr := NewTracker(l)

	c.Select(9, 4)
	if p, _ := c.Position(); p != (Pos{Row: 9, Col: 5}) {
		t.Fatalf("selecting the hyphen should move to (9,5), got %v", p)
	}

	c.Select(9, 3)
	c.Type(tr, "L")
	if p, _ := c.Position(); p != (Pos{Row: 9, Col: 5}) {
		t.Fatalf("typing before the hyphen should jump to (9,5), got %v", p)
	}

	c.Backspace(tr)
	if p, _ := c.Position(); p != (Pos{Row: 9, Col: 3}) {
		t.Fatalf("backspace should jump back over the hyphen to (9,3), got %v", p)
	}
	if got := tr.Cell(9, 4); got != "-" {
		t.Fatalf("hyphen must stay, got %q", got)
	}
}

func TestCursorBackspace(t *testing.T) {
	l := crossLayout(t)
	c := NewCursor(l)
	tr := NewTracker(l)
	c.Select(2, 0)
	for _, ch := range "CHU" {
		c.Type(tr, string(ch))
	}

	for range 5 {
		c.Backspace(tr)
	}
	if p, _ := c.Position(); p != (Pos{Row: 2, Col: 0}) {
		t.Fatalf("expected cursor back at the start, got %v", p)
	}
	for col := range 3 {
		if got := tr.Cell(2, col); got != "" {
			t.Fatalf("expected (2,%d) cleared, got %q", col, got)
		}
	}
}

func TestCursorWithoutActiveWord(t *testing.T) {
	l := crossLayout(t)
	c := NewCursor(l)
	tr := NewTracker(l)

	if c.Type(tr, "A") || c.Backspace(tr) {
		t.Fatal("typing without an active word should do nothing")
	}
	if _, ok := c.Position(); ok {
		t.Fatal("expected no position")
	}
}
