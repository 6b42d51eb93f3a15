package main

import (
	"testing"
)

// fillWord types the solution of w, leaving hyphens alone.
func fillWord(tr *Tracker, w PlacedWord) {
	for k, p := range w.Cells() {
		if w.Word[k] != Hyphen {
			tr.SetCell(p.Row, p.Col, string(w.Word[k]))
		}
	}
}

func crossLayout(t *testing.T) *Layout {
	t.Helper()
	return manualLayout(t,
		PlacedWord{Word: "CHURCH", Row: 2, Col: 0, Direction: Across},
		PlacedWord{Word: "UNITY", Row: 2, Col: 2, Direction: Down},
		PlacedWord{Word: "WELL-BEING", Row: 9, Col: 0, Direction: Across},
	)
}

func TestTrackerSolveAll(t *testing.T) {
	l := crossLayout(t)
	tr := NewTracker(l)

	for _, w := range l.Words {
		fillWord(tr, w)
	}
	res := tr.Check()

	if len(res.Found) != 3 {
		t.Fatalf("expected 3 found words, got %v", res.Found)
	}
	if len(res.NewlyFound) != 3 {
		t.Fatalf("expected 3 newly found words, got %d", len(res.NewlyFound))
	}
	if !res.Solved || !res.JustSolved {
		t.Fatalf("expected solved transition, got %+v", res)
	}

	// A second check reports no new transition.
	res = tr.Check()
	if !res.Solved || res.JustSolved || len(res.NewlyFound) != 0 {
		t.Fatalf("expected steady solved state, got %+v", res)
	}
}

func TestTrackerWrongLetterUnsolves(t *testing.T) {
	l := crossLayout(t)
	tr := NewTracker(l)
	for _, w := range l.Words {
		fillWord(tr, w)
	}
	tr.Check()

	for wi, w := range l.Words {
		for k, p := range w.Cells() {
			if w.Word[k] == Hyphen {
				continue
			}
			wrong := "Q"
			if w.Word[k] == 'Q' {
				wrong = "Z"
			}
			tr.SetCell(p.Row, p.Col, wrong)
			res := tr.Check()
			if tr.WordFound(wi) || res.Solved {
				t.Fatalf("%s cell %d wrong: expected word and puzzle unsolved", w.Word, k)
			}
			if !res.JustUnsolved {
				t.Fatalf("%s cell %d wrong: expected unsolve transition", w.Word, k)
			}

			tr.SetCell(p.Row, p.Col, string(w.Word[k]))
			if res := tr.Check(); !res.Solved || !res.JustSolved {
				t.Fatalf("%s cell %d restored: expected solved again", w.Word, k)
			}
		}
	}
}

func TestTrackerCrossingCellCountsForBoth(t *testing.T) {
	l := crossLayout(t)
	tr := NewTracker(l)
	fillWord(tr, l.Words[0])

	res := tr.Check()
	if len(res.NewlyFound) != 1 || res.NewlyFound[0].Word != "CHURCH" {
		t.Fatalf("expected CHURCH found, got %+v", res.NewlyFound)
	}

	// The shared U is already typed, so UNITY needs four more letters.
	for i, ch := range "NITY" {
		tr.SetCell(3+i, 2, string(ch))
	}
	res = tr.Check()
	if len(res.NewlyFound) != 1 || res.NewlyFound[0].Word != "UNITY" {
		t.Fatalf("expected UNITY found, got %+v", res.NewlyFound)
	}
	if res.Solved {
		t.Fatal("WELL-BEING is still empty, puzzle must not be solved")
	}
}

func TestTrackerHyphenIsFixed(t *testing.T) {
	l := crossLayout(t)
	tr := NewTracker(l)

	if got := tr.Cell(9, 4); got != "-" {
		t.Fatalf("expected hyphen pre-seeded, got %q", got)
	}
	for _, v := range []string{"A", "z", "-", ""} {
		if tr.SetCell(9, 4, v) {
			t.Fatalf("SetCell(%q) on a hyphen cell should be rejected", v)
		}
	}
	if tr.ClearCell(9, 4) {
		t.Fatal("ClearCell on a hyphen cell should be rejected")
	}
	if got := tr.Cell(9, 4); got != "-" {
		t.Fatalf("hyphen changed to %q", got)
	}
}

func TestTrackerSetCellValidation(t *testing.T) {
	tr := NewTracker(crossLayout(t))

	if !tr.SetCell(2, 0, "c") {
		t.Fatal("lowercase letter should be accepted")
	}
	if got := tr.Cell(2, 0); got != "C" {
		t.Fatalf("expected stored uppercase C, got %q", got)
	}

	rejected := []struct {
		r, c  int
		value string
	}{
		{0, 0, "A"},  // unused cell
		{-1, 0, "A"}, // out of bounds
		{2, 12, "A"}, // out of bounds
		{2, 1, "AB"}, // two letters
		{2, 1, "1"},
		{2, 1, "É"},
		{2, 1, ""},
	}
	for _, tt := range rejected {
		if tr.SetCell(tt.r, tt.c, tt.value) {
			t.Errorf("SetCell(%d, %d, %q) should be rejected", tt.r, tt.c, tt.value)
		}
	}
}

func TestTrackerClearCell(t *testing.T) {
	tr := NewTracker(crossLayout(t))
	tr.SetCell(2, 0, "C")

	if !tr.ClearCell(2, 0) {
		t.Fatal("ClearCell should succeed on a letter cell")
	}
	if got := tr.Cell(2, 0); got != "" {
		t.Fatalf("expected empty cell, got %q", got)
	}
}

func TestTrackerEmptyLayoutNeverSolved(t *testing.T) {
	phrases := []Phrase{{English: "The and for"}}
	l := NewBuilder(12, 8, seeded(1)).Build(NewExtractor(nil).Extract(phrases))

	if len(l.Words) != 0 {
		t.Fatalf("expected empty layout, got %d words", len(l.Words))
	}
	res := NewTracker(l).Check()
	if res.Solved || res.JustSolved {
		t.Fatal("an empty puzzle must not be solved")
	}
}

func TestTrackerInputsCopy(t *testing.T) {
	tr := NewTracker(crossLayout(t))
	tr.SetCell(2, 0, "C")

	in := tr.Inputs()
	in[2][0] = "X"
	if got := tr.Cell(2, 0); got != "C" {
		t.Fatalf("Inputs should return a copy, cell is now %q", got)
	}
}
