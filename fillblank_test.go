package main

import (
	"errors"
	"slices"
	"testing"
)

func stageWords() []PlacedWord {
	return []PlacedWord{
		{Word: "MARRIAGE", Number: 1, Phrase: Phrase{English: "Bless this marriage, Lord.", Portuguese: "Abençoe este casamento, Senhor."}},
		{Word: "UNITY", Number: 2, Phrase: Phrase{English: "Our community lives in unity", Portuguese: "Nossa comunidade vive em unidade"}},
		{Word: "BRIDE", Number: 3, Phrase: Phrase{English: "For this bride and groom", Portuguese: "Por esta noiva e este noivo"}},
	}
}

func TestFillBlankSlots(t *testing.T) {
	f := NewFillBlank(stageWords())
	blanks := f.Blanks()

	if len(blanks) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(blanks))
	}
	if blanks[0].Before != "Bless this " || blanks[0].After != ", Lord." {
		t.Fatalf("unexpected split %q / %q", blanks[0].Before, blanks[0].After)
	}
	if blanks[0].Translation != "Abençoe este casamento, Senhor." {
		t.Fatalf("unexpected translation %q", blanks[0].Translation)
	}
	// UNITY inside COMMUNITY is not a whole word.
	if blanks[1].Before != "Our community lives in " || blanks[1].After != "" {
		t.Fatalf("unexpected split %q / %q", blanks[1].Before, blanks[1].After)
	}
}

func TestFillBlankPoolIsAlphabetical(t *testing.T) {
	f := NewFillBlank(stageWords())
	f.Assign(0, "UNITY")

	pool := f.Pool()
	words := make([]string, len(pool))
	for i, c := range pool {
		words[i] = c.Word
	}
	if want := []string{"BRIDE", "MARRIAGE", "UNITY"}; !slices.Equal(words, want) {
		t.Fatalf("expected %v, got %v", want, words)
	}
	if !pool[2].Used || pool[0].Used || pool[1].Used {
		t.Fatalf("expected only UNITY used, got %+v", pool)
	}
}

func TestFillBlankAssignErrors(t *testing.T) {
	f := NewFillBlank(stageWords())

	if err := f.Assign(3, "UNITY"); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
	}
	if err := f.Assign(-1, "UNITY"); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
	}
	if err := f.Assign(0, "GROOM"); !errors.Is(err, ErrUnknownChoice) {
		t.Fatalf("expected ErrUnknownChoice, got %v", err)
	}
	if err := f.Assign(0, "UNITY"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Assign(1, "UNITY"); !errors.Is(err, ErrChoiceInUse) {
		t.Fatalf("expected ErrChoiceInUse, got %v", err)
	}
	// Reassigning the same slot is fine.
	if err := f.Assign(0, "UNITY"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Clearing frees the word.
	f.Assign(0, "")
	if err := f.Assign(1, "UNITY"); err != nil {
		t.Fatalf("expected UNITY free after clear, got %v", err)
	}
}

func TestFillBlankPlace(t *testing.T) {
	f := NewFillBlank(stageWords())

	for i, w := range []string{"BRIDE", "MARRIAGE", "UNITY"} {
		slot, err := f.Place(w)
		if err != nil {
			t.Fatalf("place %s: %v", w, err)
		}
		if slot != i {
			t.Fatalf("expected %s in slot %d, got %d", w, i, slot)
		}
	}
	if _, err := f.Place("UNITY"); !errors.Is(err, ErrNoEmptySlot) {
		t.Fatalf("expected ErrNoEmptySlot, got %v", err)
	}
}

func TestFillBlankCheckAll(t *testing.T) {
	f := NewFillBlank(stageWords())

	res := f.CheckAll()
	if res.Solved || len(res.Missing) != 3 {
		t.Fatalf("expected 3 missing, got %+v", res)
	}

	f.Assign(0, "UNITY")
	f.Assign(1, "MARRIAGE")
	f.Assign(2, "BRIDE")
	res = f.CheckAll()
	if res.Solved || !slices.Equal(res.Wrong, []int{0, 1}) || len(res.Missing) != 0 {
		t.Fatalf("expected slots 0 and 1 wrong, got %+v", res)
	}
	// Wrong answers are kept for the player to fix.
	if got := f.Answers(); got[0] != "UNITY" {
		t.Fatalf("expected wrong answer kept, got %v", got)
	}

	f.Assign(0, "")
	f.Assign(1, "UNITY")
	f.Assign(0, "MARRIAGE")
	if res := f.CheckAll(); !res.Solved {
		t.Fatalf("expected solved, got %+v", res)
	}
}

func TestFillBlankEmptyStage(t *testing.T) {
	f := NewFillBlank(nil)

	if res := f.CheckAll(); res.Solved {
		t.Fatal("an empty stage must not be solved")
	}
	if _, err := f.Place("UNITY"); !errors.Is(err, ErrNoEmptySlot) {
		t.Fatalf("expected ErrNoEmptySlot, got %v", err)
	}
}

func TestSplitAround(t *testing.T) {
	tests := []struct {
		text, word    string
		before, after string
	}{
		{"Peace be with you", "PEACE", "", " be with you"},
		{"Go in peace.", "PEACE", "Go in ", "."},
		{"For their well-being as a family", "WELL-BEING", "For their ", " as a family"},
		{"No match here", "UNITY", "No match here", ""},
	}
	for _, tt := range tests {
		before, after := splitAround(tt.text, tt.word)
		if before != tt.before || after != tt.after {
			t.Errorf("splitAround(%q, %q): expected %q / %q, got %q / %q", tt.text, tt.word, tt.before, tt.after, before, after)
		}
	}
}
