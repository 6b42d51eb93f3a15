package main

import (
	"errors"
	"regexp"
	"slices"

	"github.com/samber/lo"
)

var (
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrUnknownChoice  = errors.New("word is not in the choice pool")
	ErrChoiceInUse    = errors.New("word already used in another slot")
	ErrNoEmptySlot    = errors.New("no empty slot left")
)

// Blank is one sentence of the fill-in stage with the crossword word removed.
type Blank struct {
	Index       int    `json:"index"`
	Before      string `json:"before"`
	After       string `json:"after"`
	Translation string `json:"translation"`
	Answer      string `json:"answer,omitempty"`
}

// Choice is one word of the shared pool.
type Choice struct {
	Word string `json:"word"`
	Used bool   `json:"used"`
}

// FillResult is the outcome of FillBlank.CheckAll.
type FillResult struct {
	Solved  bool  `json:"solved"`
	Wrong   []int `json:"wrong,omitempty"`
	Missing []int `json:"missing,omitempty"`
}

// FillBlank reuses the solved crossword words as a fill-in-the-blank
// exercise over their source phrases. Every word of the pool can fill one
// slot at a time.
type FillBlank struct {
	words   []PlacedWord
	answers []string
}

// NewFillBlank returns a stage with one empty slot per word.
func NewFillBlank(words []PlacedWord) *FillBlank {
	return &FillBlank{
		words:   words,
		answers: make([]string, len(words)),
	}
}

// Blanks returns every slot with its sentence split around the hidden word.
func (f *FillBlank) Blanks() []Blank {
	return lo.Map(f.words, func(w PlacedWord, i int) Blank {
		before, after := splitAround(w.Phrase.English, w.Word)
		return Blank{
			Index:       i,
			Before:      before,
			After:       after,
			Translation: w.Phrase.Portuguese,
			Answer:      f.answers[i],
		}
	})
}

// Pool returns the choices in alphabetical order so their order does not
// give away the slots.
func (f *FillBlank) Pool() []Choice {
	words := lo.Map(f.words, func(w PlacedWord, _ int) string { return w.Word })
	slices.Sort(words)
	return lo.Map(words, func(w string, _ int) Choice {
		return Choice{Word: w, Used: lo.Contains(f.answers, w)}
	})
}

// Answers returns a copy of the tentative answers, "" for empty slots.
func (f *FillBlank) Answers() []string {
	return slices.Clone(f.answers)
}

// Assign records word as the answer of slot. An empty word clears the slot.
func (f *FillBlank) Assign(slot int, word string) error {
	if slot < 0 || slot >= len(f.answers) {
		return ErrSlotOutOfRange
	}
	if word == "" {
		f.answers[slot] = ""
		return nil
	}
	if !lo.ContainsBy(f.words, func(w PlacedWord) bool { return w.Word == word }) {
		return ErrUnknownChoice
	}
	if i := lo.IndexOf(f.answers, word); i >= 0 && i != slot {
		return ErrChoiceInUse
	}
	f.answers[slot] = word
	return nil
}

// Place puts word into the first empty slot and returns that slot.
func (f *FillBlank) Place(word string) (int, error) {
	slot := lo.IndexOf(f.answers, "")
	if slot < 0 {
		return -1, ErrNoEmptySlot
	}
	if err := f.Assign(slot, word); err != nil {
		return -1, err
	}
	return slot, nil
}

// CheckAll compares every answer with its slot's word. Wrong answers are
// kept so the player can fix them.
func (f *FillBlank) CheckAll() FillResult {
	var res FillResult
	for i, w := range f.words {
		switch f.answers[i] {
		case w.Word:
		case "":
			res.Missing = append(res.Missing, i)
		default:
			res.Wrong = append(res.Wrong, i)
		}
	}
	res.Solved = len(f.words) > 0 && len(res.Wrong) == 0 && len(res.Missing) == 0
	return res
}

// splitAround splits text at the first whole-word, case-insensitive match of
// word. When the word is absent the whole text is returned as before.
func splitAround(text, word string) (before, after string) {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return text, ""
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text, ""
	}
	return text[:loc[0]], text[loc[1]:]
}
