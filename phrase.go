package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Difficulty is the learner level a phrase is aimed at.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// IsValid reports whether d is one of the known levels.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Phrase is one English/Portuguese pair produced by the phrase generator.
type Phrase struct {
	ID         string     `json:"id" yaml:"id,omitempty"`
	English    string     `json:"english" yaml:"english"`
	Portuguese string     `json:"portuguese" yaml:"portuguese"`
	Context    string     `json:"context" yaml:"context,omitempty"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
}

// Deck is the ordered phrase list shared by every activity of a session.
type Deck struct {
	ID        string    `json:"id" yaml:"-"`
	Topic     string    `json:"topic" yaml:"topic"`
	Phrases   []Phrase  `json:"phrases" yaml:"phrases"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// LoadDeck decodes a YAML deck from r, fills missing IDs and validates it.
func LoadDeck(r io.Reader) (*Deck, error) {
	var d Deck
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode deck yaml: %w", err)
	}
	assignPhraseIDs(d.Phrases, time.Now())
	if err := ValidatePhrases(d.Phrases); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDeckFile reads a YAML deck from path.
func LoadDeckFile(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deck %q: %w", path, err)
	}
	defer f.Close()

	d, err := LoadDeck(f)
	if err != nil {
		return nil, fmt.Errorf("load deck %q: %w", path, err)
	}
	return d, nil
}

// WriteDeck encodes d as YAML.
func WriteDeck(w io.Writer, d *Deck) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode deck yaml: %w", err)
	}
	return enc.Close()
}

// ValidatePhrases returns a joined error listing every invalid phrase.
func ValidatePhrases(phrases []Phrase) error {
	var errs []error
	seen := make(map[string]bool, len(phrases))
	for i, p := range phrases {
		if strings.TrimSpace(p.English) == "" {
			errs = append(errs, fmt.Errorf("phrases[%d]: english is required", i))
		}
		if p.Difficulty != "" && !p.Difficulty.IsValid() {
			errs = append(errs, fmt.Errorf("phrases[%d]: difficulty %q is invalid; valid values: Beginner, Intermediate, Advanced", i, p.Difficulty))
		}
		if p.ID != "" {
			if seen[p.ID] {
				errs = append(errs, fmt.Errorf("phrases[%d]: duplicate id %q", i, p.ID))
			}
			seen[p.ID] = true
		}
	}
	return errors.Join(errs...)
}

// assignPhraseIDs gives every phrase without an ID a "phrase-<index>-<unixms>" ID.
func assignPhraseIDs(phrases []Phrase, now time.Time) {
	for i := range phrases {
		if phrases[i].ID == "" {
			phrases[i].ID = fmt.Sprintf("phrase-%d-%d", i, now.UnixMilli())
		}
	}
}

var speakerPrefix = regexp.MustCompile(`(?i)^(?:[RV]\.\s*)+`)

// cleanSpeechText drops the "R." / "V." response markers of liturgical texts.
func cleanSpeechText(text string) string {
	return strings.TrimSpace(speakerPrefix.ReplaceAllString(strings.TrimSpace(text), ""))
}
