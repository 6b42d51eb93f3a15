package main

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// minCandidateLength is the shortest token worth turning into a clue.
const minCandidateLength = 4

// DefaultStopWords are closed-class words plus liturgical words that repeat
// too often in the source texts to make useful clues.
var DefaultStopWords = []string{
	"THE", "AND", "FOR", "THAT", "THIS", "WITH", "YOU", "OUR", "WHO", "ALL", "ARE", "BUT", "NOT", "HAVE", "CAN",
	"FROM", "YOUR", "WHAT", "WHEN", "WHERE", "BEEN", "THEY", "THEM", "THEIR", "WILL", "WHICH", "THERE", "SOME",
	"INTO", "ONTO", "UPON", "ABOUT", "THEN", "THAN", "MORE", "MOST", "SUCH", "LIKE", "ONLY", "VERY", "ALSO", "LORD", "PRAY",
}

// Candidate is a word eligible for placement, tied to the phrase it came from.
type Candidate struct {
	Word   string `json:"word"`
	Phrase Phrase `json:"phrase"`
}

// Extractor turns phrases into placeable words.
type Extractor struct {
	stop map[string]struct{}
}

// NewExtractor returns an extractor using stopWords, or DefaultStopWords when
// stopWords is empty. Stop words are matched case-insensitively.
func NewExtractor(stopWords []string) *Extractor {
	if len(stopWords) == 0 {
		stopWords = DefaultStopWords
	}
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[strings.ToUpper(strings.TrimSpace(w))] = struct{}{}
	}
	return &Extractor{stop: stop}
}

var terminalPunct = strings.NewReplacer(".", "", ",", "", "!", "", "?", "", ";", "", ":", "")

// Extract returns the unique candidate words of phrases, longest first.
// The first phrase containing a word owns it. Ties keep phrase order.
func (e *Extractor) Extract(phrases []Phrase) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})

	for _, p := range phrases {
		clean := strings.ToUpper(terminalPunct.Replace(p.English))
		for _, tok := range strings.Fields(clean) {
			if len([]rune(tok)) < minCandidateLength || !isPlaceable(tok) {
				continue
			}
			if _, ok := e.stop[tok]; ok {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, Candidate{Word: tok, Phrase: p})
		}
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		return len(b.Word) - len(a.Word)
	})
	return out
}

// Words returns just the candidate texts.
func Words(cands []Candidate) []string {
	return lo.Map(cands, func(c Candidate, _ int) string { return c.Word })
}

// isPlaceable accepts A-Z with hyphens only between letters, e.g. WELL-BEING.
// Anything else (apostrophes, digits, accents) could never be typed in.
func isPlaceable(tok string) bool {
	if tok == "" || tok[0] == Hyphen || tok[len(tok)-1] == Hyphen {
		return false
	}
	for i := 0; i < len(tok); i++ {
		ch := tok[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch == Hyphen:
			if tok[i-1] == Hyphen {
				return false
			}
		default:
			return false
		}
	}
	return true
}
