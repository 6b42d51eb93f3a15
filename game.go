package main

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// Phase is the stage a crossword session is in.
type Phase string

const (
	PhaseCrossword  Phase = "crossword"
	PhaseFillBlanks Phase = "fill_blanks"
	PhaseFinished   Phase = "finished"
)

// DefaultSolveDelay is the pause between solving the grid and the fill-in stage.
const DefaultSolveDelay = 1500 * time.Millisecond

var ErrWrongPhase = errors.New("action not allowed in the current phase")

// Settings are player preferences forwarded to the speech collaborator.
type Settings struct {
	Speed float64 `json:"speed"`
	Voice string  `json:"voice"`
}

// DefaultSettings returns normal speed with the default voice.
func DefaultSettings() Settings {
	return Settings{Speed: 1.0, Voice: defaultVoice}
}

// Listener receives session notifications. Calls happen after the session
// lock is released, so listeners may read the session.
type Listener interface {
	CellChanged(g *GameSession, p Pos, value string)
	WordCompleted(g *GameSession, w PlacedWord, speed float64)
	PuzzleSolved(g *GameSession)
	PhaseChanged(g *GameSession, phase Phase)
	StageFinished(g *GameSession)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) CellChanged(*GameSession, Pos, string)            {}
func (NopListener) WordCompleted(*GameSession, PlacedWord, float64) {}
func (NopListener) PuzzleSolved(*GameSession)                        {}
func (NopListener) PhaseChanged(*GameSession, Phase)                 {}
func (NopListener) StageFinished(*GameSession)                       {}

// SessionOptions configures puzzle generation for a session.
type SessionOptions struct {
	GridSize   int
	MaxWords   int
	SolveDelay time.Duration
	StopWords  []string
	Rand       *rand.Rand
	Listener   Listener
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.GridSize <= 0 {
		o.GridSize = DefaultGridSize
	}
	if o.MaxWords <= 0 {
		o.MaxWords = DefaultMaxWords
	}
	if o.SolveDelay < 0 {
		o.SolveDelay = 0
	}
	if o.Listener == nil {
		o.Listener = NopListener{}
	}
	return o
}

// Player represents a connected player.
type Player struct {
	Pseudo   string    `json:"pseudo"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// playerColors is the palette assigned to players in order.
var playerColors = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#ea580c", "#0891b2", "#c026d3", "#ca8a04",
}

// GameSession is one crossword activity over a deck: the grid, the letters
// typed so far, the cursor and, once solved, the fill-in stage.
type GameSession struct {
	ID        string             `json:"id"`
	DeckID    string             `json:"deck_id"`
	Players   map[string]*Player `json:"players"`
	CreatedAt time.Time          `json:"created_at"`

	mu        sync.Mutex
	opts      SessionOptions
	extractor *Extractor
	builder   *Builder
	phrases   []Phrase
	layout    *Layout
	tracker   *Tracker
	cursor    *Cursor
	blanks    *FillBlank
	phase     Phase
	settings  Settings
	timer     *time.Timer
	epoch     int // bumped whenever a pending phase timer becomes stale
	closed    bool
}

// NewGameSession builds the first puzzle for phrases.
func NewGameSession(id, deckID string, phrases []Phrase, opts SessionOptions) *GameSession {
	opts = opts.withDefaults()
	g := &GameSession{
		ID:        id,
		DeckID:    deckID,
		Players:   make(map[string]*Player),
		CreatedAt: time.Now(),
		opts:      opts,
		extractor: NewExtractor(opts.StopWords),
		builder:   NewBuilder(opts.GridSize, opts.MaxWords, opts.Rand),
		phrases:   phrases,
		settings:  DefaultSettings(),
	}
	g.regenerateLocked()
	return g
}

// AddPlayer adds a player to the session and returns the player.
func (g *GameSession) AddPlayer(pseudo string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.Players[pseudo]; ok {
		return p
	}

	p := &Player{
		Pseudo:   pseudo,
		Color:    playerColors[len(g.Players)%len(playerColors)],
		JoinedAt: time.Now(),
	}
	g.Players[pseudo] = p
	return p
}

// RemovePlayer removes a player from the session.
func (g *GameSession) RemovePlayer(pseudo string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Players, pseudo)
}

// Layout returns the current puzzle layout.
func (g *GameSession) Layout() *Layout {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.layout
}

// Phase returns the current phase.
func (g *GameSession) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Settings returns the player preferences.
func (g *GameSession) Settings() Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settings
}

// UpdateSettings replaces the player preferences. Zero fields keep their
// current value.
func (g *GameSession) UpdateSettings(s Settings) Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s.Speed > 0 {
		g.settings.Speed = s.Speed
	}
	if s.Voice != "" {
		g.settings.Voice = s.Voice
	}
	return g.settings
}

// SetPhrases replaces the phrase list and rebuilds the puzzle.
func (g *GameSession) SetPhrases(phrases []Phrase) *Layout {
	g.mu.Lock()
	g.phrases = phrases
	g.regenerateLocked()
	l := g.layout
	g.mu.Unlock()

	g.opts.Listener.PhaseChanged(g, PhaseCrossword)
	return l
}

// Restart discards all progress and builds a fresh puzzle from the same
// phrases.
func (g *GameSession) Restart() *Layout {
	g.mu.Lock()
	g.regenerateLocked()
	l := g.layout
	g.mu.Unlock()

	g.opts.Listener.PhaseChanged(g, PhaseCrossword)
	return l
}

// Close stops any pending phase transition. The session ignores timers
// afterwards.
func (g *GameSession) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.stopTimerLocked()
}

func (g *GameSession) regenerateLocked() {
	g.stopTimerLocked()
	g.layout = g.builder.Build(g.extractor.Extract(g.phrases))
	g.tracker = NewTracker(g.layout)
	g.cursor = NewCursor(g.layout)
	g.blanks = nil
	g.phase = PhaseCrossword
}

// SetCell writes value at (r, c); an empty value erases. It returns false
// when the edit was rejected.
func (g *GameSession) SetCell(r, c int, value string) (bool, error) {
	g.mu.Lock()
	if g.phase != PhaseCrossword {
		g.mu.Unlock()
		return false, ErrWrongPhase
	}
	var ok bool
	if value == "" {
		ok = g.tracker.ClearCell(r, c)
	} else {
		ok = g.tracker.SetCell(r, c, value)
	}
	var events []func()
	if ok {
		events = g.cellEventsLocked(Pos{Row: r, Col: c})
	}
	g.mu.Unlock()

	dispatch(events)
	return ok, nil
}

// SelectCell focuses the word under (r, c), toggling at intersections.
func (g *GameSession) SelectCell(r, c int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseCrossword {
		return false, ErrWrongPhase
	}
	return g.cursor.Select(r, c), nil
}

// Type writes letter at the cursor and advances along the active word.
func (g *GameSession) Type(letter string) (bool, error) {
	return g.cursorEdit(func(p Pos) bool { return g.cursor.Type(g.tracker, letter) })
}

// Backspace clears the cursor cell and steps back along the active word.
func (g *GameSession) Backspace() (bool, error) {
	return g.cursorEdit(func(p Pos) bool { return g.cursor.Backspace(g.tracker) })
}

func (g *GameSession) cursorEdit(edit func(Pos) bool) (bool, error) {
	g.mu.Lock()
	if g.phase != PhaseCrossword {
		g.mu.Unlock()
		return false, ErrWrongPhase
	}
	p, ok := g.cursor.Position()
	if ok {
		ok = edit(p)
	}
	var events []func()
	if ok {
		events = g.cellEventsLocked(p)
	}
	g.mu.Unlock()

	dispatch(events)
	return ok, nil
}

// cellEventsLocked re-checks completion after an edit at p and returns the
// notifications to send once the lock is released.
func (g *GameSession) cellEventsLocked(p Pos) []func() {
	l := g.opts.Listener
	value := g.tracker.Cell(p.Row, p.Col)
	events := []func(){func() { l.CellChanged(g, p, value) }}

	res := g.tracker.Check()
	speed := g.settings.Speed
	for _, w := range res.NewlyFound {
		events = append(events, func() { l.WordCompleted(g, w, speed) })
	}
	switch {
	case res.JustSolved:
		events = append(events, func() { l.PuzzleSolved(g) })
		g.scheduleAdvanceLocked()
	case res.JustUnsolved:
		g.stopTimerLocked()
	}
	return events
}

func (g *GameSession) scheduleAdvanceLocked() {
	g.stopTimerLocked()
	epoch := g.epoch
	g.timer = time.AfterFunc(g.opts.SolveDelay, func() { g.advance(epoch) })
}

func (g *GameSession) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.epoch++
}

// advance moves a still-solved puzzle into the fill-in stage.
func (g *GameSession) advance(epoch int) {
	g.mu.Lock()
	if g.closed || epoch != g.epoch || g.phase != PhaseCrossword || !g.tracker.Solved() {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.phase = PhaseFillBlanks
	g.blanks = NewFillBlank(g.layout.Words)
	g.mu.Unlock()

	g.opts.Listener.PhaseChanged(g, PhaseFillBlanks)
}

// AssignBlank records word as the tentative answer for slot.
func (g *GameSession) AssignBlank(slot int, word string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseFillBlanks {
		return ErrWrongPhase
	}
	return g.blanks.Assign(slot, word)
}

// PlaceBlank puts word into the first empty slot.
func (g *GameSession) PlaceBlank(word string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseFillBlanks {
		return -1, ErrWrongPhase
	}
	return g.blanks.Place(word)
}

// CheckBlanks grades the fill-in stage. A full match finishes the session.
func (g *GameSession) CheckBlanks() (FillResult, error) {
	g.mu.Lock()
	if g.phase != PhaseFillBlanks {
		g.mu.Unlock()
		return FillResult{}, ErrWrongPhase
	}
	res := g.blanks.CheckAll()
	if res.Solved {
		g.phase = PhaseFinished
	}
	g.mu.Unlock()

	if res.Solved {
		g.opts.Listener.PhaseChanged(g, PhaseFinished)
		g.opts.Listener.StageFinished(g)
	}
	return res, nil
}

func dispatch(events []func()) {
	for _, fn := range events {
		fn()
	}
}

// CellView is one board square as sent to clients. Solution letters are
// never included, only hyphens.
type CellView struct {
	Open    bool   `json:"open"`
	Fixed   bool   `json:"fixed,omitempty"`
	Numbers []int  `json:"numbers,omitempty"`
	Value   string `json:"value,omitempty"`
}

// WordView is one entry of the word list. Word is only revealed once found.
type WordView struct {
	Number    int       `json:"number"`
	Word      string    `json:"word,omitempty"`
	Direction Direction `json:"direction"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Length    int       `json:"length"`
	Clue      string    `json:"clue"`
	Found     bool      `json:"found"`
}

// SessionView is a point-in-time copy of a session for rendering.
type SessionView struct {
	ID       string             `json:"id"`
	DeckID   string             `json:"deck_id"`
	Phase    Phase              `json:"phase"`
	Size     int                `json:"size"`
	Board    [][]CellView       `json:"board"`
	Words    []WordView         `json:"words"`
	Solved   bool               `json:"solved"`
	Active   int                `json:"active"`
	Cursor   *Pos               `json:"cursor,omitempty"`
	Settings Settings           `json:"settings"`
	Players  map[string]*Player `json:"players"`
	Blanks   []Blank            `json:"blanks,omitempty"`
	Pool     []Choice           `json:"pool,omitempty"`
}

// Snapshot returns a copy of the session state.
func (g *GameSession) Snapshot() SessionView {
	g.mu.Lock()
	defer g.mu.Unlock()

	grid := g.layout.Grid
	n := grid.Size()
	board := make([][]CellView, n)
	for r := range n {
		board[r] = make([]CellView, n)
		for c := range n {
			if grid.IsEmpty(r, c) {
				continue
			}
			board[r][c] = CellView{
				Open:    true,
				Fixed:   grid.IsHyphen(r, c),
				Numbers: g.layout.StartNumbers(r, c),
				Value:   g.tracker.Cell(r, c),
			}
		}
	}

	words := make([]WordView, len(g.layout.Words))
	for i, w := range g.layout.Words {
		found := g.tracker.IsFound(i)
		words[i] = WordView{
			Number:    w.Number,
			Direction: w.Direction,
			Row:       w.Row,
			Col:       w.Col,
			Length:    w.Len(),
			Clue:      w.Phrase.Portuguese,
			Found:     found,
		}
		if found {
			words[i].Word = w.Word
		}
	}

	players := make(map[string]*Player, len(g.Players))
	for k, p := range g.Players {
		cp := *p
		players[k] = &cp
	}

	v := SessionView{
		ID:       g.ID,
		DeckID:   g.DeckID,
		Phase:    g.phase,
		Size:     n,
		Board:    board,
		Words:    words,
		Solved:   g.tracker.Solved(),
		Active:   g.cursor.ActiveIndex(),
		Settings: g.settings,
		Players:  players,
	}
	if p, ok := g.cursor.Position(); ok {
		v.Cursor = &p
	}
	if g.blanks != nil {
		v.Blanks = g.blanks.Blanks()
		v.Pool = g.blanks.Pool()
	}
	return v
}

// PlacedWords returns the placed word texts in number order.
func (g *GameSession) PlacedWords() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.layout.Words))
	for i, w := range g.layout.Words {
		out[i] = w.Word
	}
	return out
}

// GetState returns a copy of the letters typed so far.
func (g *GameSession) GetState() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tracker.Inputs()
}
