package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

var (
	ErrDeckNotFound = errors.New("deck not found")
	ErrGameNotFound = errors.New("game not found")
)

// Store holds all decks and game sessions in memory. Nothing survives a
// restart.
type Store struct {
	mu    sync.RWMutex
	decks map[string]*Deck
	games map[string]*GameSession
	opts  SessionOptions
}

// NewStore creates an empty store. opts are applied to every game it creates.
func NewStore(opts SessionOptions) *Store {
	return &Store{
		decks: make(map[string]*Deck),
		games: make(map[string]*GameSession),
		opts:  opts,
	}
}

// SetListener routes notifications of games created from now on to l.
func (s *Store) SetListener(l Listener) {
	s.mu.Lock()
	s.opts.Listener = l
	s.mu.Unlock()
}

// SaveDeck stores a deck and returns it with a generated ID.
func (s *Store) SaveDeck(d *Deck) *Deck {
	d.ID = generateID()
	d.CreatedAt = time.Now()
	assignPhraseIDs(d.Phrases, d.CreatedAt)

	s.mu.Lock()
	s.decks[d.ID] = d
	s.mu.Unlock()

	return d
}

// UpdateDeck replaces the phrases of a stored deck, and its topic when topic
// is not empty, then rebuilds every game playing it. Stored decks are never
// mutated in place; the updated deck is a new value.
func (s *Store) UpdateDeck(id, topic string, phrases []Phrase) (*Deck, []*GameSession, error) {
	s.mu.Lock()
	old := s.decks[id]
	if old == nil {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("update deck %s: %w", id, ErrDeckNotFound)
	}
	d := &Deck{ID: old.ID, Topic: old.Topic, Phrases: phrases, CreatedAt: old.CreatedAt}
	if topic != "" {
		d.Topic = topic
	}
	assignPhraseIDs(d.Phrases, time.Now())
	s.decks[id] = d
	games := lo.Filter(lo.Values(s.games), func(g *GameSession, _ int) bool { return g.DeckID == id })
	s.mu.Unlock()

	for _, g := range games {
		g.SetPhrases(slices.Clone(d.Phrases))
	}
	return d, games, nil
}

// GetDeck returns a deck by ID, or nil if not found.
func (s *Store) GetDeck(id string) *Deck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decks[id]
}

// ListDecks returns all decks, most recent first.
func (s *Store) ListDecks() []*Deck {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := lo.Values(s.decks)
	slices.SortStableFunc(list, func(a, b *Deck) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return list
}

// CreateGame starts a crossword session over a stored deck.
func (s *Store) CreateGame(deckID string) (*GameSession, error) {
	s.mu.RLock()
	deck := s.decks[deckID]
	opts := s.opts
	s.mu.RUnlock()

	if deck == nil {
		return nil, fmt.Errorf("create game for %s: %w", deckID, ErrDeckNotFound)
	}

	game := NewGameSession(generateID(), deck.ID, slices.Clone(deck.Phrases), opts)

	s.mu.Lock()
	s.games[game.ID] = game
	s.mu.Unlock()

	return game, nil
}

// GetGame returns a game session by ID, or nil if not found.
func (s *Store) GetGame(id string) *GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id]
}

// ListGames returns all game sessions.
func (s *Store) ListGames() []*GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Values(s.games)
}

// DeleteGame closes and forgets a session.
func (s *Store) DeleteGame(id string) error {
	s.mu.Lock()
	game := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()

	if game == nil {
		return fmt.Errorf("delete game %s: %w", id, ErrGameNotFound)
	}
	game.Close()
	return nil
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
