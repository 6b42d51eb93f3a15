package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//go:embed frontend
var frontendFS embed.FS

const (
	maxBodySize     = 1 << 20
	maxSourceLength = 20000
	speechTimeout   = 30 * time.Second
	maxSpeechText   = 500
)

// PhraseGenerator produces the phrase pairs of a new deck.
type PhraseGenerator interface {
	GeneratePhrases(ctx context.Context, req PhraseRequest) ([]Phrase, error)
}

// Server is the main HTTP server. It also listens to every game session it
// creates and relays their notifications to SSE clients.
type Server struct {
	router   chi.Router
	store    *Store
	phrases  PhraseGenerator
	speech   *SpeechCache
	sse      *Broadcaster
	metrics  *Metrics
	log      logrus.FieldLogger
	deckRL   *rateLimiter
	moveRL   *rateLimiter
	speechRL *rateLimiter
}

// ServerDeps are the collaborators of a Server. Phrases and Speech may be
// nil, in which case the matching endpoints answer 503.
type ServerDeps struct {
	Store   *Store
	Phrases PhraseGenerator
	Speech  *SpeechCache
	Metrics *Metrics
	Logger  logrus.FieldLogger
}

// NewServer creates a configured HTTP server.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	s := &Server{
		store:    deps.Store,
		phrases:  deps.Phrases,
		speech:   deps.Speech,
		sse:      NewBroadcaster(),
		metrics:  deps.Metrics,
		log:      logger,
		deckRL:   newRateLimiter(5, time.Minute),  // 5 generations/min per IP
		moveRL:   newRateLimiter(60, time.Second), // 60 moves/sec per IP
		speechRL: newRateLimiter(30, time.Minute),
	}
	s.store.SetListener(s)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/decks", func(r chi.Router) {
			r.With(s.deckRL.limit).Post("/", s.handleCreateDeck)
			r.Get("/", s.handleListDecks)
			r.Get("/{id}", s.handleGetDeck)
			r.With(s.deckRL.limit).Put("/{id}", s.handleUpdateDeck)
		})

		r.Route("/games", func(r chi.Router) {
			r.Post("/", s.handleCreateGame)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetGame)
				r.Delete("/", s.handleDeleteGame)
				r.Post("/join", s.handleJoinGame)
				r.Post("/restart", s.handleRestart)
				r.Put("/settings", s.handleSettings)
				r.Get("/events", s.handleGameEvents)

				r.Group(func(r chi.Router) {
					r.Use(s.moveRL.limit)
					r.Post("/move", s.handleMove)
					r.Post("/select", s.handleSelect)
					r.Post("/key", s.handleKey)
					r.Post("/blanks", s.handleBlank)
					r.Post("/blanks/check", s.handleCheckBlanks)
				})
			})
		})

		r.With(s.speechRL.limit).Get("/speech", s.handleSpeech)
	})

	r.Handle("/metrics", promhttp.Handler())

	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	r.Get("/game/{id}", s.handleGamePage)
	r.Handle("/*", http.FileServer(http.FS(frontendDir)))

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; media-src 'self' blob:; connect-src 'self'")
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for _, rl := range []*rateLimiter{s.deckRL, s.moveRL, s.speechRL} {
		go rl.run(ctx)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		// Event streams end with ctx instead of holding Shutdown open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	for _, g := range s.store.ListGames() {
		g.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// --- Listener ---

func (s *Server) publish(g *GameSession, evt Event) {
	if err := s.sse.Publish(g.ID, evt); err != nil {
		s.log.WithError(err).WithField("game", g.ID).Error("publish event")
	}
}

func (s *Server) CellChanged(g *GameSession, p Pos, value string) {
	s.publish(g, Event{Type: "cell_update", Data: map[string]any{
		"row":   p.Row,
		"col":   p.Col,
		"value": value,
	}})
}

func (s *Server) WordCompleted(g *GameSession, w PlacedWord, speed float64) {
	voice := g.Settings().Voice
	s.publish(g, Event{Type: "word_completed", Data: map[string]any{
		"number":    w.Number,
		"word":      w.Word,
		"direction": w.Direction,
		"phrase":    w.Phrase.English,
		"speed":     speed,
		"audio_url": speechURL(w.Word, voice),
	}})
	if s.metrics != nil {
		s.metrics.WordsCompleted.Add(context.Background(), 1)
	}
	s.warmSpeech(g.ID, w.Word, voice)
}

func (s *Server) PuzzleSolved(g *GameSession) {
	s.publish(g, Event{Type: "puzzle_solved", Data: map[string]any{}})
	if s.metrics != nil {
		s.metrics.PuzzlesSolved.Add(context.Background(), 1)
	}
	s.log.WithField("game", g.ID).Info("crossword solved")
}

func (s *Server) PhaseChanged(g *GameSession, phase Phase) {
	s.publish(g, Event{Type: "phase_changed", Data: map[string]any{
		"phase": phase,
		"state": g.Snapshot(),
	}})
}

func (s *Server) StageFinished(g *GameSession) {
	s.publish(g, Event{Type: "stage_finished", Data: map[string]any{}})
	if s.metrics != nil {
		s.metrics.StagesFinished.Add(context.Background(), 1)
	}
}

// warmSpeech synthesizes text in the background so the client's audio
// request hits the cache. Failures are only logged.
func (s *Server) warmSpeech(gameID, text, voice string) {
	if s.speech == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), speechTimeout)
		defer cancel()
		if _, err := s.speech.PCM(ctx, text, voice); err != nil {
			s.log.WithError(err).WithField("game", gameID).Warn("speech warm-up failed")
		}
	}()
}

func speechURL(text, voice string) string {
	q := url.Values{}
	q.Set("text", text)
	if voice != "" {
		q.Set("voice", voice)
	}
	return "/api/speech?" + q.Encode()
}

// --- Deck handlers ---

// POST /api/decks: store explicit phrases, or generate them with Gemini.
func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic      string   `json:"topic"`
		Level      string   `json:"level"`
		SourceText string   `json:"source_text"`
		Phrases    []Phrase `json:"phrases"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		jsonError(w, "Campo 'topic' obrigatório", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(req.SourceText) > maxSourceLength {
		jsonError(w, "Texto de origem muito longo", http.StatusRequestEntityTooLarge)
		return
	}

	phrases := req.Phrases
	if len(phrases) == 0 {
		if s.phrases == nil {
			jsonError(w, "Geração de frases não configurada", http.StatusServiceUnavailable)
			return
		}
		level := req.Level
		if level == "" {
			level = string(DifficultyIntermediate)
		}

		start := time.Now()
		var err error
		phrases, err = s.phrases.GeneratePhrases(r.Context(), PhraseRequest{
			Topic:      req.Topic,
			Level:      level,
			SourceText: req.SourceText,
		})
		if s.metrics != nil {
			s.metrics.PhraseGenerationDuration.Record(r.Context(), time.Since(start).Seconds())
		}
		if err != nil {
			s.log.WithError(err).WithField("topic", req.Topic).Error("generate phrases")
			jsonError(w, "Erro ao gerar as frases", http.StatusBadGateway)
			return
		}
	}
	for i := range phrases {
		phrases[i].ID = ""
	}
	if err := ValidatePhrases(phrases); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	deck := s.store.SaveDeck(&Deck{Topic: req.Topic, Phrases: phrases})
	s.log.WithFields(logrus.Fields{"deck": deck.ID, "phrases": len(phrases)}).Info("deck created")

	writeJSON(w, http.StatusCreated, deck)
}

// preloadWords synthesizes the placed words of a game in the background so
// the first completions play without delay.
func (s *Server) preloadWords(g *GameSession) {
	if s.speech == nil {
		return
	}
	words := g.PlacedWords()
	voice := g.Settings().Voice
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.speech.Preload(ctx, words, voice); err != nil {
			s.log.WithError(err).WithField("game", g.ID).Warn("speech preload failed")
		}
	}()
}

// GET /api/decks
func (s *Server) handleListDecks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListDecks())
}

// GET /api/decks/{id}
func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deck := s.store.GetDeck(chi.URLParam(r, "id"))
	if deck == nil {
		s.writeError(w, ErrDeckNotFound)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// PUT /api/decks/{id}: replace a deck's phrases. Games over the deck are
// rebuilt and their players start over.
func (s *Server) handleUpdateDeck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic   string   `json:"topic"`
		Phrases []Phrase `json:"phrases"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Phrases) == 0 {
		jsonError(w, "Campo 'phrases' obrigatório", http.StatusBadRequest)
		return
	}
	for i := range req.Phrases {
		req.Phrases[i].ID = ""
	}
	if err := ValidatePhrases(req.Phrases); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	deck, games, err := s.store.UpdateDeck(chi.URLParam(r, "id"), strings.TrimSpace(req.Topic), req.Phrases)
	if err != nil {
		s.writeError(w, err)
		return
	}
	for _, g := range games {
		if s.metrics != nil {
			s.metrics.RecordLayout(r.Context(), g.Layout())
		}
		s.preloadWords(g)
	}
	s.log.WithFields(logrus.Fields{"deck": deck.ID, "phrases": len(deck.Phrases), "games": len(games)}).Info("deck updated")

	writeJSON(w, http.StatusOK, deck)
}

// --- Game handlers ---

// POST /api/games: start a crossword over a deck.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeckID string `json:"deck_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeckID == "" {
		jsonError(w, "Campo 'deck_id' obrigatório", http.StatusBadRequest)
		return
	}

	game, err := s.store.CreateGame(req.DeckID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	layout := game.Layout()
	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(r.Context(), 1)
		s.metrics.RecordLayout(r.Context(), layout)
	}
	s.log.WithFields(logrus.Fields{
		"game":    game.ID,
		"deck":    req.DeckID,
		"placed":  len(layout.Words),
		"skipped": len(layout.Skipped),
	}).Info("game created")
	s.preloadWords(game)

	writeJSON(w, http.StatusCreated, game.Snapshot())
}

// game resolves the {id} path parameter, answering 404 when unknown.
func (s *Server) game(w http.ResponseWriter, r *http.Request) *GameSession {
	game := s.store.GetGame(chi.URLParam(r, "id"))
	if game == nil {
		s.writeError(w, ErrGameNotFound)
	}
	return game
}

// GET /api/games/{id}
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	if game := s.game(w, r); game != nil {
		writeJSON(w, http.StatusOK, game.Snapshot())
	}
}

// DELETE /api/games/{id}
func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteGame(id); err != nil {
		s.writeError(w, err)
		return
	}
	if n := s.sse.CloseRoom(id); n > 0 {
		s.log.WithFields(logrus.Fields{"game": id, "streams": n}).Info("closed event streams of deleted game")
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(r.Context(), -1)
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/games/{id}/join: join a game with a pseudo.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Apelido inválido", http.StatusBadRequest)
		return
	}

	player := game.AddPlayer(pseudo)
	s.publish(game, Event{Type: "player_joined", Data: map[string]any{
		"pseudo": player.Pseudo,
		"color":  player.Color,
	}})

	writeJSON(w, http.StatusOK, player)
}

// POST /api/games/{id}/restart: new layout from the same phrases.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}
	layout := game.Restart()
	if s.metrics != nil {
		s.metrics.RecordLayout(r.Context(), layout)
	}
	s.preloadWords(game)
	writeJSON(w, http.StatusOK, game.Snapshot())
}

// PUT /api/games/{id}/settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}
	var req Settings
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Speed < 0 || req.Speed > 4 {
		jsonError(w, "Velocidade deve estar entre 0 e 4", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, game.UpdateSettings(req))
}

// POST /api/games/{id}/move: write or erase one letter.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}

	var req struct {
		Row   int    `json:"row"`
		Col   int    `json:"col"`
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	value := strings.ToUpper(strings.TrimSpace(req.Value))
	if value != "" && (utf8.RuneCountInString(value) != 1 || value < "A" || value > "Z") {
		jsonError(w, "Valor inválido: uma letra A-Z ou vazio", http.StatusBadRequest)
		return
	}

	ok, err := game.SetCell(req.Row, req.Col, value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		jsonError(w, "Casa não editável", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/games/{id}/select: focus the word under a cell.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}
	var req struct {
		Row int `json:"row"`
		Col int `json:"col"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := game.SelectCell(req.Row, req.Col); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.Snapshot())
}

// POST /api/games/{id}/key: type a letter or Backspace at the cursor.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		ok  bool
		err error
	)
	if req.Key == "Backspace" {
		ok, err = game.Backspace()
	} else {
		ok, err = game.Type(req.Key)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accepted": ok,
		"state":    game.Snapshot(),
	})
}

// POST /api/games/{id}/blanks: assign a word to a slot, or to the first
// empty slot when no slot is given. An empty word clears the slot.
func (s *Server) handleBlank(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}
	var req struct {
		Slot *int   `json:"slot"`
		Word string `json:"word"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	slot := -1
	if req.Slot != nil {
		slot = *req.Slot
		err = game.AssignBlank(slot, req.Word)
	} else {
		slot, err = game.PlaceBlank(req.Word)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slot":  slot,
		"state": game.Snapshot(),
	})
}

// POST /api/games/{id}/blanks/check
func (s *Server) handleCheckBlanks(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}
	res, err := game.CheckBlanks()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/games/{id}/events: SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	game := s.game(w, r)
	if game == nil {
		return
	}

	playerPseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))

	s.sse.ServeSSE(w, r, game.ID, func() []byte {
		data, err := json.Marshal(Event{Type: "game_state", Data: map[string]any{
			"state": game.Snapshot(),
		}})
		if err != nil {
			s.log.WithError(err).WithField("game", game.ID).Error("encode game state")
			return nil
		}
		return data
	}, func() {
		if playerPseudo != "" {
			game.RemovePlayer(playerPseudo)
			s.publish(game, Event{Type: "player_left", Data: map[string]any{
				"pseudo": playerPseudo,
			}})
		}
	})
}

// --- Speech ---

// GET /api/speech?text=&voice=: WAV audio for a phrase.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		jsonError(w, "Síntese de voz não configurada", http.StatusServiceUnavailable)
		return
	}
	text := r.URL.Query().Get("text")
	if utf8.RuneCountInString(text) > maxSpeechText {
		jsonError(w, "Texto muito longo", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), speechTimeout)
	defer cancel()
	wav, err := s.speech.WAV(ctx, text, r.URL.Query().Get("voice"))
	if err != nil {
		s.recordSpeech(r.Context(), "error")
		if errors.Is(err, ErrEmptySpeechText) {
			s.writeError(w, err)
			return
		}
		s.log.WithError(err).Warn("speech synthesis failed")
		jsonError(w, "Erro na síntese de voz", http.StatusBadGateway)
		return
	}
	s.recordSpeech(r.Context(), "ok")

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(wav)
}

func (s *Server) recordSpeech(ctx context.Context, status string) {
	if s.metrics != nil {
		s.metrics.RecordSpeech(ctx, status)
	}
}

// --- Frontend page handlers ---

// GET /game/{id}: serve the game page.
func (s *Server) handleGamePage(w http.ResponseWriter, _ *http.Request) {
	data, _ := frontendFS.ReadFile("frontend/game.html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

var errorMessages = []struct {
	err    error
	msg    string
	status int
}{
	{ErrGameNotFound, "Jogo não encontrado", http.StatusNotFound},
	{ErrDeckNotFound, "Baralho não encontrado", http.StatusNotFound},
	{ErrWrongPhase, "Ação indisponível nesta etapa", http.StatusConflict},
	{ErrChoiceInUse, "Palavra já usada em outra lacuna", http.StatusConflict},
	{ErrNoEmptySlot, "Todas as lacunas estão preenchidas", http.StatusConflict},
	{ErrSlotOutOfRange, "Lacuna inexistente", http.StatusBadRequest},
	{ErrUnknownChoice, "Palavra fora da lista", http.StatusBadRequest},
	{ErrEmptySpeechText, "Campo 'text' obrigatório", http.StatusBadRequest},
}

// writeError maps sentinel errors to status codes; anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			jsonError(w, m.msg, m.status)
			return
		}
	}
	s.log.WithError(err).Error("request failed")
	jsonError(w, "Erro interno", http.StatusInternalServerError)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "Requisição inválida", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizePseudo(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20])
	}
	return s
}
