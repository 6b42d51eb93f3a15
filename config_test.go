package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Crossword.GridSize != DefaultGridSize || cfg.Crossword.MaxWords != DefaultMaxWords {
		t.Errorf("unexpected crossword defaults %+v", cfg.Crossword)
	}
	if cfg.Crossword.SolveDelay != DefaultSolveDelay {
		t.Errorf("expected solve delay %s, got %s", DefaultSolveDelay, cfg.Crossword.SolveDelay)
	}
	if cfg.Gemini.Model != defaultModel || cfg.Gemini.Voice != defaultVoice || cfg.Gemini.Region != defaultRegion {
		t.Errorf("unexpected gemini defaults %+v", cfg.Gemini)
	}
	if cfg.Gemini.SpeechCacheSize != DefaultSpeechCacheSize {
		t.Errorf("expected speech cache size %d, got %d", DefaultSpeechCacheSize, cfg.Gemini.SpeechCacheSize)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults %+v", cfg.Log)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("CROSSWORD_GRID_SIZE", "15")
	t.Setenv("CROSSWORD_SOLVE_DELAY", "500ms")
	t.Setenv("PORT", "9090")
	t.Setenv("GCP_PROJECT_ID", "my-project")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Crossword.GridSize != 15 {
		t.Errorf("expected grid size 15, got %d", cfg.Crossword.GridSize)
	}
	if cfg.Crossword.SolveDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %s", cfg.Crossword.SolveDelay)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected legacy PORT honoured, got %d", cfg.Server.Port)
	}
	if cfg.Gemini.ProjectID != "my-project" || !cfg.Gemini.Enabled() {
		t.Errorf("expected legacy GCP_PROJECT_ID honoured, got %+v", cfg.Gemini)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json format, got %s", cfg.Log.Format)
	}
}

func TestLoadConfigCanonicalEnvWins(t *testing.T) {
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Fatalf("expected SERVER_PORT to win, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 3000
crossword:
  grid_size: 10
  max_words: 5
  stop_words: [the, lord]
gemini:
  api_key: secret
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 3000 || cfg.Crossword.GridSize != 10 || cfg.Crossword.MaxWords != 5 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !slices.Equal(cfg.Crossword.StopWords, []string{"the", "lord"}) {
		t.Errorf("unexpected stop words %v", cfg.Crossword.StopWords)
	}
	if !cfg.Gemini.Enabled() {
		t.Error("expected gemini enabled by api key")
	}

	opts := cfg.Crossword.SessionOptions()
	if opts.GridSize != 10 || opts.MaxWords != 5 || len(opts.StopWords) != 2 {
		t.Errorf("unexpected session options %+v", opts)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{
		Server:    ServerConfig{Port: 70000},
		Crossword: CrosswordConfig{GridSize: 1, MaxWords: 0, SolveDelay: -time.Second},
		Log:       LogConfig{Format: "xml"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"server.port", "speech_cache_size", "grid_size", "max_words", "solve_delay", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
