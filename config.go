package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Crossword CrosswordConfig `mapstructure:"crossword"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// GeminiConfig selects the phrase generation and speech backend.
type GeminiConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Region    string `mapstructure:"region"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	TTSModel  string `mapstructure:"tts_model"`
	Voice     string `mapstructure:"voice"`

	// SpeechCacheSize caps the number of synthesized clips kept in memory.
	SpeechCacheSize int `mapstructure:"speech_cache_size"`
}

// Enabled reports whether enough credentials are set to call Gemini.
func (g GeminiConfig) Enabled() bool {
	return g.ProjectID != "" || g.APIKey != ""
}

// CrosswordConfig tunes puzzle generation.
type CrosswordConfig struct {
	GridSize   int           `mapstructure:"grid_size"`
	MaxWords   int           `mapstructure:"max_words"`
	SolveDelay time.Duration `mapstructure:"solve_delay"`
	StopWords  []string      `mapstructure:"stop_words"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv maps the environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"server.port":       "PORT",
	"gemini.project_id": "GCP_PROJECT_ID",
	"gemini.region":     "GCP_REGION",
	"gemini.api_key":    "GEMINI_API_KEY",
}

// LoadConfig reads defaults, an optional YAML file and the environment.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("gemini.project_id", "")
	v.SetDefault("gemini.region", defaultRegion)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", defaultModel)
	v.SetDefault("gemini.tts_model", defaultTTSModel)
	v.SetDefault("gemini.voice", defaultVoice)
	v.SetDefault("gemini.speech_cache_size", DefaultSpeechCacheSize)

	v.SetDefault("crossword.grid_size", DefaultGridSize)
	v.SetDefault("crossword.max_words", DefaultMaxWords)
	v.SetDefault("crossword.solve_delay", DefaultSolveDelay)
	v.SetDefault("crossword.stop_words", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Gemini.SpeechCacheSize < 1 {
		errs = append(errs, fmt.Errorf("gemini.speech_cache_size must be positive, got %d", c.Gemini.SpeechCacheSize))
	}
	if c.Crossword.GridSize < 2 {
		errs = append(errs, fmt.Errorf("crossword.grid_size must be at least 2, got %d", c.Crossword.GridSize))
	}
	if c.Crossword.MaxWords < 1 {
		errs = append(errs, fmt.Errorf("crossword.max_words must be positive, got %d", c.Crossword.MaxWords))
	}
	if c.Crossword.SolveDelay < 0 {
		errs = append(errs, fmt.Errorf("crossword.solve_delay must not be negative"))
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", f))
	}
	return errors.Join(errs...)
}

// SessionOptions converts the crossword section for the store.
func (c CrosswordConfig) SessionOptions() SessionOptions {
	return SessionOptions{
		GridSize:   c.GridSize,
		MaxWords:   c.MaxWords,
		SolveDelay: c.SolveDelay,
		StopWords:  c.StopWords,
	}
}
