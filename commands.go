package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

// newRootCmd builds the palavras command tree.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "palavras",
		Short:         "Crossword drill for English phrase decks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	loadConfig := func() (*Config, *logrus.Logger, error) {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		logger, err := NewLogger(cfg.Log)
		if err != nil {
			return nil, nil, err
		}
		return cfg, logger, nil
	}

	root.AddCommand(newServeCmd(loadConfig), newGenerateCmd(loadConfig), newDeckCmd(loadConfig))
	return root
}

type configLoader func() (*Config, *logrus.Logger, error)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mp, err := InitMeterProvider()
			if err != nil {
				return err
			}
			defer mp.Shutdown(context.Background())
			metrics, err := NewMetrics(otel.GetMeterProvider())
			if err != nil {
				return fmt.Errorf("create metrics: %w", err)
			}

			deps := ServerDeps{
				Store:   NewStore(cfg.Crossword.SessionOptions()),
				Metrics: metrics,
				Logger:  logger,
			}
			if cfg.Gemini.Enabled() {
				gemini, err := NewGeminiClient(ctx, cfg.Gemini)
				if err != nil {
					return err
				}
				deps.Phrases = gemini
				deps.Speech = NewSpeechCache(gemini, cfg.Gemini.Voice, cfg.Gemini.SpeechCacheSize)
				logger.WithField("model", gemini.modelName).Info("gemini client ready")
			} else {
				logger.Warn("gemini.project_id and gemini.api_key unset, phrase generation and speech disabled")
			}

			return NewServer(deps).Run(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
		},
	}
}

func newGenerateCmd(load configLoader) *cobra.Command {
	var (
		deckPath string
		seed     uint64
		size     int
		maxWords int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a crossword built from a YAML deck",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			deck, err := LoadDeckFile(deckPath)
			if err != nil {
				return err
			}

			opts := cfg.Crossword.SessionOptions()
			if size > 0 {
				opts.GridSize = size
			}
			if maxWords > 0 {
				opts.MaxWords = maxWords
			}
			var rnd *rand.Rand
			if seed != 0 {
				rnd = rand.New(rand.NewPCG(seed, seed))
			}

			cands := NewExtractor(opts.StopWords).Extract(deck.Phrases)
			layout := NewBuilder(opts.GridSize, opts.MaxWords, rnd).Build(cands)
			logger.WithFields(logrus.Fields{
				"candidates": len(cands),
				"placed":     len(layout.Words),
				"skipped":    len(layout.Skipped),
			}).Debug("layout built")

			return printLayout(cmd.OutOrStdout(), layout)
		},
	}
	cmd.Flags().StringVar(&deckPath, "deck", "", "YAML deck file")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().IntVar(&size, "size", 0, "grid size (default from config)")
	cmd.Flags().IntVar(&maxWords, "max-words", 0, "maximum words placed (default from config)")
	cmd.MarkFlagRequired("deck")
	return cmd
}

// printLayout writes the solution grid and the numbered word list.
func printLayout(w io.Writer, l *Layout) error {
	if len(l.Words) == 0 {
		_, err := fmt.Fprintln(w, "no words could be placed")
		return err
	}

	var b strings.Builder
	b.WriteString(l.Grid.String())
	b.WriteString("\n\n")
	for _, pw := range l.Words {
		fmt.Fprintf(&b, "%2d %-6s (%d,%d) %s: %s\n",
			pw.Number, pw.Direction, pw.Row, pw.Col, pw.Word, pw.Phrase.Portuguese)
	}
	if len(l.Skipped) > 0 {
		fmt.Fprintf(&b, "\nskipped: %s\n", strings.Join(l.Skipped, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func newDeckCmd(load configLoader) *cobra.Command {
	var (
		topic      string
		level      string
		sourcePath string
	)
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Generate a phrase deck with Gemini and print it as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			if !cfg.Gemini.Enabled() {
				return fmt.Errorf("gemini.project_id or gemini.api_key is required")
			}
			if !Difficulty(level).IsValid() {
				return fmt.Errorf("level %q is invalid; valid values: Beginner, Intermediate, Advanced", level)
			}

			req := PhraseRequest{Topic: topic, Level: level}
			if sourcePath != "" {
				src, err := os.ReadFile(sourcePath)
				if err != nil {
					return fmt.Errorf("read source text: %w", err)
				}
				req.SourceText = string(src)
			}

			gemini, err := NewGeminiClient(cmd.Context(), cfg.Gemini)
			if err != nil {
				return err
			}

			phrases, err := gemini.GeneratePhrases(cmd.Context(), req)
			if err != nil {
				return err
			}
			return WriteDeck(cmd.OutOrStdout(), &Deck{Topic: topic, Phrases: phrases})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "event the phrases are for")
	cmd.Flags().StringVar(&level, "level", string(DifficultyIntermediate), "learner level")
	cmd.Flags().StringVar(&sourcePath, "source", "", "bilingual text file to split into phrases")
	cmd.MarkFlagRequired("topic")
	return cmd
}
