package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/bodul/palavras"

// Metrics holds the OpenTelemetry instruments of the service. Tests build
// their own with a manual reader.
type Metrics struct {
	PuzzlesGenerated metric.Int64Counter
	WordsPlaced      metric.Int64Counter
	WordsSkipped     metric.Int64Counter
	WordsCompleted   metric.Int64Counter
	PuzzlesSolved    metric.Int64Counter
	StagesFinished   metric.Int64Counter

	// SpeechRequests is recorded with attribute.String("status", ...).
	SpeechRequests metric.Int64Counter

	PhraseGenerationDuration metric.Float64Histogram

	ActiveSessions metric.Int64UpDownCounter
}

var generationBuckets = []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.PuzzlesGenerated, "palavras.puzzles.generated", "Crossword layouts built."},
		{&met.WordsPlaced, "palavras.words.placed", "Candidate words placed in a grid."},
		{&met.WordsSkipped, "palavras.words.skipped", "Candidate words that did not fit."},
		{&met.WordsCompleted, "palavras.words.completed", "Crossword words filled in correctly."},
		{&met.PuzzlesSolved, "palavras.puzzles.solved", "Crosswords fully solved."},
		{&met.StagesFinished, "palavras.stages.finished", "Fill-in stages completed."},
		{&met.SpeechRequests, "palavras.speech.requests", "Speech synthesis requests by status."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}

	if met.PhraseGenerationDuration, err = m.Float64Histogram("palavras.phrases.generation.duration",
		metric.WithDescription("Latency of phrase generation calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(generationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create generation histogram: %w", err)
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("palavras.sessions.active",
		metric.WithDescription("Crossword sessions currently held in memory."),
	); err != nil {
		return nil, fmt.Errorf("create sessions gauge: %w", err)
	}

	return met, nil
}

// RecordLayout counts the words placed and skipped by one puzzle build.
func (m *Metrics) RecordLayout(ctx context.Context, l *Layout) {
	m.PuzzlesGenerated.Add(ctx, 1)
	m.WordsPlaced.Add(ctx, int64(len(l.Words)))
	m.WordsSkipped.Add(ctx, int64(len(l.Skipped)))
}

// RecordSpeech counts one speech request with its outcome.
func (m *Metrics) RecordSpeech(ctx context.Context, status string) {
	m.SpeechRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// InitMeterProvider installs a global meter provider backed by the
// Prometheus exporter, so the default registry serves /metrics.
func InitMeterProvider() (*sdkmetric.MeterProvider, error) {
	exp, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)
	return mp, nil
}
