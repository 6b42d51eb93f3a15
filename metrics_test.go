package main

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// sumValues returns the int64 sum of a metric keyed by its status attribute,
// with "" for points without one.
func sumValues(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				out[status.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestRecordLayout(t *testing.T) {
	m, reader := newTestMetrics(t)
	l := NewBuilder(5, 8, seeded(1)).Build(candidates("MARRIAGE", "AMEN"))

	m.RecordLayout(context.Background(), l)
	m.RecordLayout(context.Background(), l)

	if got := sumValues(t, reader, "palavras.puzzles.generated")[""]; got != 2 {
		t.Errorf("expected 2 puzzles, got %d", got)
	}
	if got := sumValues(t, reader, "palavras.words.placed")[""]; got != 2 {
		t.Errorf("expected 2 placed words, got %d", got)
	}
	if got := sumValues(t, reader, "palavras.words.skipped")[""]; got != 2 {
		t.Errorf("expected 2 skipped words, got %d", got)
	}
}

func TestRecordSpeech(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordSpeech(context.Background(), "ok")
	m.RecordSpeech(context.Background(), "ok")
	m.RecordSpeech(context.Background(), "error")

	got := sumValues(t, reader, "palavras.speech.requests")
	if got["ok"] != 2 || got["error"] != 1 {
		t.Fatalf("expected ok=2 error=1, got %v", got)
	}
}

func TestServerRecordsGameMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	srv := NewServer(ServerDeps{Store: NewStore(SessionOptions{SolveDelay: time.Hour}), Metrics: m})
	game := seedGame(t, srv)

	w0 := game.Layout().Words[0]
	for k, p := range w0.Cells() {
		game.SetCell(p.Row, p.Col, string(w0.Word[k]))
	}

	if got := sumValues(t, reader, "palavras.sessions.active")[""]; got != 1 {
		t.Errorf("expected 1 active session, got %d", got)
	}
	if got := sumValues(t, reader, "palavras.words.completed")[""]; got != 1 {
		t.Errorf("expected 1 completed word, got %d", got)
	}

	doRequest(srv, "DELETE", "/api/games/"+game.ID, "")
	if got := sumValues(t, reader, "palavras.sessions.active")[""]; got != 0 {
		t.Errorf("expected 0 active sessions after delete, got %d", got)
	}
}
