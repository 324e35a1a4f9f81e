package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMultiHandlerRespectsLevels(t *testing.T) {
	var info, errs bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	log := slog.New(h).With("component", "sweeper")

	log.Info("archived cases", "total", 3)
	log.Error("sweep failed")

	if n := strings.Count(info.String(), "\n"); n != 2 {
		t.Errorf("info handler got %d lines, want 2", n)
	}
	if n := strings.Count(errs.String(), "\n"); n != 1 {
		t.Errorf("error handler got %d lines, want 1", n)
	}
	if !strings.Contains(errs.String(), `"component":"sweeper"`) {
		t.Errorf("attrs not propagated: %s", errs.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled")
	}
}

func TestLokiPayload(t *testing.T) {
	body, err := lokiPayload(map[string]string{"service": "dentlab"}, [][2]string{{"1", `{"msg":"a \"quoted\" line"}`}})
	if err != nil {
		t.Fatal(err)
	}
	var got lokiPush
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Streams[0].Stream["service"] != "dentlab" || got.Streams[0].Values[0][1] != `{"msg":"a \"quoted\" line"}` {
		t.Errorf("payload = %s", body)
	}
}
