package server

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRunLogHandler(t *testing.T) {
	var out bytes.Buffer
	h := NewRunLogHandler(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := slog.New(h).With("run_id", "r1")

	logger.Info("Node finished", "node", "generalSearch", "duration", 2*time.Second)
	logger.WithGroup("fetch").Warn("Failed", "error", errors.New("404"))

	entries := h.Entries()
	if len(entries) != 2 {
		t.Fatalf("captured %d entries, want 2", len(entries))
	}
	first := entries[0]
	if first.Level != "INFO" || first.Message != "Node finished" {
		t.Errorf("first entry = %+v", first)
	}
	if first.Metadata["run_id"] != "r1" || first.Metadata["node"] != "generalSearch" || first.Metadata["duration"] != "2s" {
		t.Errorf("first metadata = %v", first.Metadata)
	}
	if entries[1].Metadata["fetch.error"] != "404" {
		t.Errorf("second metadata = %v", entries[1].Metadata)
	}

	// only the warning passes the wrapped handler's level
	if strings.Contains(out.String(), "Node finished") || !strings.Contains(out.String(), "Failed") {
		t.Errorf("wrapped handler output = %q", out.String())
	}
}
