package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.log")
	logger, closer := New(Options{Prefix: "[test] ", File: path, MaxSizeMB: 1})

	logger.Printf("refresh batch done: %d ok", 3)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(payload), "[test] ") || !strings.Contains(string(payload), "refresh batch done: 3 ok") {
		t.Fatalf("unexpected log contents: %q", payload)
	}
}

func TestNewWithoutFile(t *testing.T) {
	logger, closer := New(Options{Prefix: "[test] "})
	if logger == nil {
		t.Fatalf("expected logger")
	}
	if logger.Prefix() != "[test] " {
		t.Fatalf("prefix = %q", logger.Prefix())
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("nop close returned %v", err)
	}
}
