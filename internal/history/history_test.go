package history

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadMissingFileReturnsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := Load(path, testLogger())
	if got := store.Get("42"); got != "" {
		t.Fatalf("expected empty log for new key, got %q", got)
	}
}

func TestLoadCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	store := Load(path, testLogger())
	if got := store.Get("42"); got != "" {
		t.Fatalf("expected empty store after corrupt load, got %q", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := Load(path, testLogger())
	store.Append("42", "Seagata: hello\nHina: hi Sensei\n", 6144)
	store.Append("-100", "Someone: été — ok\nHina: noted\n", 6144)
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := Load(path, testLogger())
	if reloaded.Get("42") != store.Get("42") {
		t.Fatalf("round trip lost key 42: %q vs %q", reloaded.Get("42"), store.Get("42"))
	}
	if reloaded.Get("-100") != store.Get("-100") {
		t.Fatalf("round trip lost key -100: %q vs %q", reloaded.Get("-100"), store.Get("-100"))
	}
}

func TestAppendEvictsOldestLines(t *testing.T) {
	store := Load(filepath.Join(t.TempDir(), "history.json"), testLogger())
	store.Append("1", "first line\n", 0)
	store.Append("1", "second line\n", 0)

	// Cap chosen so exactly the first line must go.
	maxChars := len("second line\nthird line that is a bit longer\n")
	store.Append("1", "third line that is a bit longer\n", maxChars)

	got := store.Get("1")
	if len(got) > maxChars {
		t.Fatalf("log length %d exceeds maxChars %d", len(got), maxChars)
	}
	if strings.Contains(got, "first line") {
		t.Fatalf("oldest line should be evicted, got %q", got)
	}
	if !strings.Contains(got, "second line") || !strings.Contains(got, "third line") {
		t.Fatalf("newer lines must survive, got %q", got)
	}
}

func TestAppendOverflowRemovesMinimumLines(t *testing.T) {
	store := Load(filepath.Join(t.TempDir(), "history.json"), testLogger())
	for i := 0; i < 6; i++ {
		store.Append("g", "short\n", 0)
	}
	overflow := strings.Repeat("x", 50) + "\n"
	maxChars := len("short\n")*4 + len(overflow)
	store.Append("g", overflow, maxChars)

	got := store.Get("g")
	if len(got) > maxChars {
		t.Fatalf("log length %d exceeds maxChars %d", len(got), maxChars)
	}
	if count := strings.Count(got, "short\n"); count != 4 {
		t.Fatalf("expected exactly 4 short lines to survive, got %d in %q", count, got)
	}
}

func TestAppendKeepsOversizeSingleLine(t *testing.T) {
	store := Load(filepath.Join(t.TempDir(), "history.json"), testLogger())
	line := strings.Repeat("a", 100)
	store.Append("solo", line, 10)
	if got := store.Get("solo"); got != line {
		t.Fatalf("single oversize line must not be truncated mid-line, got %d chars", len(got))
	}
}

func TestSaveIsAtomicReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	store := Load(path, testLogger())
	store.Append("42", "Seagata: hi\nHina: hello\n", 6144)
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "history.json" {
		t.Fatalf("expected only history.json left behind, got %v", entries)
	}
}
