package persona

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	l := NewLoader(t.TempDir(), "", quietLogger())
	if got := l.Load(); got != "" {
		t.Errorf("Load = %q, want empty for missing file", got)
	}
}

func TestLoad_RendersMarkdownToPlainText(t *testing.T) {
	dir := t.TempDir()
	md := "# Bob\n\nYou are **Bob**, a retired adventurer.\n\n- keep replies short\n- stay in character\n"
	if err := os.WriteFile(filepath.Join(dir, "personality.md"), []byte(md), 0o644); err != nil {
		t.Fatal(err)
	}

	got := NewLoader(dir, "", quietLogger()).Load()
	if strings.Contains(got, "#") || strings.Contains(got, "**") || strings.Contains(got, "<") {
		t.Errorf("markdown leaked through: %q", got)
	}
	for _, want := range []string{"Bob", "retired adventurer", "keep replies short", "stay in character"} {
		if !strings.Contains(got, want) {
			t.Errorf("Load missing %q in %q", want, got)
		}
	}
}

func TestLoad_ExplicitPathWins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "personality.md"), []byte("data dir persona"), 0o644); err != nil {
		t.Fatal(err)
	}
	explicit := filepath.Join(t.TempDir(), "custom.md")
	if err := os.WriteFile(explicit, []byte("explicit persona"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := NewLoader(dir, explicit, quietLogger()).Load()
	if !strings.Contains(got, "explicit persona") {
		t.Errorf("Load = %q, want explicit file content", got)
	}
}

func TestLoad_IsCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personality.md")
	if err := os.WriteFile(path, []byte("first version"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir, "", quietLogger())
	if got := l.Load(); !strings.Contains(got, "first version") {
		t.Fatalf("Load = %q", got)
	}

	// Editing the file behind the loader's back does not bust the cache.
	if err := os.WriteFile(path, []byte("second version"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := l.Load(); !strings.Contains(got, "first version") {
		t.Errorf("Load = %q, want cached first version", got)
	}
}

func TestSaveInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(dir, "", quietLogger())
	if got := l.Load(); got != "" {
		t.Fatalf("Load = %q", got)
	}

	if err := l.Save("You are Bob, freshly updated."); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := l.Load(); !strings.Contains(got, "freshly updated") {
		t.Errorf("Load after Save = %q", got)
	}

	raw, err := l.Raw()
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if raw != "You are Bob, freshly updated." {
		t.Errorf("Raw = %q", raw)
	}
}

func TestRaw_MissingFile(t *testing.T) {
	l := NewLoader(t.TempDir(), "", quietLogger())
	if _, err := l.Raw(); err == nil {
		t.Error("expected error for missing file")
	}
}
