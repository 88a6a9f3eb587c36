package persona

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writePreset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "gentle.yaml", "name: gentle\ntone: soft and slow\nguidance: No pressure.\n")
	writePreset(t, dir, "direct.yml", "name: direct\ntone: short and practical\n")
	writePreset(t, dir, "notes.txt", "not a preset")

	presets, err := LoadFromDirectory(dir, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(presets))
	}
}

func TestLoadFromDirectory_SkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "bad.yaml", "tone: [unclosed\n")
	writePreset(t, dir, "good.yaml", "name: good\ntone: fine\n")

	presets, err := LoadFromDirectory(dir, testLogger())
	if err != nil {
		t.Fatalf("a malformed file must not fail the load: %v", err)
	}
	if len(presets) != 1 || presets[0].Name != "good" {
		t.Fatalf("expected only the good preset, got %+v", presets)
	}
}

func TestLoadFromDirectory_NameFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "calm.yaml", "tone: very calm\n")

	presets, err := LoadFromDirectory(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(presets) != 1 || presets[0].Name != "calm" {
		t.Fatalf("expected preset named after file, got %+v", presets)
	}
}

func TestLoadFromDirectory_MissingDir(t *testing.T) {
	presets, err := LoadFromDirectory(filepath.Join(t.TempDir(), "absent"), testLogger())
	if err != nil {
		t.Fatalf("missing directory must not be an error: %v", err)
	}
	if presets != nil {
		t.Fatalf("expected nil presets, got %+v", presets)
	}
}

func TestSelect(t *testing.T) {
	presets := []Preset{
		{Name: "direct", Tone: "short and practical"},
	}

	got := Select(presets, "direct")
	if got.Tone != "short and practical" {
		t.Errorf("expected matched tone, got %q", got.Tone)
	}
	// Empty fields are backfilled from the default.
	if got.Guidance != Default().Guidance {
		t.Errorf("expected default guidance backfill, got %q", got.Guidance)
	}
	if got.Example != Default().Example {
		t.Errorf("expected default example backfill, got %q", got.Example)
	}
}

func TestSelect_UnknownFallsBackToDefault(t *testing.T) {
	got := Select(nil, "nope")
	if got.Name != "default" {
		t.Fatalf("expected default preset, got %+v", got)
	}
}
