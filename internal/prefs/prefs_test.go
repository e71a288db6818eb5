package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := s.Get(ThemeKey); ok {
		t.Error("expected no theme in a fresh store")
	}
}

func TestSetPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.yaml")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Set(ThemeKey, ThemeDark); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if v, _ := again.Get(ThemeKey); v != ThemeDark {
		t.Errorf("expected dark, got %q", v)
	}
}

func TestOpen_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	if err := os.WriteFile(path, []byte("ai-chat-theme: [dark\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestTheme_Fallback(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "prefs.yaml"))

	if got := s.Theme(nil); got != ThemeLight {
		t.Errorf("expected light without a preference, got %q", got)
	}
	if got := s.Theme(func() bool { return true }); got != ThemeDark {
		t.Errorf("expected dark from system preference, got %q", got)
	}
}

func TestTheme_IgnoresUnknownValue(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	s.Set(ThemeKey, "sepia")

	if got := s.Theme(func() bool { return true }); got != ThemeDark {
		t.Errorf("expected fallback to dark, got %q", got)
	}
}

func TestToggleTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, _ := Open(path)
	dark := func() bool { return true }

	got, err := s.ToggleTheme(dark)
	if err != nil {
		t.Fatalf("ToggleTheme failed: %v", err)
	}
	if got != ThemeLight {
		t.Errorf("expected light after toggling from dark, got %q", got)
	}

	got, _ = s.ToggleTheme(dark)
	if got != ThemeDark {
		t.Errorf("expected dark after second toggle, got %q", got)
	}

	reopened, _ := Open(path)
	if v, _ := reopened.Get(ThemeKey); v != ThemeDark {
		t.Errorf("expected persisted dark, got %q", v)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	got := expandHome("~/test/path")
	want := filepath.Join(home, "test/path")
	if got != want {
		t.Errorf("expandHome(~/test/path) = %q, want %q", got, want)
	}

	got = expandHome("/absolute/path")
	if got != "/absolute/path" {
		t.Errorf("expandHome(/absolute/path) = %q", got)
	}
}
