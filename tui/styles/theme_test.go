package styles

import (
	"slices"
	"testing"
)

func TestLookup(t *testing.T) {
	theme, ok := Lookup("solarized-dark")
	if !ok {
		t.Fatal("Lookup('solarized-dark') not found")
	}
	if theme.Name != "Solarized Dark" {
		t.Errorf("expected name 'Solarized Dark', got %q", theme.Name)
	}
	if _, ok := Lookup("nonexistent"); ok {
		t.Error("expected nonexistent theme to be missing")
	}
}

func TestDefaultTheme(t *testing.T) {
	if DefaultTheme.Name == "" {
		t.Fatalf("default theme %q is not defined", DefaultSlug)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if len(names) != len(Themes) {
		t.Fatalf("expected %d themes, got %d", len(Themes), len(names))
	}
	if !slices.IsSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
	names[0] = "mutated"
	if Names()[0] == "mutated" {
		t.Error("Names must return a copy")
	}
}

func TestThemesComplete(t *testing.T) {
	for slug, th := range Themes {
		if th.Name == "" || th.Base00 == "" || th.Base0F == "" {
			t.Errorf("theme %q is incomplete", slug)
		}
	}
}

func TestNextTheme(t *testing.T) {
	names := Names()
	if got := NextTheme(names[0]); got != names[1] {
		t.Errorf("NextTheme(%q) = %q, want %q", names[0], got, names[1])
	}
	if got := NextTheme(names[len(names)-1]); got != names[0] {
		t.Errorf("NextTheme should wrap, got %q", got)
	}
	if got := NextTheme("nonexistent"); got != names[0] {
		t.Errorf("unknown slug should start over, got %q", got)
	}
}
