package styles

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a Base16 palette. Base00-07 run from background to foreground,
// Base08-0F are the accent colors (red, orange, yellow, green, cyan, blue,
// magenta, brown).
type Theme struct {
	Name string

	Base00, Base01, Base02, Base03 lipgloss.Color
	Base04, Base05, Base06, Base07 lipgloss.Color
	Base08, Base09, Base0A, Base0B lipgloss.Color
	Base0C, Base0D, Base0E, Base0F lipgloss.Color
}

// DefaultSlug names the theme used when none is configured.
const DefaultSlug = "solarized-dark"

// DefaultTheme is the palette behind DefaultSlug.
var DefaultTheme = Themes[DefaultSlug]

var slugs = sortedSlugs()

func sortedSlugs() []string {
	keys := make([]string, 0, len(Themes))
	for k := range Themes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Lookup returns the theme for slug.
func Lookup(slug string) (Theme, bool) {
	t, ok := Themes[slug]
	return t, ok
}

// Names returns the theme slugs in sorted order.
func Names() []string {
	return slices.Clone(slugs)
}

// NextTheme returns the slug after slug in sorted order, wrapping around.
// An unknown slug starts over at the first theme.
func NextTheme(slug string) string {
	i := slices.Index(slugs, slug)
	return slugs[(i+1)%len(slugs)]
}
