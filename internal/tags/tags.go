// Package tags defines the canonical tag form and deterministic defaults.
//
// Tag names are single lowercase alphanumeric tokens. Everything else is a
// rendering concern: colors and icons live in the tags table and default
// deterministically so the same tag renders the same everywhere without
// manual seeding.
package tags

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultIcon is assigned to auto-created tags.
const DefaultIcon = "🏷️"

// Tag is a catalog entry: a normalized name plus display attributes.
type Tag struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Normalize reduces any tag string to its canonical form: lowercase with
// every non-alphanumeric character stripped. Multi-word and namespaced
// inputs ("machine learning", "category:value") collapse into one token;
// inputs with no alphanumeric content normalize to "".
//
// Normalize is idempotent.
func Normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeAll normalizes every name, drops empties and duplicates, and
// preserves first-seen order.
func NormalizeAll(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		n := Normalize(name)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// palette holds the hex colors auto-created tags draw from.
var palette = []string{
	"#3b82f6", // blue
	"#10b981", // green
	"#f59e0b", // amber
	"#ef4444", // red
	"#8b5cf6", // purple
	"#ec4899", // pink
	"#14b8a6", // teal
	"#f97316", // orange
	"#6366f1", // indigo
	"#84cc16", // lime
}

// ColorFor returns the default display color for a tag name, computed from a
// hash of the normalized name so the mapping is stable across machines.
func ColorFor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(Normalize(name)))
	return palette[h.Sum32()%uint32(len(palette))]
}

// Starter is the fixed set of tags pre-seeded into new stores.
func Starter() []Tag {
	return []Tag{
		{Name: "python", Color: "#3776ab", Icon: "🐍"},
		{Name: "javascript", Color: "#f7df1e", Icon: "⚡"},
		{Name: "typescript", Color: "#3178c6", Icon: "📘"},
		{Name: "web", Color: "#e34c26", Icon: "🌐"},
		{Name: "api", Color: "#009688", Icon: "🔌"},
		{Name: "frontend", Color: "#61dafb", Icon: "🎨"},
		{Name: "backend", Color: "#43853d", Icon: "⚙️"},
		{Name: "mobile", Color: "#3ddc84", Icon: "📱"},
		{Name: "cli", Color: "#4d4d4d", Icon: "⌨️"},
		{Name: "library", Color: "#563d7c", Icon: "📚"},
	}
}
