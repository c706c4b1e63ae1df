package tags

import (
	"strings"
	"testing"
	"unicode"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Python", "python"},
		{"machine learning", "machinelearning"},
		{"category:value", "categoryvalue"},
		{"C++", "c"},
		{"web-dev", "webdev"},
		{"  CLI  ", "cli"},
		{"!!!", ""},
		{"", ""},
		{"Rust2024", "rust2024"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Python", "machine learning", "cat:val", "x_y-z", "Déjà Vu"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize_OutputAlphabet(t *testing.T) {
	for _, in := range []string{"Hello World!", "a:b:c", "UPPER_case-123", "🐍 python"} {
		out := Normalize(in)
		for _, r := range out {
			if unicode.IsUpper(r) || unicode.IsSpace(r) || unicode.IsPunct(r) {
				t.Errorf("Normalize(%q) = %q contains forbidden rune %q", in, out, r)
			}
		}
		if strings.ContainsAny(out, " \t:") {
			t.Errorf("Normalize(%q) = %q not a single token", in, out)
		}
	}
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{"Go", "go", "WEB", "", "!!!", "Web", "cli"})
	want := []string{"go", "web", "cli"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeAll mismatch (-want +got):\n%s", diff)
	}
}

func TestColorFor_Deterministic(t *testing.T) {
	a := ColorFor("backend")
	b := ColorFor("backend")
	if a != b {
		t.Errorf("ColorFor not deterministic: %q != %q", a, b)
	}
	// Normalization happens before hashing, so spellings agree.
	if ColorFor("Back-End") != ColorFor("backend") {
		t.Error("ColorFor should normalize before hashing")
	}
	if !strings.HasPrefix(a, "#") || len(a) != 7 {
		t.Errorf("ColorFor returned malformed color %q", a)
	}
}

func TestStarter(t *testing.T) {
	seen := make(map[string]bool)
	for _, tag := range Starter() {
		if Normalize(tag.Name) != tag.Name {
			t.Errorf("starter tag %q not in canonical form", tag.Name)
		}
		if seen[tag.Name] {
			t.Errorf("duplicate starter tag %q", tag.Name)
		}
		seen[tag.Name] = true
		if tag.Color == "" || tag.Icon == "" {
			t.Errorf("starter tag %q missing color or icon", tag.Name)
		}
	}
}
