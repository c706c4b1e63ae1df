package enrich

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func samplePaths(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Path
	}
	return out
}

func TestSampler_RankingAndExclusion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# demo")
	writeFile(t, root, "go.mod", "module demo")
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "internal/server/server.go", "package server")
	writeFile(t, root, "docs/notes.md", "notes")
	writeFile(t, root, "node_modules/pkg/index.js", "junk")
	writeFile(t, root, ".git/config", "noise")
	writeFile(t, root, "image.png", "\x89PNG")
	writeFile(t, root, "go.sum", "checksums")

	s := NewSampler(30, 10000, []string{"node_modules", ".git"})
	samples, err := s.Sample(root)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	want := []string{
		"README.md",             // manifest rank 0
		"go.mod",                // manifest rank 1
		"main.go",               // source, depth 0
		"internal/server/server.go",
		"docs/notes.md",
	}
	if diff := cmp.Diff(want, samplePaths(samples)); diff != "" {
		t.Errorf("sample order mismatch (-want +got):\n%s", diff)
	}
}

func TestSampler_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.go", "package b")
	writeFile(t, root, "sub/c.go", "package c")

	s := NewSampler(30, 10000, nil)
	first, err := s.Sample(root)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	second, err := s.Sample(root)
	if err != nil {
		t.Fatalf("second Sample failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("sampling not deterministic (-first +second):\n%s", diff)
	}
}

func TestSampler_Caps(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.go", strings.Repeat("x", 500)+"\n"+strings.Repeat("y", 500))
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		writeFile(t, root, name+".go", "package "+name)
	}

	s := NewSampler(3, 100, nil)
	samples, err := s.Sample(root)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	for _, sm := range samples {
		if len(sm.Content) > 100 {
			t.Errorf("sample %s exceeds byte cap: %d bytes", sm.Path, len(sm.Content))
		}
	}
}

func TestSampler_GitignoreSkips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.gen.go\n/secret.go\n# comment\n\n!keep.gen.go\n")
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "secret.go", "package main")
	writeFile(t, root, "sub/secret.go", "package sub")
	writeFile(t, root, "types.gen.go", "package main")
	writeFile(t, root, "generated/out.go", "package gen")

	s := NewSampler(30, 10000, nil)
	samples, err := s.Sample(root)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	// Anchored /secret.go hides only the root file; nested copies survive.
	want := []string{"main.go", "sub/secret.go"}
	if diff := cmp.Diff(want, samplePaths(samples)); diff != "" {
		t.Errorf("gitignore handling mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *Result
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"name":"Demo","description":"A demo.","tags":["Go","CLI","Web","Extra"]}`,
			want: &Result{Name: "Demo", Description: "A demo.", Tags: []string{"go", "cli", "web"}},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"name\":\"Demo\",\"description\":\"A demo.\",\"tags\":[\"go\"]}\n```",
			want: &Result{Name: "Demo", Description: "A demo.", Tags: []string{"go"}},
		},
		{
			name: "fence without language hint",
			raw:  "```\n{\"name\":\"X\",\"description\":\"Y\",\"tags\":[]}\n```",
			want: &Result{Name: "X", Description: "Y", Tags: []string{}},
		},
		{
			name: "tags normalized and deduplicated",
			raw:  `{"name":"N","description":"D","tags":["Machine Learning","machinelearning","C++"]}`,
			want: &Result{Name: "N", Description: "D", Tags: []string{"machinelearning", "c"}},
		},
		{
			name:    "prose reply",
			raw:     "Sure! This project looks like a web app.",
			wantErr: true,
		},
		{
			name:    "empty object",
			raw:     `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseResponse(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResponse failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseResponse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// fakeCompleter returns a canned reply or error and records the prompt.
type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestEnrich_Success(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# payments service")
	writeFile(t, root, "main.go", "package main")

	fake := &fakeCompleter{reply: `{"name":"Payments","description":"Handles payments.","tags":["go","payments"]}`}
	e := New(NewSampler(30, 10000, nil), fake)

	got, err := e.Enrich(context.Background(), "payments", root, []string{"legacy"})
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	want := &Result{Name: "Payments", Description: "Handles payments.", Tags: []string{"go", "payments"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Enrich mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(fake.prompt, "README.md") {
		t.Error("prompt missing sampled file")
	}
}

func TestEnrich_LowConfidenceMergesExistingTags(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")

	fake := &fakeCompleter{reply: `{"name":"X","description":"Y","tags":["go"]}`}
	e := New(NewSampler(30, 10000, nil), fake)

	got, err := e.Enrich(context.Background(), "x", root, []string{"CLI", "go"})
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if !got.LowConfidence {
		t.Error("single-tag result should be low confidence")
	}
	if diff := cmp.Diff([]string{"go", "cli"}, got.Tags); diff != "" {
		t.Errorf("merged tags mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrich_FailureModes(t *testing.T) {
	withMain := func(t *testing.T) string {
		root := t.TempDir()
		writeFile(t, root, "main.go", "package main")
		return root
	}

	t.Run("request error", func(t *testing.T) {
		e := New(NewSampler(30, 10000, nil), &fakeCompleter{err: errors.New("boom")})
		_, err := e.Enrich(context.Background(), "x", withMain(t), nil)
		var ee *Error
		if !errors.As(err, &ee) || ee.Stage != "request" {
			t.Fatalf("error = %v, want request-stage *Error", err)
		}
	})

	t.Run("parse error", func(t *testing.T) {
		e := New(NewSampler(30, 10000, nil), &fakeCompleter{reply: "not json"})
		_, err := e.Enrich(context.Background(), "x", withMain(t), nil)
		var ee *Error
		if !errors.As(err, &ee) || ee.Stage != "parse" {
			t.Fatalf("error = %v, want parse-stage *Error", err)
		}
	})

	t.Run("empty tree", func(t *testing.T) {
		e := New(NewSampler(30, 10000, nil), &fakeCompleter{reply: "{}"})
		_, err := e.Enrich(context.Background(), "x", t.TempDir(), nil)
		var ee *Error
		if !errors.As(err, &ee) || ee.Stage != "sample" {
			t.Fatalf("error = %v, want sample-stage *Error", err)
		}
	})
}
