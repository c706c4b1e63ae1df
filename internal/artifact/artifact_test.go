package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pl018/project-manager-cli/internal/store"
)

func project(name, root string, enabled bool) *store.Project {
	return &store.Project{UUID: name + "-id", Name: name, RootPath: root, Enabled: enabled}
}

func TestRegenerate_LiveProjectsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	w := NewWriter(path)

	err := w.Regenerate([]*store.Project{
		project("beta", "/p/beta", true),
		project("alpha", "/p/alpha", true),
		project("gone", "/p/gone", false),
	})
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}

	want := []Entry{
		{Name: "alpha", RootPath: "/p/alpha", Paths: []string{}},
		{Name: "beta", RootPath: "/p/beta", Paths: []string{}},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}

	// The paths key must be a JSON array, not null.
	if bytes.Contains(data, []byte(`"paths": null`)) {
		t.Error("paths serialized as null")
	}
}

func TestRegenerate_KeepsStoredName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	w := NewWriter(path)

	// An AI-generated name never replaces the stored name in the artifact.
	p := project("billing", "/p/x", true)
	p.AIName = "Billing Service"
	if err := w.Regenerate([]*store.Project{p}); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entries[0].Name != "billing" {
		t.Errorf("name = %q, want stored name %q", entries[0].Name, "billing")
	}
}

func TestRegenerate_Deterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	w := NewWriter(path)
	projects := []*store.Project{
		project("b", "/p/b", true),
		project("a", "/p/a", true),
	}

	if err := w.Regenerate(projects); err != nil {
		t.Fatalf("first Regenerate failed: %v", err)
	}
	first, _ := os.ReadFile(path)

	// Same input in a different order must produce identical bytes.
	if err := w.Regenerate([]*store.Project{projects[1], projects[0]}); err != nil {
		t.Fatalf("second Regenerate failed: %v", err)
	}
	second, _ := os.ReadFile(path)

	if !bytes.Equal(first, second) {
		t.Errorf("artifact not deterministic:\n%s\nvs\n%s", first, second)
	}
}

func TestRegenerate_EmptyRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	w := NewWriter(path)

	if err := w.Regenerate(nil); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if got := string(bytes.TrimSpace(data)); got != "[]" {
		t.Errorf("empty artifact = %q, want []", got)
	}
}

func TestRegenerate_HealsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	if err := os.WriteFile(path, []byte("{{{ not json"), 0644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	w := NewWriter(path)
	if err := w.Regenerate([]*store.Project{project("a", "/p/a", true)}); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("artifact still corrupt: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestRegenerate_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "projects.json")
	w := NewWriter(path)
	if err := w.Regenerate(nil); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestRegenerate_WriteError(t *testing.T) {
	dir := t.TempDir()
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })
	if os.Getuid() == 0 {
		t.Skip("running as root, permissions not enforced")
	}

	w := NewWriter(filepath.Join(dir, "projects.json"))
	err := w.Regenerate(nil)
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("error = %v, want *WriteError", err)
	}
}

func TestRegenerate_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "projects.json"))
	if err := w.Regenerate([]*store.Project{project("a", "/p/a", true)}); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "projects.json" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}
