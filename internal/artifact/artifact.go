// Package artifact mirrors the live registry into an external editor's
// project list file.
//
// The artifact is derived state with no reverse flow: it is rebuilt in full
// from the registry after every mutation, so drift cannot accumulate and a
// corrupted or hand-edited file heals on the next rebuild. Writes are
// atomic via temp file plus rename.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pl018/project-manager-cli/internal/store"
)

// Entry is one row of the external project list. Paths is always present
// and empty; the consuming editor requires the key.
type Entry struct {
	Name     string   `json:"name"`
	RootPath string   `json:"rootPath"`
	Paths    []string `json:"paths"`
}

// WriteError reports a failed artifact write. The registry mutation that
// triggered the rebuild has already committed; only the mirror is stale.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write artifact %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer rebuilds the artifact file at a fixed path.
type Writer struct {
	path string
}

// NewWriter returns a writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the artifact file location.
func (w *Writer) Path() string {
	return w.path
}

// Regenerate rebuilds the artifact from the given live projects. Output is
// deterministic: entries sorted by name then root path, pretty-printed with
// two-space indentation. Rebuilding from unchanged state is byte-identical.
func (w *Writer) Regenerate(projects []*store.Project) error {
	entries := make([]Entry, 0, len(projects))
	for _, p := range projects {
		if !p.Enabled {
			continue
		}
		// The stored name is the one the editor shows; the AI-generated
		// name stays display-only metadata in the registry.
		entries = append(entries, Entry{
			Name:     p.Name,
			RootPath: p.RootPath,
			Paths:    []string{},
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].RootPath < entries[j].RootPath
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &WriteError{Path: w.path, Err: err}
	}
	data = append(data, '\n')

	if err := writeAtomic(w.path, data); err != nil {
		return &WriteError{Path: w.path, Err: err}
	}
	return nil
}

// writeAtomic writes data to path through a temp file in the same directory
// so the rename cannot cross filesystems. Readers never observe a partial
// file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
