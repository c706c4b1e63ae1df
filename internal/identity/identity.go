// Package identity resolves the durable identity of a project directory.
//
// Identity lives in a sentinel file at the directory root holding exactly one
// canonical UUIDv4 string. The sentinel, not the database, is the ultimate
// source of a project's identity; database rows are caches keyed by it.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PersistError reports that a freshly minted UUID could not be written to the
// sentinel file. The UUID itself is still usable for the current operation;
// a later run against the same directory will mint a different one.
type PersistError struct {
	Dir  string
	UUID string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist identity for %s: %v", e.Dir, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Resolver reads and mints sentinel identity files.
type Resolver struct {
	// SentinelName is the file name created at the directory root.
	SentinelName string
}

// NewResolver returns a Resolver using the given sentinel file name.
func NewResolver(sentinelName string) *Resolver {
	return &Resolver{SentinelName: sentinelName}
}

// Resolve returns the directory's UUID, minting and persisting a new one if
// no valid sentinel exists.
//
// An existing sentinel containing a syntactically valid UUID is returned
// unchanged; parent and child directories are never consulted. On persist
// failure the minted UUID is returned together with a *PersistError so
// callers can degrade to an in-memory identity.
//
// Two processes racing to create the sentinel for a brand-new directory is an
// accepted, non-corrupting race: the last rename wins.
func (r *Resolver) Resolve(dir string) (string, error) {
	path := filepath.Join(dir, r.SentinelName)

	if id, ok := readSentinel(path); ok {
		return id, nil
	}

	id := uuid.NewString()
	if err := writeSentinel(path, id); err != nil {
		return id, &PersistError{Dir: dir, UUID: id, Err: err}
	}
	return id, nil
}

// Peek returns the existing sentinel UUID without minting one.
// The second return value reports whether a valid sentinel was found.
func (r *Resolver) Peek(dir string) (string, bool) {
	return readSentinel(filepath.Join(dir, r.SentinelName))
}

// readSentinel returns the UUID stored at path if the file exists and holds a
// canonical UUID on its own line.
func readSentinel(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	raw := strings.TrimSpace(string(data))
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	// Reject non-canonical spellings (urn:, braces, no hyphens) so every
	// consumer sees the same 36-character form.
	canonical := parsed.String()
	if raw != canonical {
		return "", false
	}
	return canonical, true
}

// writeSentinel atomically creates or replaces the sentinel file: write to a
// temp file in the same directory, then rename over the final path.
func writeSentinel(path, id string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".projectid-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp sentinel: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(id + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp sentinel: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp sentinel: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename sentinel into place: %w", err)
	}
	return nil
}
