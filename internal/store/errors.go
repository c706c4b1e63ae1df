package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no project row exists for a UUID.
var ErrNotFound = errors.New("project not found")

// ErrBusy reports transient lock contention on the shared database file.
// Callers should retry with bounded backoff before surfacing it.
var ErrBusy = errors.New("database is busy")

// ErrInvalidTransition reports a lifecycle transition outside the
// Active -> Archived -> Purged state machine.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// MigrationError is fatal at open time: the process must not continue
// against a partially migrated schema.
type MigrationError struct {
	Path string
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("schema migration failed for %s: %v", e.Path, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// DuplicatePathError reports a second live registration at an
// already-registered root path. It is surfaced, never silently merged.
type DuplicatePathError struct {
	RootPath     string
	ExistingUUID string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("path %s is already registered to project %s", e.RootPath, e.ExistingUUID)
}

// classify maps raw driver errors onto the store's error taxonomy.
// Lock contention becomes ErrBusy; everything else passes through wrapped.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}

// isUniquePathViolation detects the partial unique index on live root paths.
// The index is a backstop behind the explicit duplicate check; both produce
// a DuplicatePathError for callers.
func isUniquePathViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "root_path")
}
