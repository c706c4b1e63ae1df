// Package manager coordinates the registry workflows: it composes identity
// resolution, the store, the enrichment pipeline and the external artifact
// into the operations the CLI exposes.
//
// Every mutation follows the same shape: retry the store write through the
// busy backoff, then rebuild the artifact in full. The registry commit and
// the artifact write are deliberately not atomic; an artifact failure is
// surfaced as *artifact.WriteError after the mutation has already landed.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pl018/project-manager-cli/internal/artifact"
	"github.com/pl018/project-manager-cli/internal/enrich"
	"github.com/pl018/project-manager-cli/internal/identity"
	"github.com/pl018/project-manager-cli/internal/store"
)

// busyDelays is the backoff schedule for contended store writes. After the
// last attempt the ErrBusy is returned to the caller.
var busyDelays = []time.Duration{50 * time.Millisecond, 150 * time.Millisecond, 450 * time.Millisecond}

// ErrAmbiguous reports a project reference matching more than one project.
var ErrAmbiguous = errors.New("ambiguous project reference")

// Manager wires the registry subsystems together.
type Manager struct {
	store    *store.Store
	identity *identity.Resolver
	artifact *artifact.Writer
	enricher *enrich.Enricher // nil when enrichment is disabled
	log      *log.Logger
}

// New builds a manager. enricher may be nil to disable enrichment entirely.
func New(s *store.Store, res *identity.Resolver, art *artifact.Writer, enricher *enrich.Enricher, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	return &Manager{
		store:    s,
		identity: res,
		artifact: art,
		enricher: enricher,
		log:      logger,
	}
}

// RegisterOptions adjusts project registration.
type RegisterOptions struct {
	// Name overrides the default project name (the directory basename).
	Name string
	// Tags are attached after normalization.
	Tags []string
	// SkipEnrichment suppresses the model call for this registration.
	SkipEnrichment bool
}

// Register adds the directory at dir to the registry and returns the stored
// project.
//
// Identity comes from the directory's sentinel file; a sentinel that cannot
// be persisted downgrades to a warning and registration proceeds with the
// in-memory UUID. Enrichment failures likewise never fail registration.
// A second live registration of the same path fails with
// *store.DuplicatePathError.
func (m *Manager) Register(ctx context.Context, dir string, opts RegisterOptions) (*store.Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	id, err := m.identity.Resolve(abs)
	if err != nil {
		var perr *identity.PersistError
		if !errors.As(err, &perr) {
			return nil, err
		}
		m.log.Printf("warning: could not persist identity sentinel in %s: %v", abs, perr.Err)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(abs)
	}
	tagNames, err := m.store.EnsureTags(ctx, opts.Tags)
	if err != nil {
		return nil, err
	}

	var p *store.Project
	err = m.retryBusy(ctx, func() error {
		var err error
		p, err = m.store.UpsertProject(ctx, id, store.Update{
			Name:     store.Str(name),
			RootPath: store.Str(abs),
			Tags:     store.TagList(tagNames),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if m.enricher != nil && !opts.SkipEnrichment {
		if enriched, err := m.applyEnrichment(ctx, p); err != nil {
			m.log.Printf("no enrichment for %s: %v", p.Name, err)
		} else {
			p = enriched
		}
	}

	return p, m.resync(ctx)
}

// Enrich re-runs the metadata pipeline for an existing project on demand.
func (m *Manager) Enrich(ctx context.Context, id string) (*store.Project, error) {
	if m.enricher == nil {
		return nil, fmt.Errorf("enrichment is disabled")
	}
	p, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err = m.applyEnrichment(ctx, p)
	if err != nil {
		return nil, err
	}
	return p, m.resync(ctx)
}

// applyEnrichment runs the pipeline and folds the result into the project.
// AI name and description fill only when unset; tags are the union of the
// user's tags and the model's, user tags first.
func (m *Manager) applyEnrichment(ctx context.Context, p *store.Project) (*store.Project, error) {
	result, err := m.enricher.Enrich(ctx, p.Name, p.RootPath, p.Tags)
	if err != nil {
		return nil, err
	}

	up := store.Update{}
	if p.AIName == "" && result.Name != "" {
		up.AIName = store.Str(result.Name)
	}
	if p.AIDescription == "" && result.Description != "" {
		up.AIDescription = store.Str(result.Description)
	}
	merged := mergeTags(p.Tags, result.Tags)
	if _, err := m.store.EnsureTags(ctx, merged); err != nil {
		return nil, err
	}
	up.Tags = store.TagList(merged)

	var out *store.Project
	err = m.retryBusy(ctx, func() error {
		var err error
		out, err = m.store.UpsertProject(ctx, p.UUID, up)
		return err
	})
	return out, err
}

// Get returns one project by UUID.
func (m *Manager) Get(ctx context.Context, id string) (*store.Project, error) {
	return m.store.Get(ctx, id)
}

// List returns projects matching the filter.
func (m *Manager) List(ctx context.Context, f store.Filter) ([]*store.Project, error) {
	return m.store.List(ctx, f)
}

// Find resolves a loose project reference: an exact UUID, a registered root
// path, a UUID prefix, or a case-insensitive name. A reference matching
// several projects fails with ErrAmbiguous.
func (m *Manager) Find(ctx context.Context, ref string) (*store.Project, error) {
	if p, err := m.store.Get(ctx, ref); err == nil {
		return p, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if abs, err := filepath.Abs(ref); err == nil {
		if p, err := m.store.GetByPath(ctx, abs); err == nil {
			return p, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	all, err := m.store.List(ctx, store.Filter{IncludeArchived: true})
	if err != nil {
		return nil, err
	}
	var matches []*store.Project
	for _, p := range all {
		if strings.HasPrefix(p.UUID, ref) || strings.EqualFold(p.Name, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, store.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d projects", ErrAmbiguous, ref, len(matches))
	}
}

// Edit applies a partial update and rebuilds the artifact.
func (m *Manager) Edit(ctx context.Context, id string, up store.Update) (*store.Project, error) {
	if up.Tags != nil {
		normalized, err := m.store.EnsureTags(ctx, *up.Tags)
		if err != nil {
			return nil, err
		}
		up.Tags = store.TagList(normalized)
	}
	var p *store.Project
	err := m.retryBusy(ctx, func() error {
		var err error
		p, err = m.store.UpsertProject(ctx, id, up)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, m.resync(ctx)
}

// RecordOpen bumps the open counter ahead of a tool launch.
func (m *Manager) RecordOpen(ctx context.Context, id string) error {
	if err := m.retryBusy(ctx, func() error { return m.store.RecordOpen(ctx, id) }); err != nil {
		return err
	}
	return m.resync(ctx)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (m *Manager) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var fav bool
	err := m.retryBusy(ctx, func() error {
		var err error
		fav, err = m.store.ToggleFavorite(ctx, id)
		return err
	})
	if err != nil {
		return false, err
	}
	return fav, m.resync(ctx)
}

// Archive soft-deletes a project and drops it from the artifact.
func (m *Manager) Archive(ctx context.Context, id string) error {
	if err := m.retryBusy(ctx, func() error { return m.store.Archive(ctx, id) }); err != nil {
		return err
	}
	return m.resync(ctx)
}

// Restore reactivates an archived project.
func (m *Manager) Restore(ctx context.Context, id string) error {
	if err := m.retryBusy(ctx, func() error { return m.store.Restore(ctx, id) }); err != nil {
		return err
	}
	return m.resync(ctx)
}

// Purge permanently removes a project.
func (m *Manager) Purge(ctx context.Context, id string) error {
	if err := m.retryBusy(ctx, func() error { return m.store.Purge(ctx, id) }); err != nil {
		return err
	}
	return m.resync(ctx)
}

// Sync rebuilds the artifact from current registry state. It is the repair
// path for a deleted or hand-edited artifact file.
func (m *Manager) Sync(ctx context.Context) error {
	return m.resync(ctx)
}

// Stats returns registry statistics.
func (m *Manager) Stats(ctx context.Context) (*store.Stats, error) {
	return m.store.Stats(ctx)
}

// Store exposes the underlying store for subsystems that need direct reads.
func (m *Manager) Store() *store.Store {
	return m.store
}

// resync rebuilds the external artifact from all live projects.
func (m *Manager) resync(ctx context.Context) error {
	if m.artifact == nil {
		return nil
	}
	projects, err := m.store.List(ctx, store.Filter{})
	if err != nil {
		return err
	}
	return m.artifact.Regenerate(projects)
}

// retryBusy runs fn, retrying only lock contention per the backoff
// schedule. Any other error returns immediately.
func (m *Manager) retryBusy(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, store.ErrBusy) {
			return err
		}
		if attempt >= len(busyDelays) {
			return err
		}
		m.log.Printf("store busy, retrying in %s", busyDelays[attempt])
		select {
		case <-time.After(busyDelays[attempt]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// mergeTags unions user and model tags, user tags first, deduplicated.
func mergeTags(user, model []string) []string {
	out := make([]string, 0, len(user)+len(model))
	seen := make(map[string]bool, len(user)+len(model))
	for _, t := range append(append([]string{}, user...), model...) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
