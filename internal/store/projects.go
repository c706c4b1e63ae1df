package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pl018/project-manager-cli/internal/tags"
)

const projectColumns = `uuid, name, root_path, tags, ai_name, ai_description,
	description, notes, favorite, last_opened, open_count, date_added,
	last_updated, enabled, color`

// UpsertProject inserts or updates the project identified by id.
//
// On insert, up must carry Name and RootPath; remaining fields take their
// defaults (not favorite, zero opens, active, auto color). On update, only
// the non-nil fields of up change; date_added, open_count and favorite are
// preserved unless explicitly set. last_updated is always stamped.
//
// A live registration at an already-claimed root path is rejected with
// *DuplicatePathError naming the existing owner.
func (s *Store) UpsertProject(ctx context.Context, id string, up Update) (*Project, error) {
	var out *Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getProjectTx(tx, id)
		if err != nil && err != ErrNotFound {
			return err
		}

		var p Project
		if existing != nil {
			p = *existing
		} else {
			if up.Name == nil || up.RootPath == nil {
				// A purely partial update targets an existing row; a new
				// row additionally needs name and root path.
				return fmt.Errorf("project %s (name and root path required to create): %w", id, ErrNotFound)
			}
			p = Project{
				UUID:      id,
				Enabled:   true,
				DateAdded: time.Now().UTC(),
			}
		}

		applyUpdate(&p, up)
		p.LastUpdated = time.Now().UTC()
		if p.Color == "" {
			p.Color = "blue"
		}

		// Path uniqueness applies to live rows only. The partial unique
		// index backstops this check against concurrent writers.
		if p.Enabled {
			if owner, err := livePathOwnerTx(tx, p.RootPath, p.UUID); err != nil {
				return err
			} else if owner != "" {
				return &DuplicatePathError{RootPath: p.RootPath, ExistingUUID: owner}
			}
		}

		if err := writeProjectTx(tx, &p); err != nil {
			if isUniquePathViolation(err) {
				return &DuplicatePathError{RootPath: p.RootPath, ExistingUUID: "unknown"}
			}
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the project with the given UUID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	var out *Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProjectTx(tx, id)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByPath returns the live project registered at rootPath, or ErrNotFound.
// Archived rows at the same path are invisible here.
func (s *Store) GetByPath(ctx context.Context, rootPath string) (*Project, error) {
	var out *Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRow(
			"SELECT "+projectColumns+" FROM projects WHERE root_path = ? AND enabled = 1",
			rootPath,
		)
		p, err := scanProject(row)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns projects matching the filter, favorites first then by name.
// Archived rows are excluded unless the filter asks for them.
func (s *Store) List(ctx context.Context, f Filter) ([]*Project, error) {
	var out []*Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := "SELECT " + projectColumns + " FROM projects"
		var conds []string
		var args []any

		if !f.IncludeArchived {
			conds = append(conds, "enabled = 1")
		}
		if f.FavoritesOnly {
			conds = append(conds, "favorite = 1")
		}
		if f.Query != "" {
			needle := "%" + strings.ToLower(f.Query) + "%"
			conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(root_path) LIKE ? OR LOWER(COALESCE(notes,'')) LIKE ?)")
			args = append(args, needle, needle, needle)
		}
		if len(conds) > 0 {
			query += " WHERE " + strings.Join(conds, " AND ")
		}
		query += " ORDER BY favorite DESC, name COLLATE NOCASE ASC"

		rows, err := tx.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		projects, err := scanProjects(rows)
		if err != nil {
			return err
		}
		out = filterByTags(projects, f.Tags, f.Mode)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordOpen bumps the open counter and stamps the last-opened time.
func (s *Store) RecordOpen(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.Exec(
			"UPDATE projects SET open_count = open_count + 1, last_opened = ?, last_updated = ? WHERE uuid = ?",
			now, now, id,
		)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var fav bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProjectTx(tx, id)
		if err != nil {
			return err
		}
		fav = !p.Favorite
		_, err = tx.Exec(
			"UPDATE projects SET favorite = ?, last_updated = ? WHERE uuid = ?",
			boolToInt(fav), nowString(), id,
		)
		return err
	})
	return fav, err
}

// UpdateNotes replaces the free-form notes field.
func (s *Store) UpdateNotes(ctx context.Context, id, notes string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(
			"UPDATE projects SET notes = ?, last_updated = ? WHERE uuid = ?",
			notes, nowString(), id,
		)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// Archive soft-deletes a project: the row and its history are retained, the
// project disappears from default listings and the external artifact, and
// its root path is freed for re-registration. Only active projects can be
// archived.
func (s *Store) Archive(ctx context.Context, id string) error {
	return s.transition(ctx, id, LifecycleArchived, func(tx *sql.Tx, p *Project) error {
		_, err := tx.Exec(
			"UPDATE projects SET enabled = 0, last_updated = ? WHERE uuid = ?",
			nowString(), id,
		)
		return err
	})
}

// Restore returns an archived project to the active state. If another live
// project has since claimed the same root path, the restore is rejected
// with *DuplicatePathError.
func (s *Store) Restore(ctx context.Context, id string) error {
	return s.transition(ctx, id, LifecycleActive, func(tx *sql.Tx, p *Project) error {
		owner, err := livePathOwnerTx(tx, p.RootPath, p.UUID)
		if err != nil {
			return err
		}
		if owner != "" {
			return &DuplicatePathError{RootPath: p.RootPath, ExistingUUID: owner}
		}
		_, err = tx.Exec(
			"UPDATE projects SET enabled = 1, last_updated = ? WHERE uuid = ?",
			nowString(), id,
		)
		return err
	})
}

// Purge permanently deletes a project row. Tool configurations cascade with
// it. Purge is terminal and allowed from both active and archived states.
func (s *Store) Purge(ctx context.Context, id string) error {
	return s.transition(ctx, id, LifecyclePurged, func(tx *sql.Tx, p *Project) error {
		_, err := tx.Exec("DELETE FROM projects WHERE uuid = ?", id)
		return err
	})
}

// transition loads the project, validates the lifecycle edge and applies fn.
func (s *Store) transition(ctx context.Context, id string, to Lifecycle, fn func(tx *sql.Tx, p *Project) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProjectTx(tx, id)
		if err != nil {
			return err
		}
		from := p.State()
		if !from.CanTransition(to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		return fn(tx, p)
	})
}

// applyUpdate folds the non-nil fields of up into p. Tags are normalized on
// the way in so the database only ever holds canonical names.
func applyUpdate(p *Project, up Update) {
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.RootPath != nil {
		p.RootPath = *up.RootPath
	}
	if up.Tags != nil {
		p.Tags = tags.NormalizeAll(*up.Tags)
	}
	if up.AIName != nil {
		p.AIName = *up.AIName
	}
	if up.AIDescription != nil {
		p.AIDescription = *up.AIDescription
	}
	if up.Description != nil {
		p.Description = *up.Description
	}
	if up.Notes != nil {
		p.Notes = *up.Notes
	}
	if up.Favorite != nil {
		p.Favorite = *up.Favorite
	}
	if up.Color != nil {
		p.Color = *up.Color
	}
}

// livePathOwnerTx returns the UUID of the live project at rootPath, skipping
// selfID, or "" when the path is free.
func livePathOwnerTx(tx *sql.Tx, rootPath, selfID string) (string, error) {
	var owner string
	err := tx.QueryRow(
		"SELECT uuid FROM projects WHERE root_path = ? AND enabled = 1 AND uuid != ?",
		rootPath, selfID,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return owner, nil
}

func getProjectTx(tx *sql.Tx, id string) (*Project, error) {
	row := tx.QueryRow("SELECT "+projectColumns+" FROM projects WHERE uuid = ?", id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// writeProjectTx writes the full merged row, inserting or replacing by UUID.
func writeProjectTx(tx *sql.Tx, p *Project) error {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO projects (uuid, name, root_path, tags, ai_name, ai_description,
			description, notes, favorite, last_opened, open_count, date_added,
			last_updated, enabled, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			name = excluded.name,
			root_path = excluded.root_path,
			tags = excluded.tags,
			ai_name = excluded.ai_name,
			ai_description = excluded.ai_description,
			description = excluded.description,
			notes = excluded.notes,
			favorite = excluded.favorite,
			last_opened = excluded.last_opened,
			open_count = excluded.open_count,
			date_added = excluded.date_added,
			last_updated = excluded.last_updated,
			enabled = excluded.enabled,
			color = excluded.color`,
		p.UUID, p.Name, p.RootPath, string(tagsJSON),
		nullIfEmpty(p.AIName), nullIfEmpty(p.AIDescription),
		nullIfEmpty(p.Description), nullIfEmpty(p.Notes),
		boolToInt(p.Favorite), timeToNullString(p.LastOpened), p.OpenCount,
		timeString(p.DateAdded), timeString(p.LastUpdated),
		boolToInt(p.Enabled), p.Color,
	)
	return err
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p          Project
		tagsJSON   sql.NullString
		aiName     sql.NullString
		aiDesc     sql.NullString
		desc       sql.NullString
		notes      sql.NullString
		favorite   int
		lastOpened sql.NullString
		dateAdded  string
		lastUpd    string
		enabled    int
	)
	err := row.Scan(
		&p.UUID, &p.Name, &p.RootPath, &tagsJSON, &aiName, &aiDesc,
		&desc, &notes, &favorite, &lastOpened, &p.OpenCount,
		&dateAdded, &lastUpd, &enabled, &p.Color,
	)
	if err != nil {
		return nil, err
	}

	p.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", p.UUID, err)
		}
		// A stored JSON null would reset the slice to nil.
		if p.Tags == nil {
			p.Tags = []string{}
		}
	}
	p.AIName = aiName.String
	p.AIDescription = aiDesc.String
	p.Description = desc.String
	p.Notes = notes.String
	p.Favorite = favorite != 0
	p.Enabled = enabled != 0
	p.LastOpened = nullStringToTime(lastOpened)
	p.DateAdded = parseTime(dateAdded)
	p.LastUpdated = parseTime(lastUpd)
	return &p, nil
}

func scanProjects(rows *sql.Rows) ([]*Project, error) {
	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// filterByTags applies the tag criteria in Go; tags live in a JSON column so
// SQL cannot index into them cheaply at this scale.
func filterByTags(projects []*Project, want []string, mode TagMode) []*Project {
	if len(want) == 0 {
		return projects
	}
	want = tags.NormalizeAll(want)
	out := make([]*Project, 0, len(projects))
	for _, p := range projects {
		have := make(map[string]bool, len(p.Tags))
		for _, t := range p.Tags {
			have[t] = true
		}
		matched := 0
		for _, w := range want {
			if have[w] {
				matched++
			}
		}
		switch mode {
		case TagModeAll:
			if matched == len(want) {
				out = append(out, p)
			}
		default:
			if matched > 0 {
				out = append(out, p)
			}
		}
	}
	return out
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func timeString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: timeString(*t), Valid: true}
}

func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
