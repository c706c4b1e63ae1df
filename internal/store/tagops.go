package store

import (
	"context"
	"database/sql"

	"github.com/pl018/project-manager-cli/internal/tags"
)

// UpsertTag creates or updates a tag catalog entry. The name is normalized;
// empty color or icon fall back to the deterministic defaults.
func (s *Store) UpsertTag(ctx context.Context, tag tags.Tag) error {
	name := tags.Normalize(tag.Name)
	if name == "" {
		return nil
	}
	if tag.Color == "" {
		tag.Color = tags.ColorFor(name)
	}
	if tag.Icon == "" {
		tag.Icon = tags.DefaultIcon
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO tags (name, color, icon) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				color = excluded.color,
				icon = excluded.icon`,
			name, tag.Color, tag.Icon,
		)
		return err
	})
}

// ListTags returns the full tag catalog ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]tags.Tag, error) {
	var out []tags.Tag
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT name, color, icon FROM tags ORDER BY name ASC")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t tags.Tag
			if err := rows.Scan(&t.Name, &t.Color, &t.Icon); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureTags normalizes names and creates catalog entries for any that are
// missing, with hash-derived colors and the default icon. It returns the
// normalized names in first-seen order.
func (s *Store) EnsureTags(ctx context.Context, names []string) ([]string, error) {
	normalized := tags.NormalizeAll(names)
	if len(normalized) == 0 {
		return normalized, nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, name := range normalized {
			_, err := tx.Exec(
				"INSERT OR IGNORE INTO tags (name, color, icon) VALUES (?, ?, ?)",
				name, tags.ColorFor(name), tags.DefaultIcon,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return normalized, nil
}
