package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
)

// TagCount pairs a tag name with how many live projects carry it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// OpenedProject is a list entry for the most-opened ranking.
type OpenedProject struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	OpenCount int    `json:"open_count"`
}

// Stats summarizes the live registry.
type Stats struct {
	TotalProjects int             `json:"total_projects"`
	Favorites     int             `json:"favorites"`
	TopTags       []TagCount      `json:"top_tags"`
	MostOpened    []OpenedProject `json:"most_opened"`
}

// Stats computes registry statistics over live rows: totals, the ten most
// used tags and the five most opened projects.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRow(
			"SELECT COUNT(*), COALESCE(SUM(favorite), 0) FROM projects WHERE enabled = 1",
		).Scan(&out.TotalProjects, &out.Favorites)
		if err != nil {
			return err
		}

		// Tag usage comes from the JSON column, so the distribution is
		// counted in Go.
		rows, err := tx.Query("SELECT tags FROM projects WHERE enabled = 1")
		if err != nil {
			return err
		}
		defer rows.Close()

		counts := make(map[string]int)
		for rows.Next() {
			var tagsJSON sql.NullString
			if err := rows.Scan(&tagsJSON); err != nil {
				return err
			}
			if !tagsJSON.Valid || tagsJSON.String == "" {
				continue
			}
			var names []string
			if err := json.Unmarshal([]byte(tagsJSON.String), &names); err != nil {
				continue
			}
			for _, name := range names {
				counts[name]++
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out.TopTags = topTags(counts, 10)

		opened, err := tx.Query(
			"SELECT uuid, name, open_count FROM projects WHERE enabled = 1 AND open_count > 0 ORDER BY open_count DESC, name COLLATE NOCASE ASC LIMIT 5",
		)
		if err != nil {
			return err
		}
		defer opened.Close()

		for opened.Next() {
			var op OpenedProject
			if err := opened.Scan(&op.UUID, &op.Name, &op.OpenCount); err != nil {
				return err
			}
			out.MostOpened = append(out.MostOpened, op)
		}
		return opened.Err()
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// topTags ranks tag counts descending, name ascending as the tiebreak.
func topTags(counts map[string]int, limit int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, TagCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
