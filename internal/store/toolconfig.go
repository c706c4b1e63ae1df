package store

import (
	"context"
	"database/sql"
)

// ToolConfig is an opaque per-project configuration blob for one launch
// tool, e.g. editor window arguments. Rows cascade when the project is
// purged.
type ToolConfig struct {
	ProjectUUID string `json:"project_uuid"`
	ToolName    string `json:"tool_name"`
	Config      string `json:"config"`
}

// SetToolConfig stores or replaces the configuration for one (project, tool)
// pair. The project must exist.
func (s *Store) SetToolConfig(ctx context.Context, projectUUID, toolName, config string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProjectTx(tx, projectUUID); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO tool_configs (project_uuid, tool_name, config) VALUES (?, ?, ?)
			ON CONFLICT(project_uuid, tool_name) DO UPDATE SET
				config = excluded.config`,
			projectUUID, toolName, config,
		)
		return err
	})
}

// GetToolConfig returns the configuration for one (project, tool) pair, or
// ErrNotFound.
func (s *Store) GetToolConfig(ctx context.Context, projectUUID, toolName string) (*ToolConfig, error) {
	var out *ToolConfig
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var tc ToolConfig
		err := tx.QueryRow(
			"SELECT project_uuid, tool_name, COALESCE(config, '') FROM tool_configs WHERE project_uuid = ? AND tool_name = ?",
			projectUUID, toolName,
		).Scan(&tc.ProjectUUID, &tc.ToolName, &tc.Config)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		out = &tc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListToolConfigs returns every tool configuration for a project.
func (s *Store) ListToolConfigs(ctx context.Context, projectUUID string) ([]ToolConfig, error) {
	var out []ToolConfig
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.Query(
			"SELECT project_uuid, tool_name, COALESCE(config, '') FROM tool_configs WHERE project_uuid = ? ORDER BY tool_name ASC",
			projectUUID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var tc ToolConfig
			if err := rows.Scan(&tc.ProjectUUID, &tc.ToolName, &tc.Config); err != nil {
				return err
			}
			out = append(out, tc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
