// Package export moves registry contents in and out of portable files.
//
// Two formats are supported: JSONL (one project per line, suited to
// streaming and diffing) and YAML (one document, suited to hand editing).
// Import is an upsert keyed by UUID, so round-tripping a registry through a
// file is lossless and repeatable.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pl018/project-manager-cli/internal/store"
)

// Format selects the file encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// DetectFormat derives the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("cannot infer format from %s, use .jsonl or .yaml", path)
	}
}

// record is the portable project shape. It mirrors store.Project but keeps
// its own tags so the file format is decoupled from storage internals.
type record struct {
	UUID          string   `json:"uuid" yaml:"uuid"`
	Name          string   `json:"name" yaml:"name"`
	RootPath      string   `json:"root_path" yaml:"root_path"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	AIName        string   `json:"ai_name,omitempty" yaml:"ai_name,omitempty"`
	AIDescription string   `json:"ai_description,omitempty" yaml:"ai_description,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Notes         string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Favorite      bool     `json:"favorite,omitempty" yaml:"favorite,omitempty"`
	Color         string   `json:"color,omitempty" yaml:"color,omitempty"`
	Archived      bool     `json:"archived,omitempty" yaml:"archived,omitempty"`
}

func toRecord(p *store.Project) record {
	return record{
		UUID:          p.UUID,
		Name:          p.Name,
		RootPath:      p.RootPath,
		Tags:          p.Tags,
		AIName:        p.AIName,
		AIDescription: p.AIDescription,
		Description:   p.Description,
		Notes:         p.Notes,
		Favorite:      p.Favorite,
		Color:         p.Color,
		Archived:      !p.Enabled,
	}
}

// Export writes all projects, archived ones included, to w.
func Export(ctx context.Context, s *store.Store, w io.Writer, format Format) (int, error) {
	projects, err := s.List(ctx, store.Filter{IncludeArchived: true})
	if err != nil {
		return 0, err
	}

	records := make([]record, len(projects))
	for i, p := range projects {
		records[i] = toRecord(p)
	}

	switch format {
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return 0, fmt.Errorf("failed to encode %s: %w", r.UUID, err)
			}
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(records); err != nil {
			return 0, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("unknown format %q", format)
	}
	return len(records), nil
}

// ExportFile exports to a file, inferring the format from its extension.
func ExportFile(ctx context.Context, s *store.Store, path string) (int, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return Export(ctx, s, f, format)
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []string
}

// Import upserts records from r into the store. Records without a UUID or a
// root path are skipped and reported; a duplicate live path skips the
// record rather than aborting the run.
func Import(ctx context.Context, s *store.Store, r io.Reader, format Format) (*ImportResult, error) {
	records, err := decodeRecords(r, format)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, rec := range records {
		if rec.UUID == "" || rec.RootPath == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: missing uuid or root_path", i+1))
			continue
		}
		name := rec.Name
		if name == "" {
			name = filepath.Base(rec.RootPath)
		}

		up := store.Update{
			Name:     store.Str(name),
			RootPath: store.Str(rec.RootPath),
			Tags:     store.TagList(rec.Tags),
			Favorite: store.Bool(rec.Favorite),
		}
		if rec.AIName != "" {
			up.AIName = store.Str(rec.AIName)
		}
		if rec.AIDescription != "" {
			up.AIDescription = store.Str(rec.AIDescription)
		}
		if rec.Description != "" {
			up.Description = store.Str(rec.Description)
		}
		if rec.Notes != "" {
			up.Notes = store.Str(rec.Notes)
		}
		if rec.Color != "" {
			up.Color = store.Str(rec.Color)
		}

		if _, err := s.UpsertProject(ctx, rec.UUID, up); err != nil {
			var dup *store.DuplicatePathError
			if errors.As(err, &dup) {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i+1, err))
				continue
			}
			return result, fmt.Errorf("record %d: %w", i+1, err)
		}

		if rec.Archived {
			if err := s.Archive(ctx, rec.UUID); err != nil && !errors.Is(err, store.ErrInvalidTransition) {
				return result, fmt.Errorf("record %d: archive: %w", i+1, err)
			}
		}
		result.Imported++
	}
	return result, nil
}

// ImportFile imports from a file, inferring the format from its extension.
func ImportFile(ctx context.Context, s *store.Store, path string) (*ImportResult, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Import(ctx, s, f, format)
}

func decodeRecords(r io.Reader, format Format) ([]record, error) {
	switch format {
	case FormatJSONL:
		var records []record
		dec := json.NewDecoder(r)
		line := 0
		for {
			var rec record
			if err := dec.Decode(&rec); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("invalid JSON at record %d: %w", line+1, err)
			}
			line++
			records = append(records, rec)
		}
		return records, nil
	case FormatYAML:
		var records []record
		if err := yaml.NewDecoder(r).Decode(&records); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
