package enrich

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sample is one file's contribution to the enrichment prompt: a
// root-relative path and up to maxFileBytes of content.
type Sample struct {
	Path    string
	Content string
}

// Sampler selects a bounded, representative slice of a project tree.
// Selection is deterministic for a given tree so repeated enrichment of an
// unchanged project builds the same prompt.
type Sampler struct {
	MaxFiles     int
	MaxFileBytes int
	ExcludeDirs  map[string]bool
}

// NewSampler builds a sampler with the given caps and directory exclusions.
func NewSampler(maxFiles, maxFileBytes int, excludeDirs []string) *Sampler {
	ex := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		ex[d] = true
	}
	return &Sampler{
		MaxFiles:     maxFiles,
		MaxFileBytes: maxFileBytes,
		ExcludeDirs:  ex,
	}
}

// Sample walks root and returns at most MaxFiles samples, each truncated to
// MaxFileBytes. Excluded directories, hidden directories and paths matched
// by the project's .gitignore are skipped. Candidates are ranked by content
// priority, then shallowness, then path, and read in that order.
func (s *Sampler) Sample(root string) ([]Sample, error) {
	ignore, err := loadGitignore(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read .gitignore: %w", err)
	}

	type candidate struct {
		rel      string
		priority int
		depth    int
	}
	var candidates []candidate

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if s.ExcludeDirs[name] || strings.HasPrefix(name, ".") || ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || ignore.Match(rel, false) {
			return nil
		}
		prio, ok := filePriority(rel)
		if !ok {
			return nil
		}
		candidates = append(candidates, candidate{
			rel:      rel,
			priority: prio,
			depth:    strings.Count(rel, "/"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.depth != b.depth {
			return a.depth < b.depth
		}
		return a.rel < b.rel
	})

	var out []Sample
	for _, c := range candidates {
		if len(out) >= s.MaxFiles {
			break
		}
		content, err := readHead(filepath.Join(root, filepath.FromSlash(c.rel)), s.MaxFileBytes)
		if err != nil {
			continue
		}
		out = append(out, Sample{Path: c.rel, Content: content})
	}
	return out, nil
}

// manifestPriority ranks well-known project files that describe the project
// as a whole ahead of everything else.
var manifestPriority = map[string]int{
	"readme.md":      0,
	"readme.rst":     0,
	"readme.txt":     0,
	"readme":         0,
	"package.json":   1,
	"pyproject.toml": 1,
	"go.mod":         1,
	"cargo.toml":     1,
	"pom.xml":        1,
	"gemfile":        1,
	"makefile":       1,
	"dockerfile":     1,
}

// extPriority ranks file extensions: source code first, then configuration,
// then prose.
var extPriority = map[string]int{
	".go":     2,
	".py":     2,
	".ts":     2,
	".tsx":    2,
	".js":     2,
	".jsx":    2,
	".rs":     2,
	".java":   2,
	".kt":     2,
	".rb":     2,
	".c":      2,
	".cc":     2,
	".cpp":    2,
	".h":      2,
	".swift":  2,
	".cs":     2,
	".php":    2,
	".sh":     2,
	".sql":    2,
	".vue":    2,
	".svelte": 2,
	".toml":   3,
	".yaml":   3,
	".yml":    3,
	".json":   3,
	".md":     4,
	".txt":    4,
	".rst":    4,
	".html":   4,
	".css":    4,
}

// filePriority returns the ranking bucket for a relative path, or ok=false
// for file types that carry no signal (binaries, lockfiles, media).
func filePriority(rel string) (int, bool) {
	base := strings.ToLower(filepath.Base(rel))
	if p, ok := manifestPriority[base]; ok {
		return p, true
	}
	if strings.HasSuffix(base, ".lock") || base == "package-lock.json" || base == "yarn.lock" {
		return 0, false
	}
	if p, ok := extPriority[filepath.Ext(base)]; ok {
		return p, true
	}
	return 0, false
}

// readHead reads at most limit bytes of a file, trimming a trailing partial
// line so the prompt does not end mid-token.
func readHead(path string, limit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, limit)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	content := string(buf[:n])
	if n == limit {
		if idx := strings.LastIndexByte(content, '\n'); idx > 0 {
			content = content[:idx]
		}
	}
	return content, nil
}
