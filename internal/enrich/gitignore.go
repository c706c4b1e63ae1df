package enrich

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ignoreRule is one compiled .gitignore pattern.
type ignoreRule struct {
	g        glob.Glob
	dirOnly  bool
	anchored bool
}

// ignoreMatcher holds the compiled patterns of a project's root .gitignore.
// Only the root file is consulted; nested .gitignore files and negation
// patterns are out of scope for sampling purposes, which only needs to keep
// obviously-generated trees out of the prompt.
type ignoreMatcher struct {
	rules []ignoreRule
}

// loadGitignore reads and compiles root/.gitignore. A missing file yields an
// empty matcher; malformed patterns are skipped.
func loadGitignore(root string) (*ignoreMatcher, error) {
	m := &ignoreMatcher{}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		dirOnly := strings.HasSuffix(line, "/")
		line = strings.TrimSuffix(line, "/")
		anchored := strings.HasPrefix(line, "/")
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			continue
		}

		g, err := glob.Compile(line, '/')
		if err != nil {
			continue
		}
		m.rules = append(m.rules, ignoreRule{g: g, dirOnly: dirOnly, anchored: anchored})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Match reports whether the slash-separated relative path is ignored.
// Unanchored patterns match the basename or any path suffix, mirroring how
// git applies patterns at every directory level.
func (m *ignoreMatcher) Match(rel string, isDir bool) bool {
	if len(m.rules) == 0 {
		return false
	}
	base := rel
	if idx := strings.LastIndexByte(rel, '/'); idx >= 0 {
		base = rel[idx+1:]
	}
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.anchored {
			if r.g.Match(rel) {
				return true
			}
			continue
		}
		if r.g.Match(rel) || r.g.Match(base) {
			return true
		}
	}
	return false
}
