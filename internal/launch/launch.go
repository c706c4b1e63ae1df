// Package launch opens registered projects in external tools.
//
// Tools implement a fixed capability interface and register by name in a
// process-wide registry. Built-in editors self-register at init; extra
// tools come from the user's TOML tools file. Callers look tools up by
// name, never by type.
package launch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pl018/project-manager-cli/internal/store"
)

// Tool is the capability surface for launching a project.
type Tool interface {
	// Name is the registry key, e.g. "vscode".
	Name() string

	// Available reports whether the tool can run on this machine, typically
	// a PATH lookup.
	Available() bool

	// Launch opens the project's root directory. config is the project's
	// stored per-tool configuration blob, empty when none exists.
	Launch(ctx context.Context, p *store.Project, config string) error
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Tool)
)

// Register adds a tool under its name. It panics on a nil tool or a
// duplicate name; both are programmer errors at init time.
func Register(tool Tool) {
	if tool == nil {
		panic("launch: Register called with nil tool")
	}
	mu.Lock()
	defer mu.Unlock()
	name := tool.Name()
	if name == "" {
		panic("launch: Register called with empty tool name")
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("launch: Register called twice for tool %q", name))
	}
	registry[name] = tool
}

// Get returns the tool registered under name.
func Get(name string) (Tool, error) {
	mu.RLock()
	defer mu.RUnlock()
	tool, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q (registered: %v)", name, namesLocked())
	}
	return tool, nil
}

// IsRegistered reports whether a tool name is taken.
func IsRegistered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Names returns all registered tool names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// UnregisterAll clears the registry. Only for tests.
func UnregisterAll() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Tool)
}
