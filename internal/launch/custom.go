package launch

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// customToolDef is one entry of the user's tools file:
//
//	[tools.sublime]
//	command = "subl"
//	args = ["--new-window"]
type customToolDef struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type toolsFile struct {
	Tools map[string]customToolDef `toml:"tools"`
}

// LoadCustomTools reads a TOML tools file and registers each definition.
// A missing file is not an error. Definitions whose name collides with an
// already-registered tool are rejected so user files cannot shadow
// built-ins.
func LoadCustomTools(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var file toolsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("failed to parse tools file %s: %w", path, err)
	}

	for name, def := range file.Tools {
		if def.Command == "" {
			return fmt.Errorf("tool %q in %s has no command", name, path)
		}
		if IsRegistered(name) {
			return fmt.Errorf("tool %q in %s collides with a registered tool", name, path)
		}
		Register(&commandTool{name: name, command: def.Command, args: def.Args})
	}
	return nil
}
