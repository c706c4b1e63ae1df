package launch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/pl018/project-manager-cli/internal/store"
)

func init() {
	Register(&commandTool{name: "vscode", command: "code", args: []string{"--new-window"}})
	Register(&commandTool{name: "cursor", command: "cursor", args: []string{"--new-window"}})
	Register(&commandTool{name: "jetbrains", command: "idea"})
	Register(&terminalTool{})
}

// toolOptions is the shape of a stored per-tool configuration blob.
type toolOptions struct {
	// Args are appended to the tool's base arguments, before the project
	// path.
	Args []string `json:"args"`
}

func parseOptions(config string) (toolOptions, error) {
	var opts toolOptions
	if config == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(config), &opts); err != nil {
		return opts, fmt.Errorf("invalid tool config: %w", err)
	}
	return opts, nil
}

// commandTool launches an executable with the project root as the final
// argument. All built-in editors and TOML-defined tools are commandTools.
type commandTool struct {
	name    string
	command string
	args    []string
}

func (t *commandTool) Name() string { return t.name }

func (t *commandTool) Available() bool {
	_, err := exec.LookPath(t.command)
	return err == nil
}

func (t *commandTool) Launch(ctx context.Context, p *store.Project, config string) error {
	opts, err := parseOptions(config)
	if err != nil {
		return err
	}
	args := append(append([]string{}, t.args...), opts.Args...)
	args = append(args, p.RootPath)

	cmd := exec.CommandContext(ctx, t.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", t.name, err)
	}
	// Editors outlive the CLI; the process is released, not waited on.
	return cmd.Process.Release()
}

// terminalTool opens a shell in the project directory using $TERMINAL,
// falling back to common emulators.
type terminalTool struct{}

func (t *terminalTool) Name() string { return "terminal" }

func (t *terminalTool) binary() string {
	if term := os.Getenv("TERMINAL"); term != "" {
		return term
	}
	for _, candidate := range []string{"x-terminal-emulator", "gnome-terminal", "konsole", "alacritty", "kitty", "xterm"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (t *terminalTool) Available() bool {
	return t.binary() != ""
}

func (t *terminalTool) Launch(ctx context.Context, p *store.Project, config string) error {
	bin := t.binary()
	if bin == "" {
		return fmt.Errorf("no terminal emulator found")
	}
	opts, err := parseOptions(config)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, bin, opts.Args...)
	cmd.Dir = p.RootPath
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch terminal: %w", err)
	}
	return cmd.Process.Release()
}
