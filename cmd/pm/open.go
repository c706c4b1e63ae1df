package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pl018/project-manager-cli/internal/launch"
	"github.com/pl018/project-manager-cli/internal/store"
)

var openCmd = &cobra.Command{
	Use:   "open <project>",
	Short: "Open a project in a tool",
	Long: `Open a project's directory in a launch tool and record the open.

The tool defaults to vscode. Per-project tool options stored with
'pm tool config' are passed to the launcher.

Examples:
  pm open billing
  pm open billing --tool cursor
  pm open ~/src/api --tool terminal`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolName, _ := cmd.Flags().GetString("tool")

		mgr, err := openManager()
		if err != nil {
			return err
		}
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		tool, err := launch.Get(toolName)
		if err != nil {
			return err
		}
		if !tool.Available() {
			return fmt.Errorf("tool %q is not available on this machine", toolName)
		}

		var toolConfig string
		if tc, err := mgr.Store().GetToolConfig(cmd.Context(), p.UUID, toolName); err == nil {
			toolConfig = tc.Config
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tool.Launch(cmd.Context(), p, toolConfig); err != nil {
			return err
		}
		if err = warnArtifact(mgr.RecordOpen(cmd.Context(), p.UUID)); err != nil {
			return err
		}

		fmt.Printf("%s %s in %s\n", okStyle.Render("Opened"), titleStyle.Render(p.Name), toolName)
		return nil
	},
}

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Inspect and configure launch tools",
}

var toolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List launch tools and their availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range launch.Names() {
			tool, err := launch.Get(name)
			if err != nil {
				return err
			}
			status := errorStyle.Render("missing")
			if tool.Available() {
				status = okStyle.Render("available")
			}
			fmt.Printf("%-12s %s\n", name, status)
		}
		return nil
	},
}

var toolConfigCmd = &cobra.Command{
	Use:   "config <project> <tool> <json>",
	Short: "Store per-project options for a launch tool",
	Long: `Store a JSON options blob for one (project, tool) pair, e.g.:

  pm tool config billing vscode '{"args":["--profile","Work"]}'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolName := args[1]
		if !launch.IsRegistered(toolName) {
			return fmt.Errorf("unknown tool %q (known: %s)", toolName, strings.Join(launch.Names(), ", "))
		}

		mgr, err := openManager()
		if err != nil {
			return err
		}
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := mgr.Store().SetToolConfig(cmd.Context(), p.UUID, toolName, args[2]); err != nil {
			return err
		}
		fmt.Printf("%s %s config for %s\n", okStyle.Render("Saved"), toolName, titleStyle.Render(p.Name))
		return nil
	},
}

func init() {
	openCmd.Flags().StringP("tool", "t", "vscode", "launch tool")
	rootCmd.AddCommand(openCmd)

	toolCmd.AddCommand(toolListCmd)
	toolCmd.AddCommand(toolConfigCmd)
	rootCmd.AddCommand(toolCmd)
}
