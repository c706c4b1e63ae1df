package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pl018/project-manager-cli/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the registry to a file",
	Long: `Export every project, archived ones included, to a portable file.
The format is inferred from the extension: .jsonl for line-delimited JSON,
.yaml for a single YAML document.

Examples:
  pm export backup.jsonl
  pm export projects.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		n, err := export.ExportFile(cmd.Context(), mgr.Store(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %d projects to %s\n", okStyle.Render("Exported"), n, args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import projects from a file",
	Long: `Import projects from a .jsonl or .yaml export. Records are upserted by
UUID, so importing the same file twice is safe. Records that would claim an
already-registered live path are skipped and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		result, err := export.ImportFile(cmd.Context(), mgr.Store(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %d projects", okStyle.Render("Imported"), result.Imported)
		if result.Skipped > 0 {
			fmt.Printf(", %s", errorStyle.Render(fmt.Sprintf("%d skipped", result.Skipped)))
		}
		fmt.Println()
		for _, msg := range result.Errors {
			fmt.Println(faintStyle.Render("  " + msg))
		}

		// Imported rows must reach the editor list too.
		return warnArtifact(mgr.Sync(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
