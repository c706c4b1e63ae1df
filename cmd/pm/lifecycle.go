package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <project>",
	Short: "Archive a project (soft delete)",
	Long: `Archive a project. The record and its history are kept, the project
disappears from listings and the editor project list, and its path becomes
free for another registration. Reversible with 'pm restore'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err = warnArtifact(mgr.Archive(cmd.Context(), p.UUID)); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okStyle.Render("Archived"), titleStyle.Render(p.Name))
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <project>",
	Short: "Restore an archived project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err = warnArtifact(mgr.Restore(cmd.Context(), p.UUID)); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okStyle.Render("Restored"), titleStyle.Render(p.Name))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Permanently delete a project",
	Long: `Permanently delete a project record and its tool configurations.
This cannot be undone; prefer 'pm archive' unless you are sure. The project
directory itself is never touched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		mgr, err := openManager()
		if err != nil {
			return err
		}
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if !force {
			var confirmed bool
			prompt := huh.NewConfirm().
				Title(fmt.Sprintf("Permanently delete %q?", p.Name)).
				Description("The registry record and tool configs are removed. Files on disk are untouched.").
				Value(&confirmed)
			if err := prompt.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(faintStyle.Render("aborted"))
				return nil
			}
		}

		if err = warnArtifact(mgr.Purge(cmd.Context(), p.UUID)); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okStyle.Render("Deleted"), titleStyle.Render(p.Name))
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolP("force", "f", false, "skip the confirmation prompt")
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(deleteCmd)
}
