package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the editor project list from the registry",
	Long: `Rebuild the external project list file from current registry state.
The file is normally rebuilt after every mutation; run this to repair it
after it was deleted, hand-edited, or a previous write failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		if err := mgr.Sync(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okStyle.Render("Synced"), faintStyle.Render(cfg.ArtifactPath))
		return nil
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich <project>",
	Short: "Re-run AI metadata enrichment for a project",
	Long: `Run the enrichment pipeline for an existing project: sample its files,
ask the model once, and fill in AI name, description and tags. Fields that
already have values are kept.`,
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
		p, err = mgr.Enrich(cmd.Context(), p.UUID)
		if err = warnArtifact(err); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okStyle.Render("Enriched"), titleStyle.Render(p.Name))
		if p.AIName != "" {
			fmt.Printf("  %s %s\n", faintStyle.Render("name"), p.AIName)
		}
		if p.AIDescription != "" {
			fmt.Printf("  %s %s\n", faintStyle.Render("desc"), p.AIDescription)
		}
		if len(p.Tags) > 0 {
			fmt.Printf("  %s %s\n", faintStyle.Render("tags"), tagStyle.Render(joinTags(p.Tags)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(enrichCmd)
}
