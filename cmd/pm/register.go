package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pl018/project-manager-cli/internal/manager"
)

var registerCmd = &cobra.Command{
	Use:   "register [directory]",
	Short: "Add a project directory to the registry",
	Long: `Register a directory as a project. The directory gets a sentinel file
holding its UUID, so moving or re-cloning it and registering again resolves
to the same project instead of creating a duplicate.

With AI enrichment configured, a bounded sample of the project's files is
sent to the model once to derive a display name, description and tags.
Enrichment failures never fail registration.

Examples:
  pm register                      # register the current directory
  pm register ~/src/api --tag go --tag backend
  pm register . --name "Billing API" --no-enrich`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		name, _ := cmd.Flags().GetString("name")
		tags, _ := cmd.Flags().GetStringArray("tag")
		noEnrich, _ := cmd.Flags().GetBool("no-enrich")

		mgr, err := openManager()
		if err != nil {
			return err
		}

		p, err := mgr.Register(cmd.Context(), dir, manager.RegisterOptions{
			Name:           name,
			Tags:           tags,
			SkipEnrichment: noEnrich,
		})
		if err = warnArtifact(err); err != nil {
			return err
		}

		fmt.Printf("%s %s\n", okStyle.Render("Registered"), titleStyle.Render(p.Name))
		fmt.Printf("  %s %s\n", faintStyle.Render("uuid"), p.UUID)
		fmt.Printf("  %s %s\n", faintStyle.Render("path"), p.RootPath)
		if len(p.Tags) > 0 {
			fmt.Printf("  %s %s\n", faintStyle.Render("tags"), tagStyle.Render(joinTags(p.Tags)))
		}
		if p.AIDescription != "" {
			fmt.Printf("  %s %s\n", faintStyle.Render("desc"), p.AIDescription)
		}
		return nil
	},
}

func init() {
	registerCmd.Flags().String("name", "", "project name (default: directory basename)")
	registerCmd.Flags().StringArray("tag", nil, "tag to attach (repeatable)")
	registerCmd.Flags().Bool("no-enrich", false, "skip AI metadata enrichment")
	rootCmd.AddCommand(registerCmd)
}
