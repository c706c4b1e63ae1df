package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pl018/project-manager-cli/internal/store"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered projects",
	Long: `List projects, favorites first. Archived projects are hidden unless
--all is given.

Examples:
  pm list
  pm list --tag go --tag cli         # projects with any of the tags
  pm list --tag go --tag cli --every # projects with all of the tags
  pm list --query billing
  pm list --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		tags, _ := cmd.Flags().GetStringArray("tag")
		every, _ := cmd.Flags().GetBool("every")
		favorites, _ := cmd.Flags().GetBool("favorites")
		all, _ := cmd.Flags().GetBool("all")
		asJSON, _ := cmd.Flags().GetBool("json")

		mode := store.TagModeAny
		if every {
			mode = store.TagModeAll
		}

		mgr, err := openManager()
		if err != nil {
			return err
		}
		projects, err := mgr.List(cmd.Context(), store.Filter{
			Query:           query,
			Tags:            tags,
			Mode:            mode,
			FavoritesOnly:   favorites,
			IncludeArchived: all,
		})
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(projects)
		}

		if len(projects) == 0 {
			fmt.Println(faintStyle.Render("no projects"))
			return nil
		}
		for _, p := range projects {
			printProjectLine(p)
		}
		return nil
	},
}

func printProjectLine(p *store.Project) {
	marker := " "
	if p.Favorite {
		marker = "★"
	}
	name := p.Name
	if p.AIName != "" {
		name = p.AIName
	}
	line := fmt.Sprintf("%s %s", marker, titleStyle.Render(name))
	if !p.Enabled {
		line += " " + faintStyle.Render("(archived)")
	}
	if len(p.Tags) > 0 {
		line += "  " + tagStyle.Render(joinTags(p.Tags))
	}
	fmt.Println(line)
	fmt.Printf("   %s\n", faintStyle.Render(p.RootPath))
}

func joinTags(tags []string) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = "#" + t
	}
	return strings.Join(parts, " ")
}

func init() {
	listCmd.Flags().StringP("query", "q", "", "substring match on name, path and notes")
	listCmd.Flags().StringArray("tag", nil, "filter by tag (repeatable)")
	listCmd.Flags().Bool("every", false, "require all given tags instead of any")
	listCmd.Flags().BoolP("favorites", "f", false, "favorites only")
	listCmd.Flags().BoolP("all", "a", false, "include archived projects")
	listCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(listCmd)
}
