package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pl018/project-manager-cli/internal/store"
)

var editCmd = &cobra.Command{
	Use:   "edit <project>",
	Short: "Edit project fields",
	Long: `Edit a project. Only the flags you pass change; everything else is
left alone. --tag replaces the full tag set.

Examples:
  pm edit billing --name "Billing API"
  pm edit billing --notes "migrating to v2"
  pm edit billing --tag go --tag backend`,
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

		up := store.Update{}
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			up.Name = store.Str(name)
		}
		if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			up.Notes = store.Str(notes)
		}
		if cmd.Flags().Changed("color") {
			color, _ := cmd.Flags().GetString("color")
			up.Color = store.Str(color)
		}
		if cmd.Flags().Changed("tag") {
			tags, _ := cmd.Flags().GetStringArray("tag")
			up.Tags = store.TagList(tags)
		}
		if up == (store.Update{}) {
			return fmt.Errorf("nothing to change, pass at least one of --name, --notes, --color, --tag")
		}

		p, err = mgr.Edit(cmd.Context(), p.UUID, up)
		if err = warnArtifact(err); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okStyle.Render("Updated"), titleStyle.Render(p.Name))
		return nil
	},
}

var favoriteCmd = &cobra.Command{
	Use:     "favorite <project>",
	Aliases: []string{"fav"},
	Short:   "Toggle a project's favorite flag",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fav, err := mgr.ToggleFavorite(cmd.Context(), p.UUID)
		if err = warnArtifact(err); err != nil {
			return err
		}
		if fav {
			fmt.Printf("%s %s\n", okStyle.Render("★ Favorited"), titleStyle.Render(p.Name))
		} else {
			fmt.Printf("%s %s\n", faintStyle.Render("Unfavorited"), titleStyle.Render(p.Name))
		}
		return nil
	},
}

func init() {
	editCmd.Flags().String("name", "", "new project name")
	editCmd.Flags().String("notes", "", "free-form notes")
	editCmd.Flags().String("color", "", "display color")
	editCmd.Flags().StringArray("tag", nil, "replace the tag set (repeatable)")
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(favoriteCmd)
}
