package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pl018/project-manager-cli/internal/tags"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage the tag catalog",
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		catalog, err := mgr.Store().ListTags(cmd.Context())
		if err != nil {
			return err
		}
		for _, t := range catalog {
			fmt.Printf("%s %-18s %s\n", t.Icon, t.Name, faintStyle.Render(t.Color))
		}
		return nil
	},
}

var tagAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create or update a tag",
	Long: `Create a tag, or update an existing one's color and icon. The name is
normalized to a lowercase alphanumeric token; color defaults to a stable
hash-derived value.

Examples:
  pm tag add "Machine Learning"           # becomes machinelearning
  pm tag add infra --color "#ff8800" --icon 🚀`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, _ := cmd.Flags().GetString("color")
		icon, _ := cmd.Flags().GetString("icon")

		normalized := tags.Normalize(args[0])
		if normalized == "" {
			return fmt.Errorf("%q contains no usable characters", args[0])
		}

		mgr, err := openManager()
		if err != nil {
			return err
		}
		if err := mgr.Store().UpsertTag(cmd.Context(), tags.Tag{
			Name:  normalized,
			Color: color,
			Icon:  icon,
		}); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okStyle.Render("Saved tag"), tagStyle.Render("#"+normalized))
		return nil
	},
}

func init() {
	tagAddCmd.Flags().String("color", "", "hex display color (default: derived from name)")
	tagAddCmd.Flags().String("icon", "", "display icon")
	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagAddCmd)
	rootCmd.AddCommand(tagCmd)
}
