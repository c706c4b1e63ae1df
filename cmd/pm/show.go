package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show one project in detail",
	Long: `Show a project's full record. The project may be referenced by UUID,
UUID prefix, registered path, or name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		mgr, err := openManager()
		if err != nil {
			return err
		}
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}

		name := p.Name
		if p.AIName != "" {
			name = fmt.Sprintf("%s (%s)", p.AIName, p.Name)
		}
		fmt.Println(titleStyle.Render(name))
		row := func(label, value string) {
			if value != "" {
				fmt.Printf("  %-12s %s\n", faintStyle.Render(label), value)
			}
		}
		row("uuid", p.UUID)
		row("path", p.RootPath)
		row("state", string(p.State()))
		row("tags", tagStyle.Render(joinTags(p.Tags)))
		row("description", p.AIDescription)
		row("notes", p.Notes)
		row("color", p.Color)
		if p.Favorite {
			row("favorite", "yes")
		}
		row("opens", fmt.Sprintf("%d", p.OpenCount))
		if p.LastOpened != nil {
			row("last opened", p.LastOpened.Local().Format("2006-01-02 15:04"))
		}
		row("added", p.DateAdded.Local().Format("2006-01-02 15:04"))

		configs, err := mgr.Store().ListToolConfigs(cmd.Context(), p.UUID)
		if err == nil && len(configs) > 0 {
			fmt.Println(faintStyle.Render("  tool configs"))
			for _, tc := range configs {
				fmt.Printf("    %s %s\n", tc.ToolName, faintStyle.Render(tc.Config))
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(showCmd)
}
