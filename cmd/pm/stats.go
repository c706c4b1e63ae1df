package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registry statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		stats, err := mgr.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render("Registry"))
		fmt.Printf("  projects   %d\n", stats.TotalProjects)
		fmt.Printf("  favorites  %d\n", stats.Favorites)

		if len(stats.TopTags) > 0 {
			fmt.Println(titleStyle.Render("Top tags"))
			for _, tc := range stats.TopTags {
				fmt.Printf("  %-18s %d\n", tagStyle.Render("#"+tc.Name), tc.Count)
			}
		}
		if len(stats.MostOpened) > 0 {
			fmt.Println(titleStyle.Render("Most opened"))
			for _, op := range stats.MostOpened {
				fmt.Printf("  %-24s %d\n", op.Name, op.OpenCount)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
