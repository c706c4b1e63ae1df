package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pl018/project-manager-cli/internal/dashboard"
	"github.com/pl018/project-manager-cli/internal/store"
	"github.com/pl018/project-manager-cli/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the registry and keep the editor project list current",
	Long: `Run a daemon that watches the registry database for writes from any
process and rebuilds the editor project list after each change.

With --dashboard, a WebSocket server additionally broadcasts a registry
snapshot to connected clients after every rebuild.

Examples:
  pm watch
  pm watch --dashboard            # WebSocket server on the default port
  pm watch --dashboard --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")
		port, _ := cmd.Flags().GetInt("port")

		mgr, err := openManager()
		if err != nil {
			return err
		}

		daemon, err := watch.New(mgr, cfg.DBPath, &watch.Config{
			DebounceInterval: watch.DefaultConfig().DebounceInterval,
			Logger:           appLogger,
		})
		if err != nil {
			return err
		}

		var server *dashboard.Server
		if withDashboard {
			server = dashboard.NewServer(&dashboard.Config{
				Port:   port,
				Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
			})
			if err := server.Start(); err != nil {
				return err
			}
			defer func() { _ = server.Stop() }()
			fmt.Printf("dashboard: ws://localhost:%d/ws\n", port)

			daemon.OnChange(func() {
				projects, err := mgr.List(context.Background(), store.Filter{})
				if err != nil {
					appLogger.Printf("snapshot failed: %v", err)
					return
				}
				server.BroadcastSnapshot(projects)
			})
		}

		fmt.Printf("watching %s\n", cfg.DBPath)
		fmt.Println(faintStyle.Render("press Ctrl+C to stop"))

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return daemon.Start(ctx)
	},
}

func init() {
	watchCmd.Flags().Bool("dashboard", false, "serve a WebSocket dashboard")
	watchCmd.Flags().IntP("port", "p", dashboard.DefaultConfig().Port, "dashboard port")
	rootCmd.AddCommand(watchCmd)
}
