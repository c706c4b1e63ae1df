package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/pl018/project-manager-cli/internal/artifact"
	"github.com/pl018/project-manager-cli/internal/config"
	"github.com/pl018/project-manager-cli/internal/enrich"
	"github.com/pl018/project-manager-cli/internal/identity"
	"github.com/pl018/project-manager-cli/internal/launch"
	"github.com/pl018/project-manager-cli/internal/logging"
	"github.com/pl018/project-manager-cli/internal/manager"
	"github.com/pl018/project-manager-cli/internal/store"
)

var (
	cfgFile string
	verbose bool

	// Set in PersistentPreRunE, used by every subcommand.
	cfg       *config.Config
	appLogger *log.Logger
	logCloser io.Closer
)

// Styles degrade to plain text on dumb terminals via termenv detection.
var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

var rootCmd = &cobra.Command{
	Use:   "pm",
	Short: "Manage a local registry of project directories",
	Long: `pm keeps a registry of your project directories in a local SQLite
database. Projects keep a stable identity across renames and re-clones via a
sentinel file, get normalized tags and optional AI-generated metadata, and
are mirrored into your editor's project list after every change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if termenv.EnvNoColor() {
			lipgloss.SetColorProfile(termenv.Ascii)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		appLogger, logCloser, err = logging.New("pm", logging.Options{
			Dir:     cfg.LogDir,
			Verbose: verbose,
		})
		if err != nil {
			return err
		}

		return launch.LoadCustomTools(cfg.ToolsFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/pm/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr as well as the log file")
}

// openManager builds the manager stack from the loaded config. The caller
// owns no cleanup; the store opens a connection per operation.
func openManager() (*manager.Manager, error) {
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	var enricher *enrich.Enricher
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		client, err := enrich.NewAnthropicClient(cfg.AI.APIKey, cfg.AI.Model, int64(cfg.AI.MaxTokens), cfg.AI.Temperature, cfg.AI.Timeout)
		if err != nil {
			appLogger.Printf("enrichment disabled: %v", err)
		} else {
			sampler := enrich.NewSampler(cfg.Sampler.MaxFiles, cfg.Sampler.MaxFileBytes, cfg.Sampler.ExcludeDirs)
			enricher = enrich.New(sampler, client)
		}
	}

	return manager.New(
		s,
		identity.NewResolver(cfg.SentinelName),
		artifact.NewWriter(cfg.ArtifactPath),
		enricher,
		appLogger,
	), nil
}

// warnArtifact downgrades an artifact write failure to a warning when the
// registry mutation itself already committed. Other errors pass through.
func warnArtifact(err error) error {
	if err == nil {
		return nil
	}
	var we *artifact.WriteError
	if errors.As(err, &we) {
		fmt.Fprintf(os.Stderr, "%s\n", faintStyle.Render("warning: "+we.Error()))
		return nil
	}
	return err
}
