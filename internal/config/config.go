// Package config loads pm configuration from file and environment.
//
// Configuration is an explicit value handed to constructors. Nothing in this
// module reads ambient global state after Load returns, which keeps the store
// and the enrichment pipeline testable with throwaway configs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SentinelName is the default filename of the per-project identity file.
const SentinelName = ".projectid"

// Config holds all settings for the registry core and its collaborators.
type Config struct {
	// DBPath is the SQLite database file location.
	DBPath string `mapstructure:"db_path"`

	// ArtifactPath is the destination of the externally consumed projects
	// JSON file. Empty disables artifact synchronization.
	ArtifactPath string `mapstructure:"artifact_path"`

	// SentinelName overrides the identity file name (default ".projectid").
	SentinelName string `mapstructure:"sentinel_name"`

	// ToolsFile points at an optional TOML file declaring custom launchers.
	ToolsFile string `mapstructure:"tools_file"`

	LogDir string `mapstructure:"log_dir"`

	AI      AIConfig      `mapstructure:"ai"`
	Sampler SamplerConfig `mapstructure:"sampler"`
}

// AIConfig controls the metadata enrichment pipeline.
type AIConfig struct {
	// Enabled statically toggles enrichment. When false the remote service
	// is never contacted.
	Enabled bool `mapstructure:"enabled"`

	// APIKey is the Anthropic credential. Read from PM_AI_API_KEY or
	// ANTHROPIC_API_KEY. Absence short-circuits enrichment into "skipped".
	APIKey string `mapstructure:"api_key"`

	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SamplerConfig bounds the file sampling pass that feeds enrichment.
type SamplerConfig struct {
	// MaxFiles is the file-count ceiling for one sampling pass.
	MaxFiles int `mapstructure:"max_files"`

	// MaxFileBytes truncates individual files to this many bytes.
	MaxFileBytes int `mapstructure:"max_file_bytes"`

	// ExcludeDirs are directory names never descended into.
	ExcludeDirs []string `mapstructure:"exclude_dirs"`
}

// DefaultExcludeDirs are dependency, build and VCS-metadata directories that
// never contribute to enrichment samples.
var DefaultExcludeDirs = []string{
	"node_modules", "venv", ".git", "__pycache__",
	"dist", "build", "target", ".vscode",
	".idea", "vendor", "cache", ".next", ".jj",
}

// Load reads configuration from the given file (empty means the default
// location under the user config dir), applies environment overrides with the
// PM_ prefix, and returns the resolved Config.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, err
	}

	v.SetDefault("db_path", filepath.Join(dataDir, "projects.db"))
	v.SetDefault("artifact_path", defaultArtifactPath())
	v.SetDefault("sentinel_name", SentinelName)
	v.SetDefault("tools_file", "")
	v.SetDefault("log_dir", filepath.Join(dataDir, "logs"))

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.model", "claude-sonnet-4-5")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.timeout", 30*time.Second)

	v.SetDefault("sampler.max_files", 30)
	v.SetDefault("sampler.max_file_bytes", 10000)
	v.SetDefault("sampler.exclude_dirs", DefaultExcludeDirs)

	v.SetEnvPrefix("PM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about; the
	// credential has no default, so it needs an explicit binding.
	_ = v.BindEnv("ai.api_key", "PM_AI_API_KEY", "ANTHROPIC_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pm"))
		}
		// Missing default config file is fine; defaults apply.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// defaultDataDir returns the per-user pm data directory, creating it if needed.
func defaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	dir := filepath.Join(base, "pm")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	return dir, nil
}

// defaultArtifactPath points at the Project Manager extension's global
// storage, the third-party consumer of the generated artifact.
func defaultArtifactPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "Cursor", "User", "globalStorage",
		"alefragnani.project-manager", "projects.json")
}
