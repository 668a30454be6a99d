package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ConfigDir is the per-workspace directory holding config.json
const ConfigDir = ".archlens"

// EnvPrefix prefixes every environment override, e.g. ARCHLENS_HEATMAP_WINDOWDAYS
const EnvPrefix = "ARCHLENS"

// Config represents the complete archlens configuration (v1 schema)
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Workspace    WorkspaceConfig    `json:"workspace" mapstructure:"workspace"`
	Imports      ImportsConfig      `json:"imports" mapstructure:"imports"`
	Architecture ArchitectureConfig `json:"architecture" mapstructure:"architecture"`
	Heatmap      HeatmapConfig      `json:"heatmap" mapstructure:"heatmap"`
	Scip         ScipConfig         `json:"scip" mapstructure:"scip"`
	Watcher      WatcherConfig      `json:"watcher" mapstructure:"watcher"`
	Logging      LoggingConfig      `json:"logging" mapstructure:"logging"`
}

// WorkspaceConfig describes the folders under analysis and the file walker limits
type WorkspaceConfig struct {
	Folders  []string `json:"folders" mapstructure:"folders"`
	Exclude  []string `json:"exclude" mapstructure:"exclude"`
	MaxFiles int      `json:"maxFiles" mapstructure:"maxFiles"`
}

// ImportsConfig contains import graph settings
type ImportsConfig struct {
	Extensions         []string `json:"extensions" mapstructure:"extensions"`
	IgnoredSpecifiers  []string `json:"ignoredSpecifiers" mapstructure:"ignoredSpecifiers"`
	MaxResolutionCache int      `json:"maxResolutionCache" mapstructure:"maxResolutionCache"`
}

// ArchitectureConfig contains architecture analysis settings
type ArchitectureConfig struct {
	CacheTtlSeconds     int `json:"cacheTtlSeconds" mapstructure:"cacheTtlSeconds"`
	MaxWorkspaceSymbols int `json:"maxWorkspaceSymbols" mapstructure:"maxWorkspaceSymbols"`
	MaxDatasetsPerApp   int `json:"maxDatasetsPerApp" mapstructure:"maxDatasetsPerApp"`
	SearchMaxResults    int `json:"searchMaxResults" mapstructure:"searchMaxResults"`
}

// HeatmapConfig contains git co-change heatmap settings
type HeatmapConfig struct {
	WindowDays        int     `json:"windowDays" mapstructure:"windowDays"`
	Granularity       string  `json:"granularity" mapstructure:"granularity"`
	MaxFilesPerCommit int     `json:"maxFilesPerCommit" mapstructure:"maxFilesPerCommit"`
	MaxModules        int     `json:"maxModules" mapstructure:"maxModules"`
	MaxCells          int     `json:"maxCells" mapstructure:"maxCells"`
	HalfLifeDays      float64 `json:"halfLifeDays" mapstructure:"halfLifeDays"`
	GitTimeoutMs      int     `json:"gitTimeoutMs" mapstructure:"gitTimeoutMs"`
}

// ScipConfig contains SCIP symbol index configuration
type ScipConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	IndexPath string `json:"indexPath" mapstructure:"indexPath"`
}

// WatcherConfig contains watch mode configuration
type WatcherConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	DebounceMs int  `json:"debounceMs" mapstructure:"debounceMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Workspace: WorkspaceConfig{
			Folders: []string{"."},
			Exclude: []string{
				"**/node_modules/**",
				"**/bower_components/**",
				"**/.git/**",
				"**/dist/**",
				"**/out/**",
				"**/build/**",
				"**/vendor/**",
			},
			MaxFiles: 5000,
		},
		Imports: ImportsConfig{
			Extensions:         []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"},
			IgnoredSpecifiers:  []string{},
			MaxResolutionCache: 4096,
		},
		Architecture: ArchitectureConfig{
			CacheTtlSeconds:     300,
			MaxWorkspaceSymbols: 120,
			MaxDatasetsPerApp:   150,
			SearchMaxResults:    2000,
		},
		Heatmap: HeatmapConfig{
			WindowDays:        90,
			Granularity:       "topLevel",
			MaxFilesPerCommit: 40,
			MaxModules:        120,
			MaxCells:          2500,
			HalfLifeDays:      90,
			GitTimeoutMs:      30000,
		},
		Scip: ScipConfig{
			Enabled:   true,
			IndexPath: ".scip/index.scip",
		},
		Watcher: WatcherConfig{
			Enabled:    true,
			DebounceMs: 1500,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.archlens/config.json.
// A .env file in root is loaded first so ARCHLENS_* overrides can live there.
func LoadConfig(root string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &ConfigError{Field: ".env", Message: err.Error()}
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ConfigDir))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key with viper so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("workspace.folders", d.Workspace.Folders)
	v.SetDefault("workspace.exclude", d.Workspace.Exclude)
	v.SetDefault("workspace.maxFiles", d.Workspace.MaxFiles)

	v.SetDefault("imports.extensions", d.Imports.Extensions)
	v.SetDefault("imports.ignoredSpecifiers", d.Imports.IgnoredSpecifiers)
	v.SetDefault("imports.maxResolutionCache", d.Imports.MaxResolutionCache)

	v.SetDefault("architecture.cacheTtlSeconds", d.Architecture.CacheTtlSeconds)
	v.SetDefault("architecture.maxWorkspaceSymbols", d.Architecture.MaxWorkspaceSymbols)
	v.SetDefault("architecture.maxDatasetsPerApp", d.Architecture.MaxDatasetsPerApp)
	v.SetDefault("architecture.searchMaxResults", d.Architecture.SearchMaxResults)

	v.SetDefault("heatmap.windowDays", d.Heatmap.WindowDays)
	v.SetDefault("heatmap.granularity", d.Heatmap.Granularity)
	v.SetDefault("heatmap.maxFilesPerCommit", d.Heatmap.MaxFilesPerCommit)
	v.SetDefault("heatmap.maxModules", d.Heatmap.MaxModules)
	v.SetDefault("heatmap.maxCells", d.Heatmap.MaxCells)
	v.SetDefault("heatmap.halfLifeDays", d.Heatmap.HalfLifeDays)
	v.SetDefault("heatmap.gitTimeoutMs", d.Heatmap.GitTimeoutMs)

	v.SetDefault("scip.enabled", d.Scip.Enabled)
	v.SetDefault("scip.indexPath", d.Scip.IndexPath)

	v.SetDefault("watcher.enabled", d.Watcher.Enabled)
	v.SetDefault("watcher.debounceMs", d.Watcher.DebounceMs)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Save writes the configuration to <root>/.archlens/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if len(c.Imports.Extensions) == 0 {
		return &ConfigError{Field: "imports.extensions", Message: "at least one source extension is required"}
	}
	for _, ext := range c.Imports.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return &ConfigError{Field: "imports.extensions", Message: "extension " + ext + " must start with '.'"}
		}
	}
	if c.Architecture.CacheTtlSeconds < 0 {
		return &ConfigError{Field: "architecture.cacheTtlSeconds", Message: "must not be negative"}
	}
	if c.Heatmap.WindowDays < 1 || c.Heatmap.WindowDays > 365 {
		return &ConfigError{Field: "heatmap.windowDays", Message: "must be between 1 and 365"}
	}
	switch c.Heatmap.Granularity {
	case "topLevel", "twoLevel", "file":
	default:
		return &ConfigError{Field: "heatmap.granularity", Message: "must be one of topLevel, twoLevel, file"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
