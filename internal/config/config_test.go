package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Architecture.CacheTtlSeconds != 300 {
		t.Errorf("CacheTtlSeconds = %d, want 300", cfg.Architecture.CacheTtlSeconds)
	}
	if cfg.Architecture.MaxDatasetsPerApp != 150 {
		t.Errorf("MaxDatasetsPerApp = %d, want 150", cfg.Architecture.MaxDatasetsPerApp)
	}
	if cfg.Architecture.MaxWorkspaceSymbols != 120 {
		t.Errorf("MaxWorkspaceSymbols = %d, want 120", cfg.Architecture.MaxWorkspaceSymbols)
	}
	if cfg.Heatmap.MaxFilesPerCommit != 40 || cfg.Heatmap.MaxModules != 120 || cfg.Heatmap.MaxCells != 2500 {
		t.Errorf("unexpected heatmap limits: %+v", cfg.Heatmap)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{"default", func(*Config) {}, "", false},
		{"bad version", func(c *Config) { c.Version = 7 }, "version", true},
		{"no extensions", func(c *Config) { c.Imports.Extensions = nil }, "imports.extensions", true},
		{"extension without dot", func(c *Config) { c.Imports.Extensions = []string{"ts"} }, "imports.extensions", true},
		{"window too large", func(c *Config) { c.Heatmap.WindowDays = 400 }, "heatmap.windowDays", true},
		{"bad granularity", func(c *Config) { c.Heatmap.Granularity = "module" }, "heatmap.granularity", true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				cfgErr, ok := err.(*ConfigError)
				if !ok {
					t.Fatalf("expected *ConfigError, got %T", err)
				}
				if cfgErr.Field != tt.field {
					t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
				}
			}
		})
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Heatmap.WindowDays != 90 {
		t.Errorf("WindowDays = %d, want 90", cfg.Heatmap.WindowDays)
	}
	if cfg.Logging.Format != "human" {
		t.Errorf("Logging.Format = %q, want human", cfg.Logging.Format)
	}
}

func TestLoadConfig_FileAndSave(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Heatmap.Granularity = "twoLevel"
	cfg.Architecture.MaxWorkspaceSymbols = 40
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ConfigDir, "config.json")); err != nil {
		t.Fatalf("config.json not written: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Heatmap.Granularity != "twoLevel" {
		t.Errorf("Granularity = %q, want twoLevel", loaded.Heatmap.Granularity)
	}
	if loaded.Architecture.MaxWorkspaceSymbols != 40 {
		t.Errorf("MaxWorkspaceSymbols = %d, want 40", loaded.Architecture.MaxWorkspaceSymbols)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ARCHLENS_HEATMAP_WINDOWDAYS", "30")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Heatmap.WindowDays != 30 {
		t.Errorf("WindowDays = %d, want 30 from environment", cfg.Heatmap.WindowDays)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("ARCHLENS_LOGGING_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("ARCHLENS_LOGGING_LEVEL") })

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug from .env", cfg.Logging.Level)
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "version", Message: "unsupported"}
	if err.Error() != "config error in field 'version': unsupported" {
		t.Errorf("Error() = %q", err.Error())
	}
}
