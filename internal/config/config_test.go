package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.EnergyPlus.InstallDir == "" {
		t.Error("expected a default install dir")
	}
	if config.EnergyPlus.Version != "" {
		t.Errorf("expected empty Version (latest), got '%s'", config.EnergyPlus.Version)
	}

	// Cache defaults
	if !config.Cache.Enabled {
		t.Error("expected Cache.Enabled to be true by default")
	}
	if config.Cache.Root == "" {
		t.Error("expected a default cache root")
	}

	// Run defaults
	if !config.Run.ExpandObjects || !config.Run.EPMacro || !config.Run.ReadVars {
		t.Error("expected expand_objects, epmacro and readvars on by default")
	}
	if config.Run.Annual || config.Run.DesignDay {
		t.Error("expected annual and design_day off by default")
	}
	if config.Run.OutputSuffix != "L" {
		t.Errorf("expected OutputSuffix 'L', got '%s'", config.Run.OutputSuffix)
	}
	if config.Run.Verbose != "v" {
		t.Errorf("expected Verbose 'v', got '%s'", config.Run.Verbose)
	}
	if config.Run.Workers != 1 {
		t.Errorf("expected Workers 1, got %d", config.Run.Workers)
	}

	// Logging defaults
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
energyplus:
  install_dir: /opt/energyplus
  version: 9-2-0

cache:
  root: /var/cache/eplusrun
  enabled: false

run:
  annual: true
  output_suffix: C
  workers: 4

logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.EnergyPlus.InstallDir != "/opt/energyplus" {
		t.Errorf("expected InstallDir '/opt/energyplus', got '%s'", config.EnergyPlus.InstallDir)
	}
	if config.EnergyPlus.Version != "9-2-0" {
		t.Errorf("expected Version '9-2-0', got '%s'", config.EnergyPlus.Version)
	}
	if config.Cache.Root != "/var/cache/eplusrun" {
		t.Errorf("expected cache root '/var/cache/eplusrun', got '%s'", config.Cache.Root)
	}
	if config.Cache.Enabled {
		t.Error("expected Cache.Enabled false")
	}
	if !config.Run.Annual {
		t.Error("expected Run.Annual true")
	}
	if config.Run.OutputSuffix != "C" {
		t.Errorf("expected OutputSuffix 'C', got '%s'", config.Run.OutputSuffix)
	}
	if config.Run.Workers != 4 {
		t.Errorf("expected Workers 4, got %d", config.Run.Workers)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}

	// Fields the file does not mention keep their defaults.
	if !config.Run.ReadVars {
		t.Error("expected ReadVars to keep its default")
	}
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	t.Setenv("EPLUS_TEST_BASE", "/srv/eplus")

	configContent := `
energyplus:
  install_dir: ${EPLUS_TEST_BASE}/installs
cache:
  root: ${EPLUS_TEST_BASE}/cache
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.EnergyPlus.InstallDir != "/srv/eplus/installs" {
		t.Errorf("expected expanded InstallDir, got '%s'", config.EnergyPlus.InstallDir)
	}
	if config.Cache.Root != "/srv/eplus/cache" {
		t.Errorf("expected expanded cache root, got '%s'", config.Cache.Root)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("cache: [not a mapping"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("EPLUSRUN_INSTALL_DIR", "/env/installs")
	t.Setenv("EPLUSRUN_EP_VERSION", "9.1.0")
	t.Setenv("EPLUSRUN_CACHE_ROOT", "/env/cache")
	t.Setenv("EPLUSRUN_CACHE_ENABLED", "false")
	t.Setenv("EPLUSRUN_WORKERS", "8")
	t.Setenv("EPLUSRUN_LOG_LEVEL", "trace")

	config := Default()
	applyEnvOverrides(config)

	if config.EnergyPlus.InstallDir != "/env/installs" {
		t.Errorf("InstallDir = '%s'", config.EnergyPlus.InstallDir)
	}
	if config.EnergyPlus.Version != "9.1.0" {
		t.Errorf("Version = '%s'", config.EnergyPlus.Version)
	}
	if config.Cache.Root != "/env/cache" {
		t.Errorf("Cache.Root = '%s'", config.Cache.Root)
	}
	if config.Cache.Enabled {
		t.Error("EPLUSRUN_CACHE_ENABLED=false should disable the cache")
	}
	if config.Run.Workers != 8 {
		t.Errorf("Workers = %d", config.Run.Workers)
	}
	if config.Logging.Level != "trace" {
		t.Errorf("Logging.Level = '%s'", config.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing install dir", func(c *Config) { c.EnergyPlus.InstallDir = "" }, "install_dir"},
		{"cache enabled without root", func(c *Config) { c.Cache.Root = "" }, "cache.root"},
		{"cache disabled without root", func(c *Config) { c.Cache.Enabled = false; c.Cache.Root = "" }, ""},
		{"zero workers", func(c *Config) { c.Run.Workers = 0 }, "workers"},
		{"bad output suffix", func(c *Config) { c.Run.OutputSuffix = "X" }, "output_suffix"},
		{"bad verbose", func(c *Config) { c.Run.Verbose = "loud" }, "verbose"},
		{"quiet verbose ok", func(c *Config) { c.Run.Verbose = "q" }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, "log level"},
		{"empty log level ok", func(c *Config) { c.Logging.Level = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
