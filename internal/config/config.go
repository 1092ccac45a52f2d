// Package config provides unified configuration loading for eplusrun.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains all eplusrun configuration settings.
type Config struct {
	// EnergyPlus locates the external simulator toolchain.
	EnergyPlus EnergyPlusConfig `json:"energyplus" yaml:"energyplus"`

	// Cache controls the on-disk result cache.
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Run holds default run settings applied to every model.
	Run RunConfig `json:"run" yaml:"run"`

	// Logging contains settings for operational and run logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// EnergyPlusConfig locates the simulator installations.
type EnergyPlusConfig struct {
	// InstallDir is the directory holding EnergyPlus install roots
	// (e.g. /usr/local with /usr/local/EnergyPlus-9-2-0 inside).
	InstallDir string `json:"install_dir" yaml:"install_dir"`

	// Version is the simulator version to run, dashed or dotted form.
	// Empty means the latest installed version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	// Root is the cache directory; one subdirectory per fingerprint.
	Root string `json:"root" yaml:"root"`

	// Enabled turns caching on. When false, run artifacts are discarded
	// after each call and every lookup misses.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// RunConfig holds the default run flags.
type RunConfig struct {
	Annual        bool   `json:"annual" yaml:"annual"`
	DesignDay     bool   `json:"design_day" yaml:"design_day"`
	ExpandObjects bool   `json:"expand_objects" yaml:"expand_objects"`
	EPMacro       bool   `json:"epmacro" yaml:"epmacro"`
	ReadVars      bool   `json:"readvars" yaml:"readvars"`
	OutputSuffix  string `json:"output_suffix" yaml:"output_suffix"`
	Verbose       string `json:"verbose" yaml:"verbose"`

	// Workers caps concurrent model runs when the CLI fans out.
	Workers int `json:"workers" yaml:"workers"`
}

// LoggingConfig configures eplusrun's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" additionally enables per-run JSONL event logs in the cache.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	installDir := "/usr/local"
	switch runtime.GOOS {
	case "darwin":
		installDir = "/Applications"
	case "windows":
		installDir = `C:\`
	}

	cacheRoot := ".eplusrun-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheRoot = filepath.Join(home, ".eplusrun", "cache")
	}

	return &Config{
		EnergyPlus: EnergyPlusConfig{
			InstallDir: installDir,
		},
		Cache: CacheConfig{
			Root:    cacheRoot,
			Enabled: true,
		},
		Run: RunConfig{
			ExpandObjects: true,
			EPMacro:       true,
			ReadVars:      true,
			OutputSuffix:  "L",
			Verbose:       "v",
			Workers:       1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment
// variables. Order: defaults -> ~/.eplusrun/config.yaml -> environment.
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".eplusrun", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.EnergyPlus.InstallDir = expandEnvVars(config.EnergyPlus.InstallDir)
	config.Cache.Root = expandEnvVars(config.Cache.Root)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.EnergyPlus.InstallDir == "" {
		return fmt.Errorf("energyplus.install_dir must be set")
	}

	if c.Cache.Enabled && c.Cache.Root == "" {
		return fmt.Errorf("cache.root must be set when caching is enabled")
	}

	if c.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be at least 1, got %d", c.Run.Workers)
	}

	validSuffixes := map[string]bool{"L": true, "C": true, "D": true}
	if c.Run.OutputSuffix != "" && !validSuffixes[c.Run.OutputSuffix] {
		return fmt.Errorf("invalid output_suffix: %s (valid: L, C, D)", c.Run.OutputSuffix)
	}

	validVerbose := map[string]bool{"": true, "v": true, "q": true}
	if !validVerbose[c.Run.Verbose] {
		return fmt.Errorf("invalid verbose level: %s (valid: v, q, or empty)", c.Run.Verbose)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("EPLUSRUN_INSTALL_DIR"); v != "" {
		config.EnergyPlus.InstallDir = v
	}

	if v := os.Getenv("EPLUSRUN_EP_VERSION"); v != "" {
		config.EnergyPlus.Version = v
	}

	if v := os.Getenv("EPLUSRUN_CACHE_ROOT"); v != "" {
		config.Cache.Root = v
	}

	if v := os.Getenv("EPLUSRUN_CACHE_ENABLED"); v != "" {
		config.Cache.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("EPLUSRUN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Run.Workers = n
		}
	}

	if v := os.Getenv("EPLUSRUN_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
