package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDataDir is the base directory for hutch state
	DefaultDataDir = "/var/lib/hutch"

	// DefaultTemplateDir is where packaged templates are placed. The
	// default matches the Proxmox template cache location.
	DefaultTemplateDir = "/var/lib/vz/template/cache"

	// DefaultCommandTimeout is the timeout applied to external tool
	// invocations when the config does not override it (seconds).
	DefaultCommandTimeout = 120
)

// Config holds the engine configuration. All fields have working defaults
// so an empty config file (or none at all) produces a usable engine.
type Config struct {
	// DataDir holds the identity mapping, per-container state records and
	// conversion work directories.
	DataDir string `yaml:"data_dir"`

	// TemplateDir is where packaged templates are published.
	TemplateDir string `yaml:"template_dir"`

	// AllowedBundlePrefixes is the allow-list of canonical path prefixes a
	// bundle reference may resolve under. Empty means DataDir plus /tmp.
	// TemplateDir is always allowed in addition.
	AllowedBundlePrefixes []string `yaml:"allowed_bundle_prefixes"`

	// ZFSPool is the pool used for per-container datasets. Empty disables
	// storage provisioning entirely.
	ZFSPool string `yaml:"zfs_pool"`

	// DatasetPrefix is the dataset path under the pool that holds
	// per-container datasets, e.g. "hutch" for rpool/hutch/subvol-<vmid>.
	DatasetPrefix string `yaml:"dataset_prefix"`

	// External tool binaries
	PctBinary   string `yaml:"pct_binary"`
	ZFSBinary   string `yaml:"zfs_binary"`
	ZpoolBinary string `yaml:"zpool_binary"`
	TarBinary   string `yaml:"tar_binary"`

	// CommandTimeoutSeconds bounds every external tool invocation.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds"`

	// Container creation defaults
	Unprivileged bool   `yaml:"unprivileged"`
	Bridge       string `yaml:"bridge"`

	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`
}

// Default returns a Config populated with working defaults
func Default() *Config {
	return &Config{
		DataDir:               DefaultDataDir,
		TemplateDir:           DefaultTemplateDir,
		ZFSPool:               "",
		DatasetPrefix:         "hutch",
		PctBinary:             "pct",
		ZFSBinary:             "zfs",
		ZpoolBinary:           "zpool",
		TarBinary:             "tar",
		CommandTimeoutSeconds: DefaultCommandTimeout,
		Unprivileged:          true,
		Bridge:                "vmbr0",
		LogLevel:              "info",
	}
}

// Load reads a YAML config file and merges it over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if !filepath.IsAbs(c.DataDir) {
		return fmt.Errorf("data_dir must be absolute, got %q", c.DataDir)
	}
	if c.TemplateDir == "" {
		return fmt.Errorf("template_dir must not be empty")
	}
	if c.CommandTimeoutSeconds <= 0 {
		return fmt.Errorf("command_timeout_seconds must be positive, got %d", c.CommandTimeoutSeconds)
	}
	for _, p := range c.AllowedBundlePrefixes {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("allowed bundle prefix must be absolute, got %q", p)
		}
	}
	return nil
}

// CommandTimeout returns the external tool timeout as a duration
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

// BundlePrefixes returns the effective bundle allow-list. The template
// directory is always part of it so published template archives stay
// usable as references regardless of the configured prefixes.
func (c *Config) BundlePrefixes() []string {
	prefixes := c.AllowedBundlePrefixes
	if len(prefixes) == 0 {
		prefixes = []string{c.DataDir, "/tmp"}
	}
	out := make([]string, 0, len(prefixes)+1)
	out = append(out, prefixes...)
	return append(out, c.TemplateDir)
}

// MappingPath returns the path of the persisted identity mapping
func (c *Config) MappingPath() string {
	return filepath.Join(c.DataDir, "mapping.json")
}

// StateDir returns the directory holding per-container state records
func (c *Config) StateDir() string {
	return filepath.Join(c.DataDir, "state")
}

// WorkDir returns the directory used for rootfs conversion
func (c *Config) WorkDir() string {
	return filepath.Join(c.DataDir, "work")
}

// TemplateDBPath returns the path of the template cache database
func (c *Config) TemplateDBPath() string {
	return filepath.Join(c.DataDir, "templates.db")
}
