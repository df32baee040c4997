package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultTemplateDir, cfg.TemplateDir)
	assert.Equal(t, "pct", cfg.PctBinary)
	assert.Equal(t, "vmbr0", cfg.Bridge)
	assert.True(t, cfg.Unprivileged)
	assert.Equal(t, 120*time.Second, cfg.CommandTimeout())
	require.NoError(t, cfg.Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hutch.yaml")
	data := `
data_dir: /srv/hutch
zfs_pool: rpool
command_timeout_seconds: 30
allowed_bundle_prefixes:
  - /srv/bundles
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/hutch", cfg.DataDir)
	assert.Equal(t, "rpool", cfg.ZFSPool)
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout())
	assert.Equal(t, []string{"/srv/bundles", DefaultTemplateDir}, cfg.BundlePrefixes())
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched fields keep their defaults.
	assert.Equal(t, "tar", cfg.TarBinary)
	assert.Equal(t, DefaultTemplateDir, cfg.TemplateDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/hutch.yaml")
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hutch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"relative data dir", func(c *Config) { c.DataDir = "var/hutch" }, true},
		{"empty template dir", func(c *Config) { c.TemplateDir = "" }, true},
		{"zero timeout", func(c *Config) { c.CommandTimeoutSeconds = 0 }, true},
		{"relative bundle prefix", func(c *Config) { c.AllowedBundlePrefixes = []string{"bundles"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBundlePrefixesDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{cfg.DataDir, "/tmp", cfg.TemplateDir}, cfg.BundlePrefixes())
}

func TestBundlePrefixesAlwaysIncludeTemplateDir(t *testing.T) {
	cfg := Default()
	cfg.TemplateDir = "/srv/templates"
	cfg.AllowedBundlePrefixes = []string{"/srv/bundles"}

	assert.Contains(t, cfg.BundlePrefixes(), "/srv/templates")
	// The configured list itself is not mutated
	assert.Equal(t, []string{"/srv/bundles"}, cfg.AllowedBundlePrefixes)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/srv/hutch"

	assert.Equal(t, "/srv/hutch/mapping.json", cfg.MappingPath())
	assert.Equal(t, "/srv/hutch/state", cfg.StateDir())
	assert.Equal(t, "/srv/hutch/work", cfg.WorkDir())
	assert.Equal(t, "/srv/hutch/templates.db", cfg.TemplateDBPath())
}
