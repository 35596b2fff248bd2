package testsupport

import (
	"path/filepath"
	"testing"

	"iconsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The input root is <base>/icons; outputs, backups, logs, and the cache live
// beside it so the scanner never sees them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "icons")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backup")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CachePath = filepath.Join(base, "cache", "classifications.db")
	cfgVal.Classify.Model = "test-model"
	cfgVal.Classify.BaseURL = "http://127.0.0.1:0"
	cfgVal.Classify.BatchDelayMS = 0
	cfgVal.Classify.StaggerMS = 0
	cfgVal.Classify.TimeoutMS = 1000
	cfgVal.Cache.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCloudBackend switches the config to a cloud backend with a dummy key.
func WithCloudBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classify.Provider = config.ProviderCloud
		b.cfg.Classify.CloudBackend = backend
		b.cfg.Classify.APIKey = "test-key"
	}
}

// WithCache enables the classification cache under the temp dir.
func WithCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = true
	}
}

// WithDryRun sets the dry-run switch.
func WithDryRun(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.DryRun = enabled
	}
}

// WithConcurrency sets the dispatch width.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classify.MaxConcurrent = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
