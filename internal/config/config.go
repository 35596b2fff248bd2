package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"iconsort/internal/textutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input, output, and bookkeeping directories.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	BackupDir string `toml:"backup_dir"`
	LogDir    string `toml:"log_dir"`
	CachePath string `toml:"cache_path"`
}

// Scan controls which files under the input directory become items.
type Scan struct {
	Extensions      []string `toml:"extensions"`
	ExcludeDirs     []string `toml:"exclude_dirs"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	IgnoreFile      string   `toml:"ignore_file"`
	MaxFileBytes    int64    `toml:"max_file_bytes" validate:"gt=0"`
}

// Dedupe contains duplicate detection settings.
type Dedupe struct {
	// SimilarityThreshold is the perceptual similarity at or above which two
	// icons are grouped by the near-duplicate pass. Values above 1 disable it.
	SimilarityThreshold float64 `toml:"similarity_threshold" validate:"gte=0"`
	// HashSize is the raster edge rendered for near-duplicate ink signatures.
	HashSize int `toml:"hash_size" validate:"min=16,max=512"`
	// BucketAbove enables coarse size bucketing for the near pass once the
	// batch exceeds this many items.
	BucketAbove int `toml:"bucket_above" validate:"gte=0"`
}

// Classify contains provider selection and request tuning.
type Classify struct {
	Provider        string   `toml:"provider" validate:"oneof=cloud local"`
	CloudBackend    string   `toml:"cloud_backend" validate:"oneof=openai anthropic gemini"`
	Model           string   `toml:"model" validate:"required"`
	BaseURL         string   `toml:"base_url"`
	APIKey          string   `toml:"api_key"`
	MaxConcurrent   int      `toml:"max_concurrent" validate:"min=1,max=8"`
	TimeoutMS       int      `toml:"timeout_ms" validate:"min=1000"`
	RetryAttempts   int      `toml:"retry_attempts" validate:"min=1,max=10"`
	BatchDelayMS    int      `toml:"batch_delay_ms" validate:"gte=0"`
	StaggerMS       int      `toml:"stagger_ms" validate:"gte=0"`
	ImageSize       int      `toml:"image_size" validate:"min=64,max=2048"`
	Categories      []string `toml:"categories" validate:"min=1,dive,required"`
	DefaultCategory string   `toml:"default_category" validate:"required"`
	Temperature     float64  `toml:"temperature" validate:"gte=0,lte=2"`
	TopP            float64  `toml:"top_p" validate:"gte=0,lte=1"`
	MaxTokens       int      `toml:"max_tokens" validate:"min=16"`
	ForceJSON       bool     `toml:"force_json"`
}

// Run contains per-invocation switches that are usually set from flags.
type Run struct {
	Backup bool `toml:"backup"`
	DryRun bool `toml:"dry_run"`
}

// Cache contains configuration for the classification cache.
type Cache struct {
	Enabled bool `toml:"enabled"`
}

// Watch contains configuration for watch mode.
type Watch struct {
	DebounceMS int `toml:"debounce_ms" validate:"min=50"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Config encapsulates all configuration values for iconsort.
//
// Configuration sections by subsystem:
//   - Paths: input tree, output tree, backups, logs, cache database
//   - Scan: file discovery filters
//   - Dedupe: duplicate detection thresholds
//   - Classify: AI provider selection, pacing, retries, and taxonomy
//   - Run: backup and dry-run switches
//   - Cache: classification cache toggle
//   - Watch: debounce for watch mode
//   - Logging: log format, level, and rotation
//
// A Config is built once by Load (or Default plus Apply) and treated as
// read-only afterwards; components copy the sections they need.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Scan     Scan     `toml:"scan"`
	Dedupe   Dedupe   `toml:"dedupe"`
	Classify Classify `toml:"classify"`
	Run      Run      `toml:"run"`
	Cache    Cache    `toml:"cache"`
	Watch    Watch    `toml:"watch"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/iconsort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	// A .env file in the working directory may carry API keys; absence is fine.
	_ = godotenv.Load()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Overrides holds command-line values that take precedence over the file.
// Nil pointers leave the loaded value untouched.
type Overrides struct {
	InputDir            *string
	OutputDir           *string
	Backup              *bool
	DryRun              *bool
	SimilarityThreshold *float64
	MaxConcurrent       *int
	TimeoutMS           *int
	RetryAttempts       *int
	Provider            *string
	CloudBackend        *string
	Model               *string
	BaseURL             *string
}

// Apply returns a copy of c with the overrides applied, re-normalized and
// validated. The receiver is not modified.
func (c Config) Apply(o Overrides) (*Config, error) {
	next := c
	next.Scan.Extensions = append([]string(nil), c.Scan.Extensions...)
	next.Scan.ExcludeDirs = append([]string(nil), c.Scan.ExcludeDirs...)
	next.Scan.ExcludePatterns = append([]string(nil), c.Scan.ExcludePatterns...)
	next.Classify.Categories = append([]string(nil), c.Classify.Categories...)

	if o.InputDir != nil {
		next.Paths.InputDir = *o.InputDir
	}
	if o.OutputDir != nil {
		next.Paths.OutputDir = *o.OutputDir
	}
	if o.Backup != nil {
		next.Run.Backup = *o.Backup
	}
	if o.DryRun != nil {
		next.Run.DryRun = *o.DryRun
	}
	if o.SimilarityThreshold != nil {
		next.Dedupe.SimilarityThreshold = *o.SimilarityThreshold
	}
	if o.MaxConcurrent != nil {
		next.Classify.MaxConcurrent = *o.MaxConcurrent
	}
	if o.TimeoutMS != nil {
		next.Classify.TimeoutMS = *o.TimeoutMS
	}
	if o.RetryAttempts != nil {
		next.Classify.RetryAttempts = *o.RetryAttempts
	}
	providerChanged := false
	if o.Provider != nil && !strings.EqualFold(strings.TrimSpace(*o.Provider), next.Classify.Provider) {
		next.Classify.Provider = *o.Provider
		providerChanged = true
	}
	if o.CloudBackend != nil && !strings.EqualFold(strings.TrimSpace(*o.CloudBackend), next.Classify.CloudBackend) {
		next.Classify.CloudBackend = *o.CloudBackend
		providerChanged = true
	}
	if providerChanged {
		// Model, URL, and key defaults are per backend; re-derive them.
		next.Classify.Model = ""
		next.Classify.BaseURL = ""
		next.Classify.APIKey = ""
	}
	if o.Model != nil {
		next.Classify.Model = *o.Model
	}
	if o.BaseURL != nil {
		next.Classify.BaseURL = *o.BaseURL
	}

	if err := next.normalize(); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("iconsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a non-dry run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Paths.CachePath) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Paths.CachePath), 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	return nil
}

// ProviderID identifies the provider and model pair, e.g. "local/llava:13b".
func (c *Config) ProviderID() string {
	provider := c.Classify.Provider
	if provider == ProviderCloud {
		provider = c.Classify.CloudBackend
	}
	return provider + "/" + c.Classify.Model
}

// ModelSlug is the filesystem-safe form of ProviderID used to partition
// outputs. Distinct provider ids never share a slug.
func (c *Config) ModelSlug() string {
	return textutil.UniqueSlug(c.ProviderID())
}

// Timeout returns the per-call classification timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Classify.TimeoutMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
