package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeDedupe()
	c.normalizeClassify()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" && c.Paths.InputDir != "" {
		c.Paths.OutputDir = filepath.Join(c.Paths.InputDir, defaultOutputSubdir)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BackupDir) == "" && c.Paths.InputDir != "" {
		c.Paths.BackupDir = filepath.Join(c.Paths.InputDir, defaultBackupSubdir)
	}
	if c.Paths.BackupDir, err = expandPath(strings.TrimSpace(c.Paths.BackupDir)); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		c.Paths.CachePath = defaultCachePath()
	}
	if c.Paths.CachePath, err = expandPath(c.Paths.CachePath); err != nil {
		return fmt.Errorf("paths.cache_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	c.Scan.Extensions = normalizeList(c.Scan.Extensions, func(v string) string {
		v = strings.ToLower(v)
		if !strings.HasPrefix(v, ".") {
			v = "." + v
		}
		return v
	})
	if len(c.Scan.Extensions) == 0 {
		c.Scan.Extensions = []string{".svg"}
	}
	c.Scan.ExcludeDirs = normalizeList(c.Scan.ExcludeDirs, nil)
	c.Scan.ExcludePatterns = normalizeList(c.Scan.ExcludePatterns, nil)
	c.Scan.IgnoreFile = strings.TrimSpace(c.Scan.IgnoreFile)
	if c.Scan.MaxFileBytes <= 0 {
		c.Scan.MaxFileBytes = defaultMaxFileBytes
	}
}

func (c *Config) normalizeDedupe() {
	if c.Dedupe.HashSize <= 0 {
		c.Dedupe.HashSize = defaultHashSize
	}
	if c.Dedupe.BucketAbove < 0 {
		c.Dedupe.BucketAbove = 0
	}
}

func (c *Config) normalizeClassify() {
	c.Classify.Provider = strings.ToLower(strings.TrimSpace(c.Classify.Provider))
	if c.Classify.Provider == "" {
		c.Classify.Provider = defaultProvider
	}
	c.Classify.CloudBackend = strings.ToLower(strings.TrimSpace(c.Classify.CloudBackend))
	if c.Classify.CloudBackend == "" {
		c.Classify.CloudBackend = defaultCloudBackend
	}
	c.Classify.Model = strings.TrimSpace(c.Classify.Model)
	if c.Classify.Model == "" {
		c.Classify.Model = defaultModelFor(c.Classify.Provider, c.Classify.CloudBackend)
	}
	c.Classify.BaseURL = strings.TrimRight(strings.TrimSpace(c.Classify.BaseURL), "/")
	c.Classify.APIKey = strings.TrimSpace(c.Classify.APIKey)

	switch c.Classify.Provider {
	case ProviderLocal:
		if c.Classify.BaseURL == "" {
			if host, ok := os.LookupEnv("OLLAMA_HOST"); ok && strings.TrimSpace(host) != "" {
				c.Classify.BaseURL = normalizeOllamaHost(host)
			} else {
				c.Classify.BaseURL = defaultLocalBaseURL
			}
		}
	case ProviderCloud:
		if c.Classify.APIKey == "" {
			c.Classify.APIKey = lookupAPIKey(c.Classify.CloudBackend)
		}
	}

	c.Classify.Categories = normalizeList(c.Classify.Categories, strings.ToLower)
	c.Classify.DefaultCategory = strings.ToLower(strings.TrimSpace(c.Classify.DefaultCategory))
	if c.Classify.DefaultCategory == "" {
		c.Classify.DefaultCategory = defaultCategory
	}
	if len(c.Classify.Categories) > 0 && !containsString(c.Classify.Categories, c.Classify.DefaultCategory) {
		c.Classify.Categories = append(c.Classify.Categories, c.Classify.DefaultCategory)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}

func lookupAPIKey(backend string) string {
	var names []string
	switch backend {
	case BackendAnthropic:
		names = []string{"ANTHROPIC_API_KEY"}
	case BackendGemini:
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		names = []string{"OPENAI_API_KEY"}
	}
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func normalizeOllamaHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}

// normalizeList trims, optionally transforms, drops blanks, and de-duplicates
// while preserving order.
func normalizeList(values []string, transform func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if transform != nil {
			value = transform(value)
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
