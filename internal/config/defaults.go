package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	ProviderCloud = "cloud"
	ProviderLocal = "local"

	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendGemini    = "gemini"
)

const (
	defaultLogDir              = "~/.local/share/iconsort/logs"
	defaultOutputSubdir        = "output"
	defaultBackupSubdir        = "backup"
	defaultIgnoreFile          = ".iconignore"
	defaultMaxFileBytes        = 2 << 20
	defaultSimilarityThreshold = 0.8
	defaultHashSize            = 64
	defaultBucketAbove         = 10000
	defaultProvider            = ProviderLocal
	defaultCloudBackend        = BackendOpenAI
	defaultLocalBaseURL        = "http://localhost:11434"
	defaultLocalModel          = "llava"
	defaultOpenAIModel         = "gpt-4o-mini"
	defaultAnthropicModel      = "claude-3-5-haiku-latest"
	defaultGeminiModel         = "gemini-1.5-flash"
	defaultMaxConcurrent       = 2
	defaultTimeoutMS           = 60000
	defaultRetryAttempts       = 3
	defaultBatchDelayMS        = 500
	defaultStaggerMS           = 100
	defaultImageSize           = 512
	defaultCategory            = "general"
	defaultTemperature         = 0.1
	defaultTopP                = 0.9
	defaultMaxTokens           = 300
	defaultWatchDebounceMS     = 2000
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogMaxSizeMB        = 10
	defaultLogMaxBackups       = 5
)

var defaultCategories = []string{
	"navigation",
	"action",
	"communication",
	"media",
	"file",
	"editor",
	"social",
	"commerce",
	"device",
	"alert",
	"user",
	"maps",
	"weather",
	"data",
	"security",
	"general",
}

var defaultExcludeDirs = []string{"backup", "output", "duplicates", ".git", "node_modules"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			CachePath: defaultCachePath(),
		},
		Scan: Scan{
			Extensions:   []string{".svg"},
			ExcludeDirs:  append([]string(nil), defaultExcludeDirs...),
			IgnoreFile:   defaultIgnoreFile,
			MaxFileBytes: defaultMaxFileBytes,
		},
		Dedupe: Dedupe{
			SimilarityThreshold: defaultSimilarityThreshold,
			HashSize:            defaultHashSize,
			BucketAbove:         defaultBucketAbove,
		},
		Classify: Classify{
			Provider:        defaultProvider,
			CloudBackend:    defaultCloudBackend,
			MaxConcurrent:   defaultMaxConcurrent,
			TimeoutMS:       defaultTimeoutMS,
			RetryAttempts:   defaultRetryAttempts,
			BatchDelayMS:    defaultBatchDelayMS,
			StaggerMS:       defaultStaggerMS,
			ImageSize:       defaultImageSize,
			Categories:      append([]string(nil), defaultCategories...),
			DefaultCategory: defaultCategory,
			Temperature:     defaultTemperature,
			TopP:            defaultTopP,
			MaxTokens:       defaultMaxTokens,
			ForceJSON:       true,
		},
		Cache: Cache{
			Enabled: true,
		},
		Watch: Watch{
			DebounceMS: defaultWatchDebounceMS,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}

func defaultCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "iconsort", "classifications.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/iconsort/classifications.db"
	}
	return filepath.Join(home, ".cache", "iconsort", "classifications.db")
}

func defaultModelFor(provider, backend string) string {
	if provider == ProviderLocal {
		return defaultLocalModel
	}
	switch backend {
	case BackendAnthropic:
		return defaultAnthropicModel
	case BackendGemini:
		return defaultGeminiModel
	default:
		return defaultOpenAIModel
	}
}
