package inventory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"

	"iconsort/internal/config"
	"iconsort/internal/logging"
	"iconsort/internal/services"
)

// Options configures a Scanner.
type Options struct {
	Root            string
	Extensions      []string
	ExcludeDirs     []string
	ExcludePatterns []string
	// ExcludePaths are absolute directories pruned regardless of name, such
	// as an output tree nested inside the input root.
	ExcludePaths []string
	IgnoreFile   string
	MaxFileBytes int64
}

// OptionsFromConfig builds scanner options from the scan and path sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:            cfg.Paths.InputDir,
		Extensions:      append([]string(nil), cfg.Scan.Extensions...),
		ExcludeDirs:     append([]string(nil), cfg.Scan.ExcludeDirs...),
		ExcludePatterns: append([]string(nil), cfg.Scan.ExcludePatterns...),
		ExcludePaths:    []string{cfg.Paths.OutputDir, cfg.Paths.BackupDir},
		IgnoreFile:      cfg.Scan.IgnoreFile,
		MaxFileBytes:    cfg.Scan.MaxFileBytes,
	}
}

// Skipped records a file that matched the filters but could not become an Item.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the outcome of a scan.
type Result struct {
	Items   []Item
	Skipped []Skipped
}

// Scanner walks an input root and loads matching files.
type Scanner struct {
	opts       Options
	extensions map[string]struct{}
	excludeDir map[string]struct{}
	excludeAbs map[string]struct{}
	ignore     gitignore.GitIgnore
	logger     *slog.Logger
}

// NewScanner validates options and loads the ignore file when present.
func NewScanner(opts Options, logger *slog.Logger) (*Scanner, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "scanning", "validate root", "input directory is not set", nil)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scanning", "resolve root", "invalid input directory", err)
	}
	opts.Root = absRoot

	for _, pattern := range opts.ExcludePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, services.Wrap(services.ErrConfiguration, "scanning", "validate pattern",
				fmt.Sprintf("invalid exclude pattern %q", pattern), nil)
		}
	}

	s := &Scanner{
		opts:       opts,
		extensions: toSet(opts.Extensions, strings.ToLower),
		excludeDir: toSet(opts.ExcludeDirs, strings.ToLower),
		excludeAbs: make(map[string]struct{}),
		logger:     logging.NewComponentLogger(logger, "scanner"),
	}
	if len(s.extensions) == 0 {
		s.extensions[".svg"] = struct{}{}
	}
	for _, p := range opts.ExcludePaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil && abs != absRoot {
			s.excludeAbs[abs] = struct{}{}
		}
	}
	if name := strings.TrimSpace(opts.IgnoreFile); name != "" {
		s.ignore = loadIgnoreFile(filepath.Join(absRoot, name), absRoot)
	}
	return s, nil
}

// Root returns the absolute scan root.
func (s *Scanner) Root() string { return s.opts.Root }

// Scan walks the root in lexical order. A missing or unreadable root is a
// configuration error; per-file problems land in Result.Skipped.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	info, err := os.Stat(s.opts.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, services.WithRemediation(
				services.Wrap(services.ErrConfiguration, "scanning", "stat root", "input directory does not exist", err),
				"pass an existing directory to 'iconsort run <dir>'")
		}
		return Result{}, services.Wrap(services.ErrConfiguration, "scanning", "stat root", "input directory is not accessible", err)
	}
	if !info.IsDir() {
		return Result{}, services.Wrap(services.ErrConfiguration, "scanning", "stat root", "input path is not a directory", nil)
	}

	var result Result
	walkErr := filepath.WalkDir(s.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == s.opts.Root {
				return err
			}
			s.skip(&result, path, err.Error())
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == s.opts.Root {
			return nil
		}
		rel, relErr := filepath.Rel(s.opts.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.excludedDir(path, rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.matchesExtension(path) || s.excluded(rel, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			s.skip(&result, path, err.Error())
			return nil
		}
		if s.opts.MaxFileBytes > 0 && fi.Size() > s.opts.MaxFileBytes {
			s.skip(&result, path, fmt.Sprintf("file is %d bytes, limit is %d", fi.Size(), s.opts.MaxFileBytes))
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			s.skip(&result, path, err.Error())
			return nil
		}
		result.Items = append(result.Items, NewItem(d.Name(), path, rel, content))
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return result, walkErr
		}
		return result, services.Wrap(services.ErrConfiguration, "scanning", "walk", "scan input directory", walkErr)
	}

	s.logger.Debug("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.String("root", s.opts.Root),
		logging.Int("items", len(result.Items)),
		logging.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (s *Scanner) skip(result *Result, path, reason string) {
	result.Skipped = append(result.Skipped, Skipped{Path: path, Reason: reason})
	logging.WarnWithContext(s.logger, "file skipped", "scan_file_skipped",
		logging.String("path", path),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "icon is not processed in this run"),
		logging.String(logging.FieldErrorHint, "check file permissions or scan.max_file_bytes"),
	)
}

func (s *Scanner) excludedDir(path, rel string) bool {
	if _, ok := s.excludeDir[strings.ToLower(filepath.Base(path))]; ok {
		return true
	}
	if _, ok := s.excludeAbs[path]; ok {
		return true
	}
	return s.excluded(rel, true)
}

func (s *Scanner) excluded(rel string, isDir bool) bool {
	for _, pattern := range s.opts.ExcludePatterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	if s.ignore != nil {
		if match := s.ignore.Relative(rel, isDir); match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

func (s *Scanner) matchesExtension(path string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func loadIgnoreFile(path, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	return gitignore.New(f, baseDir, nil)
}

func toSet(values []string, transform func(string) string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out[transform(v)] = struct{}{}
	}
	return out
}
