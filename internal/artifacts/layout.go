package artifacts

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	uniqueDir     = "unique"
	duplicatesDir = "duplicates"
	reportsDir    = "reports"
	locksDir      = ".locks"

	// SummaryFile and DuplicateReportFile live in the reports directory.
	SummaryFile         = "summary.json"
	DuplicateReportFile = "duplicate_report.txt"
)

// Layout resolves the output locations for one model slug.
type Layout struct {
	Root          string
	Slug          string
	UniqueDir     string
	DuplicatesDir string
	ReportsDir    string
	LockPath      string
}

// NewLayout derives the per-slug directories below outputDir.
func NewLayout(outputDir, slug string) Layout {
	return Layout{
		Root:          outputDir,
		Slug:          slug,
		UniqueDir:     filepath.Join(outputDir, uniqueDir, slug),
		DuplicatesDir: filepath.Join(outputDir, duplicatesDir, slug),
		ReportsDir:    filepath.Join(outputDir, reportsDir, slug),
		LockPath:      filepath.Join(outputDir, locksDir, slug+".lock"),
	}
}

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.UniqueDir, l.DuplicatesDir, l.ReportsDir, filepath.Dir(l.LockPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", dir, err)
		}
	}
	return nil
}

// SummaryPath is the location of summary.json.
func (l Layout) SummaryPath() string { return filepath.Join(l.ReportsDir, SummaryFile) }

// DuplicateReportPath is the location of duplicate_report.txt.
func (l Layout) DuplicateReportPath() string {
	return filepath.Join(l.ReportsDir, DuplicateReportFile)
}

// UniquePath maps a scan-relative path into the unique tree.
func (l Layout) UniquePath(relPath string) (string, error) {
	return within(l.UniqueDir, relPath)
}

// DuplicatePath maps a scan-relative path into the duplicates tree.
func (l Layout) DuplicatePath(relPath string) (string, error) {
	return within(l.DuplicatesDir, relPath)
}

// within joins a slash-separated relative path below base and refuses
// anything that would escape it.
func within(base, relPath string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(relPath, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid relative path %q", relPath)
	}
	return filepath.Join(base, filepath.FromSlash(cleaned)), nil
}
