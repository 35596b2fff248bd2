package artifacts

import (
	"encoding/json"
	"fmt"

	"iconsort/internal/fileutil"
)

// IconPath is where WriteIcon puts relPath.
func IconPath(layout Layout, relPath string, duplicate bool) (string, error) {
	if duplicate {
		return layout.DuplicatePath(relPath)
	}
	return layout.UniquePath(relPath)
}

// WriteIcon writes an annotated icon into the unique tree, or into the
// duplicates tree when duplicate is set, and returns the destination.
func WriteIcon(layout Layout, relPath string, content []byte, duplicate bool) (string, error) {
	dst, err := IconPath(layout, relPath, duplicate)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(dst, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	return dst, nil
}

// WriteSummary writes v as indented JSON to summary.json.
func WriteSummary(layout Layout, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	data = append(data, '\n')
	dst := layout.SummaryPath()
	if err := fileutil.WriteFileAtomic(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return dst, nil
}
