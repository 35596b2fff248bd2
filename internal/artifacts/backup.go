package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"iconsort/internal/fileutil"
	"iconsort/internal/inventory"
)

// backupStampLayout names backup directories; it sorts chronologically.
const backupStampLayout = "20060102-150405"

// Backup copies every item's source file to <backupDir>/<timestamp>/<rel>
// with verified copies and returns the backup directory. A second backup
// within the same second gets a numeric suffix.
func Backup(items []inventory.Item, backupDir string, now time.Time) (string, error) {
	if backupDir == "" {
		return "", fmt.Errorf("backup directory not configured")
	}
	dest, err := reserveBackupDir(backupDir, now.UTC().Format(backupStampLayout))
	if err != nil {
		return "", err
	}
	for _, item := range items {
		dst, err := within(dest, item.RelPath)
		if err != nil {
			return dest, err
		}
		if err := fileutil.CopyFileVerified(item.Path, dst); err != nil {
			return dest, fmt.Errorf("backup %s: %w", item.RelPath, err)
		}
	}
	return dest, nil
}

func reserveBackupDir(base, stamp string) (string, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	for attempt := 0; attempt < 100; attempt++ {
		name := stamp
		if attempt > 0 {
			name = fmt.Sprintf("%s-%d", stamp, attempt)
		}
		dir := filepath.Join(base, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create backup directory: %w", err)
		}
	}
	return "", fmt.Errorf("too many backups for %s", stamp)
}
