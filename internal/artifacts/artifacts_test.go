package artifacts_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"iconsort/internal/artifacts"
	"iconsort/internal/dedupe"
	"iconsort/internal/inventory"
	"iconsort/internal/services"
	"iconsort/internal/testsupport"
)

func TestLayoutPartitionsBySlug(t *testing.T) {
	out := t.TempDir()
	a := artifacts.NewLayout(out, "local-llava")
	b := artifacts.NewLayout(out, "openai-gpt-4o")
	if a.UniqueDir == b.UniqueDir || a.ReportsDir == b.ReportsDir || a.LockPath == b.LockPath {
		t.Fatalf("layouts overlap: %+v %+v", a, b)
	}
	if want := filepath.Join(out, "unique", "local-llava"); a.UniqueDir != want {
		t.Fatalf("UniqueDir = %q, want %q", a.UniqueDir, want)
	}
	if err := a.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, dir := range []string{a.UniqueDir, a.DuplicatesDir, a.ReportsDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestLayoutRejectsEscapes(t *testing.T) {
	layout := artifacts.NewLayout(t.TempDir(), "slug")
	got, err := layout.UniquePath("../../etc/passwd.svg")
	if err != nil {
		t.Fatalf("UniquePath: %v", err)
	}
	if !strings.HasPrefix(got, layout.UniqueDir+string(filepath.Separator)) {
		t.Fatalf("path escaped the unique tree: %s", got)
	}
	if _, err := layout.UniquePath(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestAcquireRejectsSecondHolder(t *testing.T) {
	layout := artifacts.NewLayout(t.TempDir(), "slug")
	first, err := artifacts.Acquire(layout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := artifacts.Acquire(layout); !services.IsFatal(err) || !errors.Is(err, artifacts.ErrLocked) {
		t.Fatalf("expected configuration error, got %v", err)
	} else if len(services.Remediation(err)) == 0 {
		t.Fatal("expected a remediation hint")
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := artifacts.Acquire(layout)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = second.Release()

	other, err := artifacts.Acquire(artifacts.NewLayout(filepath.Dir(filepath.Dir(layout.LockPath)), "other"))
	if err != nil {
		t.Fatalf("other slugs must not contend: %v", err)
	}
	_ = other.Release()
}

func TestWriteIconAndSummary(t *testing.T) {
	layout := artifacts.NewLayout(t.TempDir(), "slug")
	dst, err := artifacts.WriteIcon(layout, "nav/back.svg", []byte("<svg/>"), false)
	if err != nil {
		t.Fatalf("WriteIcon: %v", err)
	}
	if dst != filepath.Join(layout.UniqueDir, "nav", "back.svg") {
		t.Fatalf("unexpected destination %s", dst)
	}
	dup, err := artifacts.WriteIcon(layout, "nav/back-copy.svg", []byte("<svg/>"), true)
	if err != nil {
		t.Fatalf("WriteIcon duplicate: %v", err)
	}
	if !strings.HasPrefix(dup, layout.DuplicatesDir) {
		t.Fatalf("duplicate written outside duplicates tree: %s", dup)
	}
	if planned, err := artifacts.IconPath(layout, "nav/back-copy.svg", true); err != nil || planned != dup {
		t.Fatalf("IconPath = %s (%v), want %s", planned, err, dup)
	}
	if _, err := artifacts.IconPath(layout, "..", false); err == nil {
		t.Fatal("IconPath accepted a path naming no file")
	}

	path, err := artifacts.WriteSummary(layout, map[string]int{"total_items": 2})
	if err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(data, &decoded); err != nil || decoded["total_items"] != 2 {
		t.Fatalf("unexpected summary %s (%v)", data, err)
	}
}

func TestDuplicateReport(t *testing.T) {
	primary := inventory.NewItem("a.svg", "/in/a.svg", "a.svg", testsupport.DistinctIcon(0))
	copyItem := inventory.NewItem("b.svg", "/in/b.svg", "sub/b.svg", testsupport.DistinctIcon(0))
	near := inventory.NewItem("c.svg", "/in/c.svg", "c.svg", testsupport.DistinctIcon(1))
	groups := []dedupe.Group{
		{Primary: primary, Members: []inventory.Item{copyItem}, Similarity: 1, Disposition: dedupe.DispositionRemove, Exact: true},
		{Primary: primary, Members: []inventory.Item{near}, Similarity: 0.84, Disposition: dedupe.DispositionReview},
	}
	report := artifacts.DuplicateReport(groups, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	for _, want := range []string{"2026-01-02T03:04:05Z", "2 groups, 2 redundant files", "sub/b.svg", "exact", "0.84", "review"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}

	empty := artifacts.DuplicateReport(nil, time.Now())
	if !strings.Contains(empty, "No duplicates found.") {
		t.Fatalf("unexpected empty report:\n%s", empty)
	}
}

func TestBackupCopiesTree(t *testing.T) {
	root := t.TempDir()
	var items []inventory.Item
	for i, rel := range []string{"a.svg", "nested/b.svg"} {
		content := testsupport.DistinctIcon(i)
		path := testsupport.WriteFile(t, root, rel, content)
		items = append(items, inventory.NewItem(filepath.Base(rel), path, rel, content))
	}
	backupDir := filepath.Join(t.TempDir(), "backup")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	dest, err := artifacts.Backup(items, backupDir, now)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if filepath.Base(dest) != "20260102-030405" {
		t.Fatalf("unexpected backup dir %s", dest)
	}
	for _, item := range items {
		data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(item.RelPath)))
		if err != nil || string(data) != string(item.Content) {
			t.Fatalf("backup of %s missing or different: %v", item.RelPath, err)
		}
	}

	again, err := artifacts.Backup(items, backupDir, now)
	if err != nil {
		t.Fatalf("second Backup: %v", err)
	}
	if again == dest {
		t.Fatal("second backup in the same second must not reuse the directory")
	}
}
