package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"iconsort/internal/config"
	"iconsort/internal/services"
	"iconsort/internal/testsupport"
)

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestCheckInputDir_OK(t *testing.T) {
	result := CheckInputDir(t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckInputDir_NotExist(t *testing.T) {
	result := CheckInputDir(filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckInputDir_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.svg")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckInputDir(f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritableDir(t *testing.T) {
	base := t.TempDir()
	if r := CheckWritableDir("out", base); !r.Passed {
		t.Fatalf("existing dir: %s", r.Detail)
	}
	r := CheckWritableDir("out", filepath.Join(base, "a", "b"))
	if !r.Passed || !strings.Contains(r.Detail, "will be created") {
		t.Fatalf("missing dir under writable parent: %+v", r)
	}
	if r := CheckWritableDir("out", ""); r.Passed {
		t.Fatal("empty path must fail")
	}
}

func TestCheckWritableDir_ReadOnlyParent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	parent := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(parent, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })
	if r := CheckWritableDir("out", filepath.Join(parent, "child")); r.Passed {
		t.Fatalf("expected failure under read-only parent: %+v", r)
	}
}

func TestCheckBackend(t *testing.T) {
	if r := CheckBackend(context.Background(), "Backend", stubChecker{}); !r.Passed {
		t.Fatalf("healthy backend: %+v", r)
	}

	down := services.WithRemediation(
		services.Wrap(services.ErrConfiguration, "ollama", "health", "backend unreachable", nil),
		"check backend reachable",
	)
	r := CheckBackend(context.Background(), "Backend", stubChecker{err: down})
	if r.Passed || r.Remediation != "check backend reachable" {
		t.Fatalf("unexpected result %+v", r)
	}

	r = CheckBackend(context.Background(), "Backend", stubChecker{err: context.DeadlineExceeded})
	if !strings.Contains(r.Detail, "timed out") {
		t.Fatalf("unexpected detail %q", r.Detail)
	}
}

func TestRunAllSelectsChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg, stubChecker{})
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "Input directory") || !strings.Contains(joined, "Output directory") {
		t.Fatalf("unexpected checks %v", names)
	}
	if strings.Contains(joined, "Backup directory") || strings.Contains(joined, "Cache directory") {
		t.Fatalf("disabled features must be skipped: %v", names)
	}
	if len(Failed(results)) != 0 {
		t.Fatalf("expected all checks to pass: %+v", Failed(results))
	}

	cfg.Run.DryRun = true
	cfg.Cache.Enabled = true
	results = RunAll(context.Background(), cfg, stubChecker{err: errors.New("boom")})
	if len(Failed(results)) != 1 {
		t.Fatalf("expected only the backend to fail: %+v", results)
	}
	for _, r := range results {
		if r.Name == "Output directory" {
			t.Fatal("dry runs do not need a writable output directory")
		}
	}
}

func TestCheckBackendFromConfigRejectsMissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCloudBackend(config.BackendOpenAI))
	cfg.Classify.APIKey = ""
	r := CheckBackendFromConfig(context.Background(), cfg)
	if r.Passed {
		t.Fatal("expected failure without api key")
	}
	if r.Remediation == "" {
		t.Fatalf("expected remediation, got %+v", r)
	}
}
