package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"iconsort/internal/config"
	"iconsort/internal/pipeline"
	"iconsort/internal/services"
	"iconsort/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	backend    *testsupport.FakeBackend
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Classify.ImageSize = 64
	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "iconsort.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, backend: &testsupport.FakeBackend{}}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := buildRootCommand(&commandContext{backend: env.backend})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestRunWritesOutputsAndJSONSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteIcons(t, env.cfg.Paths.InputDir, 3)
	testsupport.WriteFile(t, env.cfg.Paths.InputDir, "nested/icon-00-copy.svg", testsupport.DistinctIcon(0))

	out, _, err := env.run(t, "--json", "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary pipeline.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.TotalItems != 4 || summary.UniqueItems != 3 || summary.DuplicateItems != 1 {
		t.Fatalf("unexpected counts: total=%d unique=%d dup=%d", summary.TotalItems, summary.UniqueItems, summary.DuplicateItems)
	}
	if summary.State != pipeline.StateDone {
		t.Fatalf("state = %s", summary.State)
	}
	for _, item := range summary.Items {
		if item.Output == "" {
			t.Fatalf("item %s has no output path", item.RelPath)
		}
		if _, err := os.Stat(item.Output); err != nil {
			t.Fatalf("output for %s missing: %v", item.RelPath, err)
		}
	}
	if env.backend.Calls() != 3 {
		t.Fatalf("backend calls = %d, want 3", env.backend.Calls())
	}
}

func TestRunTextSummaryAndInspect(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteIcons(t, env.cfg.Paths.InputDir, 2)

	out, _, err := env.run(t, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Total icons")
	requireContains(t, out, "general")
	requireContains(t, out, "Reports:")

	matches, err := filepath.Glob(filepath.Join(env.cfg.Paths.OutputDir, "unique", "*", "icon-00.svg"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one tagged copy, got %v (%v)", matches, err)
	}
	out, _, err = env.run(t, "inspect", matches[0])
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "Category")
	requireContains(t, out, "general")

	out, _, err = env.run(t, "inspect", filepath.Join(env.cfg.Paths.InputDir, "icon-01.svg"))
	if err != nil {
		t.Fatalf("inspect original: %v", err)
	}
	requireContains(t, out, "no iconsort metadata")
}

func TestRunEmptyInputIsNotAnError(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "run")
	if err != nil {
		t.Fatalf("run on empty dir: %v", err)
	}
	requireContains(t, out, "no icon files found")
}

func TestRunDirectoryArgumentAndDryRun(t *testing.T) {
	env := setupCLITestEnv(t)
	other := filepath.Join(t.TempDir(), "set")
	testsupport.WriteIcons(t, other, 2)
	outDir := filepath.Join(t.TempDir(), "out")

	out, _, err := env.run(t, "--json", "run", other, "--output", outDir, "--dry-run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary pipeline.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !summary.DryRun || summary.TotalItems != 2 || summary.InputDir != other {
		t.Fatalf("unexpected summary: dry=%v total=%d input=%s", summary.DryRun, summary.TotalItems, summary.InputDir)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("dry run created %s", outDir)
	}
}

func TestRunFatalBackendPrintsRemediation(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteIcons(t, env.cfg.Paths.InputDir, 1)
	env.backend.Health = services.WithRemediation(
		services.Wrap(services.ErrConfiguration, "ollama", "health", "backend unreachable", nil),
		"start ollama with 'ollama serve'",
	)

	_, _, err := env.run(t, "run")
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	var buf bytes.Buffer
	printError(&buf, err)
	requireContains(t, buf.String(), "backend unreachable")
	requireContains(t, buf.String(), "ollama serve")
}

func TestRunRejectsInvalidFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "run", "--max-concurrent", "99"); err == nil {
		t.Fatal("expected validation error for max-concurrent above 8")
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCache())
	testsupport.WriteIcons(t, env.cfg.Paths.InputDir, 2)

	out, _, err := env.run(t, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats before run: %v", err)
	}
	requireContains(t, out, "empty")

	if _, _, err := env.run(t, "run"); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err = env.run(t, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Entries: 2")
	requireContains(t, out, env.cfg.ProviderID())

	out, _, err = env.run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 2")
}

func TestCheckReportsEachPreflight(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Input directory")
	requireContains(t, out, "Output directory")
	requireContains(t, out, "Backend")

	env.backend.Health = services.Wrap(services.ErrConfiguration, "ollama", "health", "model missing", nil)
	if _, _, err := env.run(t, "check"); !services.IsFatal(err) {
		t.Fatalf("expected failed check, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.InputDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
}
