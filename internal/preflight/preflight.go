package preflight

import (
	"context"

	"iconsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name        string `json:"name"`
	Passed      bool   `json:"passed"`
	Detail      string `json:"detail"`
	Remediation string `json:"remediation,omitempty"`
}

// RunAll executes every applicable check. A nil checker skips the backend
// check; dry runs skip the output and backup checks.
func RunAll(ctx context.Context, cfg *config.Config, checker HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckInputDir(cfg.Paths.InputDir)}
	if !cfg.Run.DryRun {
		results = append(results, CheckWritableDir("Output directory", cfg.Paths.OutputDir))
		if cfg.Run.Backup {
			results = append(results, CheckWritableDir("Backup directory", cfg.Paths.BackupDir))
		}
	}
	if cfg.Cache.Enabled {
		results = append(results, CheckWritableDir("Cache directory", parentDir(cfg.Paths.CachePath)))
	}
	if checker != nil {
		results = append(results, CheckBackend(ctx, "Backend "+cfg.ProviderID(), checker))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
