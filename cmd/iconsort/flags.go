package main

import (
	"github.com/spf13/cobra"

	"iconsort/internal/config"
)

// overrideFlags are the per-run settings that may replace config values.
type overrideFlags struct {
	outputDir     string
	backup        bool
	dryRun        bool
	threshold     float64
	maxConcurrent int
	timeoutMS     int
	retryAttempts int
	provider      string
	cloudBackend  string
	model         string
	baseURL       string
}

func (f *overrideFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.outputDir, "output", "o", "", "Output directory (default <input>/output)")
	flags.BoolVar(&f.backup, "backup", false, "Copy the input tree to the backup directory first")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Classify and report without writing any files")
	flags.Float64Var(&f.threshold, "threshold", 0, "Near-duplicate similarity threshold (0-1)")
	flags.IntVar(&f.maxConcurrent, "max-concurrent", 0, "Concurrent classification requests (1-8)")
	flags.IntVar(&f.timeoutMS, "timeout-ms", 0, "Per-request timeout in milliseconds")
	flags.IntVar(&f.retryAttempts, "retries", 0, "Attempts per icon before recording an error")
	flags.StringVar(&f.provider, "provider", "", "Classification provider: cloud or local")
	flags.StringVar(&f.cloudBackend, "cloud-backend", "", "Cloud backend: openai, anthropic, or gemini")
	flags.StringVar(&f.model, "model", "", "Model name")
	flags.StringVar(&f.baseURL, "base-url", "", "Backend base URL")
}

// overrides returns only the flags the user actually set.
func (f *overrideFlags) overrides(cmd *cobra.Command, inputDir string) config.Overrides {
	var o config.Overrides
	changed := cmd.Flags().Changed
	if inputDir != "" {
		o.InputDir = &inputDir
	}
	if changed("output") {
		o.OutputDir = &f.outputDir
	}
	if changed("backup") {
		o.Backup = &f.backup
	}
	if changed("dry-run") {
		o.DryRun = &f.dryRun
	}
	if changed("threshold") {
		o.SimilarityThreshold = &f.threshold
	}
	if changed("max-concurrent") {
		o.MaxConcurrent = &f.maxConcurrent
	}
	if changed("timeout-ms") {
		o.TimeoutMS = &f.timeoutMS
	}
	if changed("retries") {
		o.RetryAttempts = &f.retryAttempts
	}
	if changed("provider") {
		o.Provider = &f.provider
	}
	if changed("cloud-backend") {
		o.CloudBackend = &f.cloudBackend
	}
	if changed("model") {
		o.Model = &f.model
	}
	if changed("base-url") {
		o.BaseURL = &f.baseURL
	}
	return o
}
