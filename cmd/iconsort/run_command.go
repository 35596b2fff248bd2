package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"iconsort/internal/config"
	"iconsort/internal/pipeline"
	"iconsort/internal/preflight"
	"iconsort/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags overrideFlags

	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Process an icon directory once",
		Long: `Scan the directory for SVG icons, group duplicates, classify unique
icons with the configured provider, and write tagged copies plus reports
under the output directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.runConfig(cmd, &flags, args)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runPreflight(runCtx, cfg); err != nil {
				return err
			}
			p, cache, err := ctx.newPipeline(runCtx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer closeCache(cache)

			return ctx.executeRun(runCtx, cmd, p)
		},
	}
	flags.bind(cmd)
	return cmd
}

// runConfig resolves the effective config for run and watch.
func (c *commandContext) runConfig(cmd *cobra.Command, flags *overrideFlags, args []string) (*config.Config, error) {
	input := ""
	if len(args) > 0 {
		input = strings.TrimSpace(args[0])
	}
	cfg, err := c.resolveConfig(flags.overrides(cmd, input))
	if err != nil {
		return nil, err
	}
	if cfg.Paths.InputDir == "" {
		return nil, services.WithRemediation(
			services.Wrap(services.ErrConfiguration, "cli", "resolve input", "no input directory", nil),
			"pass a directory: iconsort run ./icons",
			"or set paths.input_dir in the config file",
		)
	}
	if !cfg.Run.DryRun {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// runPreflight fails fast on unusable directories. Backend health is left to
// the provider, which checks before dispatching.
func runPreflight(ctx context.Context, cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg, nil))
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	var steps []string
	for _, r := range failed {
		details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		if r.Remediation != "" {
			steps = append(steps, r.Remediation)
		}
	}
	return services.WithRemediation(
		services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(details, "; "), nil),
		steps...,
	)
}

// executeRun runs the pipeline once and prints the outcome. An empty input
// tree is reported and is not an error.
func (c *commandContext) executeRun(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline) error {
	summary, err := p.Run(ctx)
	if errors.Is(err, pipeline.ErrNoInput) {
		if c.jsonOutput {
			return writeJSON(cmd, summary)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "no icon files found")
		return nil
	}
	if summary != nil && (err == nil || errors.Is(err, context.Canceled)) {
		if c.jsonOutput {
			if werr := writeJSON(cmd, summary); werr != nil {
				return werr
			}
		} else {
			renderSummary(cmd.OutOrStdout(), summary)
		}
	}
	return err
}
