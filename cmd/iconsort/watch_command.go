package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"iconsort/internal/artifacts"
	"iconsort/internal/logging"
	"iconsort/internal/services"
	"iconsort/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags overrideFlags

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-run whenever icons in the directory change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.runConfig(cmd, &flags, args)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			watchCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runPreflight(watchCtx, cfg); err != nil {
				return err
			}
			p, cache, err := ctx.newPipeline(watchCtx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer closeCache(cache)

			w, err := watcher.New(watcher.OptionsFromConfig(cfg), logger)
			if err != nil {
				return fmt.Errorf("watch %s: %w", cfg.Paths.InputDir, err)
			}

			// Only fatal problems other than a busy output lock end the watch.
			runOnce := func(runCtx context.Context) error {
				err := ctx.executeRun(runCtx, cmd, p)
				switch {
				case err == nil, errors.Is(err, context.Canceled):
					return nil
				case errors.Is(err, artifacts.ErrLocked) || !services.IsFatal(err):
					logging.WarnWithContext(logger, "run failed; waiting for the next change", "watch_run_failed",
						logging.Error(err))
					return nil
				default:
					return err
				}
			}

			if err := runOnce(watchCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", cfg.Paths.InputDir)
			return w.Run(watchCtx, func(runCtx context.Context, _ []string) error {
				return runOnce(runCtx)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}
