package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"iconsort/internal/preflight"
	"iconsort/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var flags overrideFlags

	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Verify directories and backend before a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) > 0 {
				input = args[0]
			}
			cfg, err := ctx.resolveConfig(flags.overrides(cmd, input))
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg, nil)
			if ctx.backend != nil {
				results = append(results, preflight.CheckBackend(cmd.Context(), "Backend "+cfg.ProviderID(), ctx.backend))
			} else {
				results = append(results, preflight.CheckBackendFromConfig(cmd.Context(), cfg))
			}
			failed := preflight.Failed(results)

			if ctx.jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := okStyle.Sprint("ok")
					if !r.Passed {
						status = errorLabel.Sprint("fail")
					}
					rows = append(rows, []string{r.Name, status, r.Detail, r.Remediation})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail", "Fix"}, rows, nil))
			}
			if len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "check", "preflight",
					fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), nil)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}
