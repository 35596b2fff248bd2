package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"iconsort/internal/resultcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the classification cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func (c *commandContext) openCacheForCommand() (*resultcache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := cfg.Paths.CachePath
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("paths.cache_path is not set")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return resultcache.Open(path)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show classification cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCacheForCommand()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store == nil {
				if ctx.jsonOutput {
					return writeJSON(cmd, resultcache.Stats{Providers: []resultcache.ProviderStats{}})
				}
				fmt.Fprintln(out, "Classification cache is empty")
				return nil
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, stats)
			}

			fmt.Fprintf(out, "Cache: %s (%s)\n", stats.Path, humanBytes(stats.SizeBytes))
			fmt.Fprintf(out, "Entries: %d, hits served: %d\n", stats.Entries, stats.Hits)
			if len(stats.Providers) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(stats.Providers))
			for _, p := range stats.Providers {
				newest := ""
				if !p.Newest.IsZero() {
					newest = p.Newest.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{p.ProviderID, strconv.Itoa(p.Entries), strconv.Itoa(p.Hits), newest})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Provider", "Entries", "Hits", "Newest"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached classifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCacheForCommand()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store == nil {
				fmt.Fprintln(out, "Classification cache is empty")
				return nil
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context(), strings.TrimSpace(provider))
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, map[string]any{"removed": removed, "provider": provider})
			}
			if provider != "" {
				fmt.Fprintf(out, "Removed %d cached classification(s) for %s\n", removed, provider)
			} else {
				fmt.Fprintf(out, "Removed %d cached classification(s)\n", removed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Only clear entries for this provider id (e.g. local/llava)")
	return cmd
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
