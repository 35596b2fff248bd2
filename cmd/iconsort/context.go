package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"iconsort/internal/classify"
	"iconsort/internal/config"
	"iconsort/internal/logging"
	"iconsort/internal/pipeline"
	"iconsort/internal/render"
	"iconsort/internal/resultcache"
	"iconsort/internal/services/llm"
)

type commandContext struct {
	configFlag string
	jsonOutput bool

	// backend replaces the configured vision backend; tests only.
	backend llm.VisionBackend

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// resolveConfig applies command-line overrides to the loaded config.
func (c *commandContext) resolveConfig(o config.Overrides) (*config.Config, error) {
	base, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cfg, err := base.Apply(o)
	if err != nil {
		return nil, fmt.Errorf("apply flags: %w", err)
	}
	return cfg, nil
}

func (c *commandContext) newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	opts := logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Console:    cmd.ErrOrStderr(),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Color:      logging.StderrIsTerminal() && !c.jsonOutput,
	}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	}
	return logging.New(opts)
}

// openCache returns nil when the cache is disabled.
func openCache(cfg *config.Config) (*resultcache.Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	store, err := resultcache.Open(cfg.Paths.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open classification cache: %w", err)
	}
	return store, nil
}

// newPipeline wires a pipeline for cfg. The caller closes the returned cache.
func (c *commandContext) newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, onState func(pipeline.State)) (*pipeline.Pipeline, *resultcache.Store, error) {
	cache, err := openCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	renderer := render.NewCachingRenderer(render.NewSVGRenderer(), 0)
	provider, err := classify.NewProvider(ctx, cfg, classify.Deps{
		Backend:  c.backend,
		Renderer: renderer,
		Logger:   logger,
	})
	if err != nil {
		closeCache(cache)
		return nil, nil, err
	}
	p, err := pipeline.New(ctx, cfg, pipeline.Deps{
		Provider: provider,
		Renderer: renderer,
		Cache:    cache,
		Logger:   logger,
		OnState:  onState,
	})
	if err != nil {
		closeCache(cache)
		return nil, nil, err
	}
	return p, cache, nil
}

func closeCache(store *resultcache.Store) {
	if store != nil {
		_ = store.Close()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
