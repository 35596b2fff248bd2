package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"iconsort/internal/artifacts"
	"iconsort/internal/classify"
	"iconsort/internal/config"
	"iconsort/internal/dedupe"
	"iconsort/internal/inventory"
	"iconsort/internal/logging"
	"iconsort/internal/render"
	"iconsort/internal/resultcache"
	"iconsort/internal/services"
)

// ErrNoInput is returned when the scan finds no icon files. It is not a
// failure of the tool; callers report it as "no work".
var ErrNoInput = errors.New("no icon files found")

// Deps carries collaborators. Nil fields get production defaults, except
// Cache, which stays disabled when nil.
type Deps struct {
	Provider classify.Provider
	Renderer render.Renderer
	Cache    *resultcache.Store
	Logger   *slog.Logger
	Now      func() time.Time
	// OnState observes every state transition, in order.
	OnState func(State)
}

// Pipeline runs batches for one configuration.
type Pipeline struct {
	cfg      *config.Config
	provider classify.Provider
	renderer render.Renderer
	cache    *resultcache.Store
	scope    resultcache.Scope
	layout   artifacts.Layout
	logger   *slog.Logger
	now      func() time.Time
	onState  func(State)
}

// New wires a pipeline. When deps.Provider is nil the provider is built from
// cfg, sharing the pipeline's renderer so dedupe and classification reuse
// rasters.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "config required", nil)
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = render.NewCachingRenderer(render.NewSVGRenderer(), 0)
	}
	provider := deps.Provider
	if provider == nil {
		var err error
		provider, err = classify.NewProvider(ctx, cfg, classify.Deps{Renderer: renderer, Logger: deps.Logger})
		if err != nil {
			return nil, err
		}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		cfg:      cfg,
		provider: provider,
		renderer: renderer,
		cache:    deps.Cache,
		scope: resultcache.Scope{
			ProviderID: provider.ID(),
			Taxonomy:   classify.TaxonomyFingerprint(cfg.Classify.Categories, cfg.Classify.DefaultCategory),
		},
		layout:   artifacts.NewLayout(cfg.Paths.OutputDir, cfg.ModelSlug()),
		logger:   logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:      now,
		onState:  deps.OnState,
	}, nil
}

// Layout returns the output locations this pipeline writes to.
func (p *Pipeline) Layout() artifacts.Layout { return p.layout }

// Run processes the input tree once. The summary is returned even on
// failure and reflects everything computed up to that point.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	started := p.now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)

	summary := &Summary{
		RunID:           runID,
		GeneratedAt:     started.UTC(),
		ProviderID:      p.provider.ID(),
		Model:           p.cfg.Classify.Model,
		InputDir:        p.cfg.Paths.InputDir,
		DryRun:          p.cfg.Run.DryRun,
		CategoryCounts:  map[string]int{},
		DuplicateGroups: []GroupSummary{},
		SkippedFiles:    []SkippedFile{},
		Items:           []ItemResult{},
	}
	fail := func(err error) (*Summary, error) {
		p.enter(logger, summary, StateFailed)
		summary.DurationMS = p.now().Sub(started).Milliseconds()
		switch {
		case errors.Is(err, ErrNoInput):
			logger.Info("no icon files found",
				logging.String(logging.FieldEventType, "pipeline_no_input"),
				logging.String("input_dir", p.cfg.Paths.InputDir),
			)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			logging.WarnWithContext(logger, "run cancelled; no outputs written", "pipeline_cancelled",
				logging.Error(err),
				logging.Int("items", summary.TotalItems),
			)
		default:
			logging.ErrorWithContext(logger, "run failed", "pipeline_failed", logging.Error(err))
		}
		return summary, err
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("provider", summary.ProviderID),
		logging.String("input_dir", summary.InputDir),
		logging.Bool("dry_run", summary.DryRun),
	)

	if !summary.DryRun {
		lock, err := artifacts.Acquire(p.layout)
		if err != nil {
			return fail(err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("failed to release output lock", logging.Error(err))
			}
		}()
	}

	p.enter(logger, summary, StateScanning)
	items, err := p.scan(ctx, logger, summary)
	if err != nil {
		return fail(err)
	}
	if len(items) == 0 {
		return fail(ErrNoInput)
	}
	if p.cfg.Run.Backup && !summary.DryRun {
		dir, err := artifacts.Backup(items, p.cfg.Paths.BackupDir, started)
		if err != nil {
			return fail(services.WithRemediation(
				services.Wrap(services.ErrConfiguration, "scanning", "backup", "back up input files", err),
				"check that paths.backup_dir is writable or run without --backup",
			))
		}
		summary.BackupDir = dir
		logger.Info("input backed up",
			logging.String(logging.FieldEventType, "backup_complete"),
			logging.String("backup_dir", dir),
			logging.Int("files", len(items)),
		)
	}

	p.enter(logger, summary, StateHashing)
	digests := make(map[string]struct{}, len(items))
	for _, item := range items {
		digests[item.Digest] = struct{}{}
	}
	logger.Debug("content hashed",
		logging.String(logging.FieldEventType, "hash_complete"),
		logging.Int("items", len(items)),
		logging.Int("distinct_digests", len(digests)),
	)

	p.enter(logger, summary, StateDeduping)
	groups := p.detector(logger).FindDuplicates(items)
	members := dedupe.Members(groups)
	unique := make([]inventory.Item, 0, len(items)-len(members))
	for _, item := range items {
		if _, dup := members[item.ID]; !dup {
			unique = append(unique, item)
		}
	}
	logger.Info("duplicates grouped",
		logging.String(logging.FieldEventType, "dedupe_complete"),
		logging.Int("groups", len(groups)),
		logging.Int("duplicates", len(members)),
		logging.Int("unique", len(unique)),
	)
	if err := ctx.Err(); err != nil {
		summary.assemble(items, groups, nil)
		return fail(err)
	}

	p.enter(logger, summary, StateClassifying)
	records, hits, err := p.classify(ctx, logger, unique)
	summary.CacheHits = hits
	summary.assemble(items, groups, records)
	if err != nil {
		return fail(err)
	}

	p.enter(logger, summary, StateEmbedding)
	p.embed(logger, items, groups, records, summary)

	p.enter(logger, summary, StateSummarizing)
	summary.GeneratedAt = p.now().UTC()
	summary.DurationMS = summary.GeneratedAt.Sub(started.UTC()).Milliseconds()
	if !summary.DryRun {
		if err := p.writeReports(summary, groups); err != nil {
			return fail(err)
		}
	}

	p.enter(logger, summary, StateDone)
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("total", summary.TotalItems),
		logging.Int("unique", summary.UniqueItems),
		logging.Int("duplicates", summary.DuplicateItems),
		logging.Int("errors", summary.ErrorItems),
		logging.Int("cache_hits", summary.CacheHits),
		logging.Int64("duration_ms", summary.DurationMS),
	)
	return summary, nil
}

func (p *Pipeline) enter(logger *slog.Logger, summary *Summary, state State) {
	summary.State = state
	logger.Debug("pipeline state",
		logging.String(logging.FieldEventType, "pipeline_state"),
		logging.String(logging.FieldStage, string(state)),
	)
	if p.onState != nil {
		p.onState(state)
	}
}

func (p *Pipeline) scan(ctx context.Context, logger *slog.Logger, summary *Summary) ([]inventory.Item, error) {
	scanner, err := inventory.NewScanner(inventory.OptionsFromConfig(p.cfg), logger)
	if err != nil {
		return nil, err
	}
	result, err := scanner.Scan(ctx)
	for _, skipped := range result.Skipped {
		summary.SkippedFiles = append(summary.SkippedFiles, SkippedFile{Path: skipped.Path, Reason: skipped.Reason})
	}
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (p *Pipeline) detector(logger *slog.Logger) *dedupe.Detector {
	scorer := dedupe.NewPerceptualScorer(p.renderer, p.cfg.Dedupe.HashSize, logger)
	return dedupe.NewDetector(scorer,
		dedupe.WithThreshold(p.cfg.Dedupe.SimilarityThreshold),
		dedupe.WithBucketing(p.cfg.Dedupe.BucketAbove),
	)
}

// classify serves what it can from the cache and sends the rest to the
// provider. Fresh records are cached even when the batch stops early.
func (p *Pipeline) classify(ctx context.Context, logger *slog.Logger, unique []inventory.Item) (map[string]classify.Record, int, error) {
	records := make(map[string]classify.Record, len(unique))
	pending := unique
	hits := 0

	if p.cache != nil && len(unique) > 0 {
		digests := make([]string, 0, len(unique))
		for _, item := range unique {
			digests = append(digests, item.Digest)
		}
		cached, err := p.cache.GetMany(ctx, digests, p.scope)
		if err != nil {
			logging.WarnWithContext(logger, "classification cache unavailable", "cache_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "every unique icon is sent to the provider"),
			)
		} else {
			pending = make([]inventory.Item, 0, len(unique))
			for _, item := range unique {
				if record, ok := cached[item.Digest]; ok {
					records[item.ID] = record
					hits++
					continue
				}
				pending = append(pending, item)
			}
		}
	}
	logger.Info("classifying icons",
		logging.String(logging.FieldEventType, "classify_start"),
		logging.Int("unique", len(unique)),
		logging.Int("cache_hits", hits),
		logging.Int("pending", len(pending)),
	)
	if len(pending) == 0 {
		return records, hits, nil
	}

	fresh, batchErr := p.provider.ClassifyBatch(ctx, pending)
	byID := inventory.Index(pending)
	store := context.WithoutCancel(ctx)
	for id, record := range fresh {
		records[id] = record
		if p.cache == nil || record.IsError() {
			continue
		}
		if err := p.cache.Put(store, pending[byID[id]].Digest, p.scope, record); err != nil {
			logger.Debug("cache write failed", logging.String(logging.FieldItemID, id), logging.Error(err))
		}
	}
	return records, hits, batchErr
}

func (p *Pipeline) writeReports(summary *Summary, groups []dedupe.Group) error {
	if err := p.layout.Ensure(); err != nil {
		return err
	}
	if _, err := artifacts.WriteDuplicateReport(p.layout, groups, summary.GeneratedAt); err != nil {
		return err
	}
	summary.ReportsDir = p.layout.ReportsDir
	final := *summary
	final.State = StateDone
	if _, err := artifacts.WriteSummary(p.layout, &final); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return nil
}
