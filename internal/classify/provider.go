package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"iconsort/internal/config"
	"iconsort/internal/dispatch"
	"iconsort/internal/inventory"
	"iconsort/internal/logging"
	"iconsort/internal/render"
	"iconsort/internal/retry"
	"iconsort/internal/services"
	"iconsort/internal/services/llm"
)

// Provider turns icons into classification records.
type Provider interface {
	// ID identifies the provider and model, e.g. "local/llava".
	ID() string
	// Classify renders one item, sends it with prompt, and parses the reply.
	// Errors are transport or configuration failures; unusable replies
	// become fallback records.
	Classify(ctx context.Context, item inventory.Item, prompt string) (Record, error)
	// ClassifyBatch classifies items through the paced pool. Every dispatched
	// item gets a record; failed items get an error record. The error is
	// non-nil only for a fatal backend state or cancellation.
	ClassifyBatch(ctx context.Context, items []inventory.Item) (map[string]Record, error)
}

// Deps carries collaborators. Nil fields get production defaults.
type Deps struct {
	Backend  llm.VisionBackend
	Renderer render.Renderer
	Logger   *slog.Logger
	// Sleep replaces retry and pacing waits, mainly for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewProvider builds the provider selected by classify.provider.
func NewProvider(ctx context.Context, cfg *config.Config, deps Deps) (Provider, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "new provider", "config required", nil)
	}
	backend := deps.Backend
	if backend == nil {
		var err error
		backend, err = llm.NewBackend(ctx, cfg.Classify)
		if err != nil {
			return nil, err
		}
	}
	e := newEngine(cfg, backend, deps)
	switch cfg.Classify.Provider {
	case config.ProviderLocal:
		return &LocalProvider{engine: e}, nil
	case config.ProviderCloud:
		return &CloudProvider{engine: e}, nil
	default:
		return nil, services.WithRemediation(
			services.Wrap(services.ErrConfiguration, "classify", "new provider",
				fmt.Sprintf("unknown provider %q", cfg.Classify.Provider), nil),
			"set classify.provider to cloud or local",
		)
	}
}

// engine holds what both variants share: rendering, prompting, the retry
// policy, and the dispatch pool.
type engine struct {
	id        string
	backend   llm.VisionBackend
	renderer  render.Renderer
	parser    *Parser
	prompts   PromptBuilder
	policy    retry.Policy
	pool      *dispatch.Pool
	imageSize int
	logger    *slog.Logger
}

func newEngine(cfg *config.Config, backend llm.VisionBackend, deps Deps) *engine {
	renderer := deps.Renderer
	if renderer == nil {
		renderer = render.NewSVGRenderer()
	}
	policy := retry.FromConfig(cfg.Classify)
	var poolOpts []dispatch.Option
	if deps.Sleep != nil {
		policy.Sleep = deps.Sleep
		poolOpts = append(poolOpts, dispatch.WithSleeper(deps.Sleep))
	}
	logger := logging.NewComponentLogger(deps.Logger, "classify")
	return &engine{
		id:        cfg.ProviderID(),
		backend:   backend,
		renderer:  renderer,
		parser:    NewParser(cfg.Classify.Categories, cfg.Classify.DefaultCategory),
		prompts:   NewPromptBuilder(cfg.Classify.Categories, cfg.Classify.DefaultCategory),
		policy:    policy,
		pool:      dispatch.NewPool(dispatch.PacingFromConfig(cfg.Classify), deps.Logger, poolOpts...),
		imageSize: cfg.Classify.ImageSize,
		logger:    logger.With(logging.String("provider", cfg.ProviderID())),
	}
}

func (e *engine) ID() string { return e.id }

func (e *engine) Classify(ctx context.Context, item inventory.Item, prompt string) (Record, error) {
	ctx = services.WithItemID(services.WithStage(ctx, "classify"), item.ID)
	logger := logging.WithContext(ctx, e.logger).With(logging.String("file", item.RelPath))

	image, err := render.PNG(e.renderer, item.Content, e.imageSize)
	if err != nil {
		return Record{}, services.Wrap(services.ErrValidation, "classify", "render", item.RelPath, err)
	}
	req := llm.VisionRequest{
		System:   e.prompts.System(),
		Prompt:   prompt,
		Image:    image,
		MIMEType: "image/png",
	}

	policy := e.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logging.WarnWithContext(logger, "classification attempt failed; retrying", "classify_retry",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "reduce concurrency or raise classify.timeout_ms"),
			logging.String(logging.FieldImpact, "item retried after backoff"),
		)
	}
	started := time.Now()
	text, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return e.backend.Complete(ctx, req)
	})
	if err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(text) == "" {
		logger.Debug("backend returned no content; using fallback classification",
			logging.String(logging.FieldEventType, "classify_empty_reply"),
		)
	}
	record := e.parser.Parse(text)
	logger.Debug("icon classified",
		logging.String(logging.FieldEventType, "classify_complete"),
		logging.String("category", record.Category),
		logging.Float64("confidence", record.Confidence),
		logging.String("source", string(record.Source)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return record, nil
}

func (e *engine) classifyBatch(ctx context.Context, items []inventory.Item) (map[string]Record, error) {
	byID := make(map[string]inventory.Item, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		if _, dup := byID[item.ID]; dup {
			continue
		}
		byID[item.ID] = item
		keys = append(keys, item.ID)
	}

	sampler := logging.NewProgressSampler(25)
	var mu sync.Mutex
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if percent, ok := sampler.Observe(done, total); ok {
			e.logger.Info("classification progress",
				logging.String(logging.FieldEventType, "classify_progress"),
				logging.Int("done", done),
				logging.Int("total", total),
				logging.Float64("percent", percent),
			)
		}
	}

	results, err := dispatch.Map(ctx, e.pool, keys, func(ctx context.Context, id string) (Record, error) {
		item := byID[id]
		return e.Classify(ctx, item, e.prompts.Build(item))
	}, progress)

	out := make(map[string]Record, len(results))
	for id, result := range results {
		if result.Err == nil {
			out[id] = result.Value
			continue
		}
		logging.WarnWithContext(e.logger, "icon classification failed", "classify_item_failed",
			logging.String(logging.FieldItemID, id),
			logging.String("file", byID[id].RelPath),
			logging.Error(result.Err),
			logging.String(logging.FieldImpact, "item recorded with category error"),
		)
		out[id] = ErrorRecord(result.Err)
	}
	return out, err
}

// CloudProvider classifies through a hosted vision API.
type CloudProvider struct {
	*engine
}

func (p *CloudProvider) ClassifyBatch(ctx context.Context, items []inventory.Item) (map[string]Record, error) {
	return p.classifyBatch(ctx, items)
}

// LocalProvider classifies through a local inference server. It checks the
// server and model before dispatching so a stopped server fails the run
// once instead of once per item.
type LocalProvider struct {
	*engine
}

func (p *LocalProvider) ClassifyBatch(ctx context.Context, items []inventory.Item) (map[string]Record, error) {
	if len(items) == 0 {
		return map[string]Record{}, nil
	}
	if err := p.backend.HealthCheck(ctx); err != nil {
		if services.IsFatal(err) {
			return map[string]Record{}, err
		}
		logging.WarnWithContext(p.logger, "backend health check failed; continuing", "classify_health_warning",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backend reachable"),
		)
	}
	return p.classifyBatch(ctx, items)
}

// HealthCheck checks the backend behind the provider.
func (e *engine) HealthCheck(ctx context.Context) error {
	return e.backend.HealthCheck(ctx)
}
