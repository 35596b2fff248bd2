package dedupe

import (
	"log/slog"

	"iconsort/internal/inventory"
	"iconsort/internal/logging"
	"iconsort/internal/render"
)

// PerceptualScorer compares items by the ink signatures of their rasters.
// Signatures are computed once per item. Not safe for concurrent use; the
// detector calls it from a single goroutine.
type PerceptualScorer struct {
	renderer render.Renderer
	size     int
	sigs     map[string]render.Signature
	logger   *slog.Logger
}

// NewPerceptualScorer rasterizes at size pixels before sampling.
func NewPerceptualScorer(renderer render.Renderer, size int, logger *slog.Logger) *PerceptualScorer {
	if size <= 0 {
		size = 64
	}
	return &PerceptualScorer{
		renderer: renderer,
		size:     size,
		sigs:     make(map[string]render.Signature),
		logger:   logging.NewComponentLogger(logger, "dedupe"),
	}
}

// Score returns 0 when either item cannot be rendered or renders blank.
func (s *PerceptualScorer) Score(a, b inventory.Item) float64 {
	return render.Similarity(s.signature(a), s.signature(b))
}

func (s *PerceptualScorer) signature(item inventory.Item) render.Signature {
	if cached, ok := s.sigs[item.ID]; ok {
		return cached
	}
	sig, err := render.SignatureOf(s.renderer, item.Content, s.size)
	switch {
	case err != nil:
		s.logger.Debug("ink signature unavailable",
			logging.String(logging.FieldItemID, item.ID),
			logging.String("file", item.DisplayName),
			logging.Error(err),
		)
	case !sig.Valid():
		s.logger.Debug("icon renders blank; excluded from near-duplicate matching",
			logging.String(logging.FieldItemID, item.ID),
			logging.String("file", item.DisplayName),
		)
	}
	s.sigs[item.ID] = sig
	return sig
}
