package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// QuakeTransformer implements Transformer: parse, resolve style, build popup.
// Marker colors and the legend both come from the same Styler.
type QuakeTransformer struct {
	styler *domain.Styler
	logger *slog.Logger
}

// NewTransformer creates a QuakeTransformer bound to one breakpoint table and scale.
func NewTransformer(styler *domain.Styler, logger *slog.Logger) *QuakeTransformer {
	return &QuakeTransformer{
		styler: styler,
		logger: logger,
	}
}

func (t *QuakeTransformer) Transform(_ context.Context, raw json.RawMessage) (domain.StyledQuake, error) {
	q, err := domain.ParseQuake(raw)
	if err != nil {
		return domain.StyledQuake{}, err
	}
	if q.Magnitude < 0 {
		t.logger.Debug("negative magnitude, radius clamped to zero", "id", q.ID, "mag", q.Magnitude)
	}
	return domain.StyleQuake(t.styler, q)
}

func (t *QuakeTransformer) Legend() []domain.LegendEntry {
	return t.styler.Legend()
}
