package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

// CatalogSource lists the celestial bodies reports are checked against.
type CatalogSource interface {
	CelestialBodies(ctx context.Context) ([]domain.CelestialBody, error)
}

// ReportTransformer implements Transformer by filling a draft from each
// report, checked against the platform catalog.
type ReportTransformer struct {
	source  CatalogSource
	catalog atomic.Pointer[domain.Catalog]
	logger  *slog.Logger
}

func NewTransformer(source CatalogSource, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{source: source, logger: logger}
}

// Prepare loads the catalog. Later calls are no-ops.
func (t *ReportTransformer) Prepare(ctx context.Context) error {
	if t.catalog.Load() != nil {
		return nil
	}
	bodies, err := t.source.CelestialBodies(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	c := domain.NewCatalog(bodies)
	t.catalog.Store(c)
	t.logger.Info("catalog loaded", "bodies", c.Len())
	return nil
}

func (t *ReportTransformer) Transform(_ context.Context, raw domain.RawReport) (Report, error) {
	c := t.catalog.Load()
	if c == nil {
		return Report{}, errors.New("catalog not loaded")
	}
	req, err := domain.ParseReport(raw, c)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Key:       raw.ReportKey(),
		Request:   req,
		Topic:     raw.Topic,
		Partition: raw.Partition,
		Offset:    raw.Offset,
	}, nil
}
