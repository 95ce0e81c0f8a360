package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

// FallbackPreviewImage is shown while no known body is selected.
const FallbackPreviewImage = "celeste.png"

// Authoring owns the draft of the observation being written.
type Authoring struct {
	catalogSource CatalogSource
	submitter     Submitter
	geocoder      domain.Geocoder
	publisher     ActivityPublisher
	metrics       *observability.Metrics
	logger        *slog.Logger
	actor         string

	mu      sync.Mutex
	draft   *domain.Draft
	catalog *domain.Catalog

	submitting atomic.Bool
}

// NewAuthoring starts an authoring session with an empty draft. geocoder and
// publisher may be nil.
func NewAuthoring(catalog CatalogSource, submitter Submitter, geocoder domain.Geocoder, publisher ActivityPublisher,
	actor string, metrics *observability.Metrics, logger *slog.Logger,
) *Authoring {
	return &Authoring{
		catalogSource: catalog,
		submitter:     submitter,
		geocoder:      geocoder,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger,
		actor:         actor,
		draft:         domain.NewDraft(),
	}
}

// LoadCatalog fetches the catalog once per session and attaches it to the
// draft. Calls after a successful load are no-ops; a failed load may be retried.
func (a *Authoring) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	a.mu.Lock()
	if a.catalog != nil {
		c := a.catalog
		a.mu.Unlock()
		return c, nil
	}
	a.mu.Unlock()

	bodies, err := a.catalogSource.CelestialBodies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.catalog == nil {
		a.catalog = domain.NewCatalog(bodies)
		a.draft.AttachCatalog(a.catalog)
		a.metrics.CatalogBodiesSeen.Set(float64(a.catalog.Len()))
		a.logger.Debug("catalog loaded", "bodies", a.catalog.Len())
	}
	return a.catalog, nil
}

// Draft returns the draft being edited.
func (a *Authoring) Draft() *domain.Draft {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.draft
}

// PreviewImage resolves the image of the selected body.
func (a *Authoring) PreviewImage() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.draft.CelestialBodyID()
	if !ok {
		return FallbackPreviewImage
	}
	return domain.PreviewImage(a.catalog, id, FallbackPreviewImage)
}

// SearchPlace moves the draft's marker to the best match for query.
func (a *Authoring) SearchPlace(ctx context.Context, query string) (domain.GeocodingResult, error) {
	return domain.PlaceMarker(ctx, a.Draft().Marker(), query, a.geocoder)
}

// Submit validates the draft locally and, when it is complete, creates the
// observation. Once the server has created it the draft is replaced by a
// fresh one and the caller navigates by the returned record's ID. If ctx ended
// meanwhile the draft is still replaced and ctx's error is returned. On any
// other failure the draft is kept as is.
func (a *Authoring) Submit(ctx context.Context) (domain.Record, error) {
	draft := a.Draft()
	req, err := draft.ToCreationRequest()
	if err != nil {
		a.metrics.Submissions.WithLabelValues("invalid").Inc()
		return domain.Record{}, err
	}

	if !a.submitting.CompareAndSwap(false, true) {
		a.metrics.Submissions.WithLabelValues("in_flight").Inc()
		return domain.Record{}, domain.ErrSubmissionInFlight
	}
	defer a.submitting.Store(false)

	rec, err := a.submitter.CreateObservation(ctx, req)
	if err != nil {
		a.metrics.Submissions.WithLabelValues("failed").Inc()
		return domain.Record{}, fmt.Errorf("submit observation: %w", err)
	}

	// The observation exists on the platform: the draft is spent even when
	// the caller has gone away.
	a.mu.Lock()
	if a.draft == draft {
		a.draft = domain.NewDraft()
		a.draft.AttachCatalog(a.catalog)
	}
	a.mu.Unlock()

	a.metrics.Submissions.WithLabelValues("created").Inc()
	a.logger.Info("observation created", "id", rec.ID, "celestial_body", rec.CelestialBody.ID)
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	announce(ctx, a.publisher, domain.NewActivity(domain.ActivityObservationCreated, rec, a.actor), a.metrics, a.logger)
	return rec, nil
}

// Submitting reports whether a submission is in flight.
func (a *Authoring) Submitting() bool {
	return a.submitting.Load()
}

func announce(ctx context.Context, p ActivityPublisher, ev domain.ActivityEvent, metrics *observability.Metrics, logger *slog.Logger) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		metrics.ActivityPublished.WithLabelValues(string(ev.Type), "error").Inc()
		logger.Warn("publish activity failed", "type", ev.Type, "record", ev.Record.ID, "error", err)
		return
	}
	metrics.ActivityPublished.WithLabelValues(string(ev.Type), "success").Inc()
}

// IsRetryable reports whether err leaves the action available for a manual retry.
func IsRetryable(err error) bool {
	var (
		nerr *domain.NetworkError
		aerr *domain.AuthenticationError
	)
	return errors.As(err, &nerr) || errors.As(err, &aerr) || errors.Is(err, domain.ErrSubmissionInFlight)
}
