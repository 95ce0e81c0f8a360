package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

// SubmissionLog remembers which reports were already submitted.
type SubmissionLog interface {
	Lookup(ctx context.Context, key string) (int, bool, error)
	Record(ctx context.Context, s domain.Submission) error
}

// Submitter creates observations on the platform.
type Submitter interface {
	CreateObservation(ctx context.Context, req domain.CreationRequest) (domain.Record, error)
}

// ActivityPublisher announces created observations.
type ActivityPublisher interface {
	Publish(ctx context.Context, events ...domain.ActivityEvent) error
}

// SubmittingLoader implements BatchLoader against the platform API. Each
// report key is submitted at most once; submissions are throttled.
type SubmittingLoader struct {
	log       SubmissionLog
	submitter Submitter
	limiter   *rate.Limiter
	publisher ActivityPublisher
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewLoader creates a SubmittingLoader. publisher may be nil.
func NewLoader(log SubmissionLog, submitter Submitter, limiter *rate.Limiter, publisher ActivityPublisher,
	metrics *observability.Metrics, logger *slog.Logger,
) *SubmittingLoader {
	return &SubmittingLoader{
		log:       log,
		submitter: submitter,
		limiter:   limiter,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// LoadBatch submits the reports in order and stops at the first error that
// warrants a retry. Reports the platform refuses as invalid are skipped.
func (l *SubmittingLoader) LoadBatch(ctx context.Context, reports []Report) error {
	var events []domain.ActivityEvent
	defer func() { l.publish(ctx, events) }()

	for _, r := range reports {
		id, seen, err := l.log.Lookup(ctx, r.Key)
		if err != nil {
			return err
		}
		if seen {
			l.metrics.ReportsDuplicate.Inc()
			l.logger.Debug("report already submitted", "key", r.Key, "observation_id", id)
			continue
		}

		if err := l.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for submit slot: %w", err)
		}

		rec, err := l.submitter.CreateObservation(ctx, r.Request)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				l.metrics.ReportsInvalid.Inc()
				l.logger.Warn("platform refused report, skipping", "key", r.Key, "error", err)
				continue
			}
			return fmt.Errorf("submit report %s: %w", r.Key, err)
		}

		// The observation exists on the platform from here on: only the log
		// write may be retried.
		if err := l.record(ctx, domain.Submission{
			ReportKey:     r.Key,
			ObservationID: rec.ID,
			Topic:         r.Topic,
			Offset:        r.Offset,
		}); err != nil {
			return err
		}
		l.metrics.ReportsSubmitted.Inc()
		l.logger.Info("report submitted", "key", r.Key, "observation_id", rec.ID)
		events = append(events, domain.NewActivity(domain.ActivityObservationCreated, rec, rec.Owner.Username))
	}
	return nil
}

// record writes s to the log, backing off until it succeeds or ctx ends.
func (l *SubmittingLoader) record(ctx context.Context, s domain.Submission) error {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second
	for {
		err := l.log.Record(ctx, s)
		if err == nil {
			return nil
		}
		l.logger.Error("record submission failed, retrying",
			"key", s.ReportKey,
			"observation_id", s.ObservationID,
			"error", err,
		)
		if !sleepWithContext(ctx, backoff) {
			return fmt.Errorf("record submission %s (observation %d): %w", s.ReportKey, s.ObservationID, ctx.Err())
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func (l *SubmittingLoader) publish(ctx context.Context, events []domain.ActivityEvent) {
	if l.publisher == nil || len(events) == 0 {
		return
	}
	outcome := "success"
	if err := l.publisher.Publish(ctx, events...); err != nil {
		outcome = "error"
		l.logger.Warn("publish activity failed", "count", len(events), "error", err)
	}
	l.metrics.ActivityPublished.WithLabelValues(string(domain.ActivityObservationCreated), outcome).Add(float64(len(events)))
}
