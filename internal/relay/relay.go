// Package relay submits observation reports read from a message stream to
// the platform, running each through the same draft validation a user's form
// goes through.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

// Report is a validated report ready for submission.
type Report struct {
	Key       string
	Request   domain.CreationRequest
	Topic     string
	Partition int
	Offset    int64
}

// BatchExtractor reads up to batchSize raw reports from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawReport, error)
}

// Transformer turns a raw report into a submittable one. Prepare must succeed
// before the first Transform.
type Transformer interface {
	Prepare(ctx context.Context) error
	Transform(ctx context.Context, raw domain.RawReport) (Report, error)
}

// BatchLoader submits validated reports.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []Report) error
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the celestial body catalog is loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("catalog not loaded yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("relay started", "batch_size", p.batchSize)
	p.metrics.RelayRunning.Set(1)
	defer p.metrics.RelayRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	if !p.prepare(ctx, &backoff, maxBackoff) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("relay stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// prepare retries the transformer's setup until it succeeds. Returns false if
// the pipeline should stop.
func (p *Pipeline) prepare(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	for {
		err := p.transformer.Prepare(ctx)
		if err == nil {
			p.ready.Store(true)
			*backoff = 200 * time.Millisecond
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load catalog failed", "error", err)
		if !p.backoffOrStop(ctx, backoff, maxBackoff) {
			return false
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.ReportsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	reports, valid := p.transform(ctx, rawBatch)
	if len(reports) == 0 {
		return true
	}

	// A failed load retries the same reports; the loader skips the ones it
	// already submitted.
	for {
		err := p.loader.LoadBatch(ctx, reports)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(reports))
		if !p.backoffOrStop(ctx, backoff, maxBackoff) {
			return false
		}
	}

	for _, raw := range valid {
		p.commitOffset(ctx, raw)
	}
	p.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	return true
}

// transform validates each report in the batch. Invalid reports are logged,
// counted and committed so they are not redelivered.
func (p *Pipeline) transform(ctx context.Context, rawBatch []domain.RawReport) ([]Report, []domain.RawReport) {
	reports := make([]Report, 0, len(rawBatch))
	valid := make([]domain.RawReport, 0, len(rawBatch))

	for _, raw := range rawBatch {
		report, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("invalid report, skipping",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.ReportsInvalid.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		reports = append(reports, report)
		valid = append(valid, raw)
	}
	return reports, valid
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawReport) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
