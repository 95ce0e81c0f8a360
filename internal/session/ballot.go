package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

// Ballot drives the vote score of one displayed record. The score shown while
// a vote is in flight is the confirmed score plus the optimistic delta; the
// confirmed score is only ever taken from the platform.
type Ballot struct {
	voter     Voter
	publisher ActivityPublisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	actor     string

	mu     sync.Mutex
	record domain.Record
	tally  domain.Tally
}

// NewBallot starts a ballot for rec. publisher may be nil.
func NewBallot(rec domain.Record, voter Voter, publisher ActivityPublisher, actor string,
	metrics *observability.Metrics, logger *slog.Logger,
) *Ballot {
	return &Ballot{
		voter:     voter,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		actor:     actor,
		record:    rec,
		tally:     domain.NewTally(rec.VoteScore),
	}
}

// Record returns the last known record.
func (b *Ballot) Record() domain.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.record
}

// Tally returns the score state to render.
func (b *Ballot) Tally() domain.Tally {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tally
}

// Cast votes dir on the record. Calls are not debounced.
func (b *Ballot) Cast(ctx context.Context, dir domain.VoteDirection) (domain.Record, error) {
	if dir.Weight() == 0 {
		return domain.Record{}, fmt.Errorf("cast vote: unknown direction %q", dir)
	}
	return b.submit(ctx, &dir)
}

// Retract withdraws the viewer's vote.
func (b *Ballot) Retract(ctx context.Context) (domain.Record, error) {
	return b.submit(ctx, nil)
}

func (b *Ballot) submit(ctx context.Context, dir *domain.VoteDirection) (domain.Record, error) {
	b.mu.Lock()
	prev := b.record
	b.tally = b.tally.Propose(prev.VoteDelta(dir))
	b.mu.Unlock()

	label := directionLabel(dir)
	if err := b.voter.Vote(ctx, prev.ID, dir); err != nil {
		b.mu.Lock()
		b.tally = b.tally.Rollback()
		b.mu.Unlock()
		b.metrics.Votes.WithLabelValues(label, "rolled_back").Inc()
		return domain.Record{}, fmt.Errorf("vote on observation %d: %w", prev.ID, err)
	}

	rec, err := b.voter.Observation(ctx, prev.ID)
	if err != nil {
		// The vote was accepted; keep the local outcome as the best known score.
		if dir != nil {
			rec = prev.ApplyVote(*dir)
		} else {
			rec = prev.RetractVote()
		}
		b.logger.Warn("refresh after vote failed", "id", prev.ID, "error", err)
	}

	b.mu.Lock()
	b.record = rec
	b.tally = b.tally.Confirm(rec.VoteScore)
	b.mu.Unlock()

	b.metrics.Votes.WithLabelValues(label, "confirmed").Inc()
	ev := domain.NewActivity(domain.ActivityObservationVoted, rec, b.actor)
	if dir != nil {
		ev.Direction = *dir
	}
	announce(ctx, b.publisher, ev, b.metrics, b.logger)
	return rec, nil
}

func directionLabel(dir *domain.VoteDirection) string {
	if dir == nil {
		return "retract"
	}
	return string(*dir)
}
