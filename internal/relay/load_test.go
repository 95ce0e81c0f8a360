package relay_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/open-observatory/internal/adapter/sqlite"
	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/relay"
)

type mockSubmitter struct {
	mu       sync.Mutex
	requests []domain.CreationRequest
	nextID   int
	errs     map[int]error // by celestial body id
}

func (m *mockSubmitter) CreateObservation(_ context.Context, req domain.CreationRequest) (domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[req.CelestialBodyID]; err != nil {
		return domain.Record{}, err
	}
	m.requests = append(m.requests, req)
	m.nextID++
	return domain.Record{
		ID:            100 + m.nextID,
		CelestialBody: domain.CelestialBody{ID: req.CelestialBodyID},
		Owner:         domain.UserRef{Username: "allsky-bot"},
		Timestamp:     req.Timestamp,
	}, nil
}

type mockPublisher struct {
	events []domain.ActivityEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, events ...domain.ActivityEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func openLog(t *testing.T) *sqlite.SubmissionLog {
	t.Helper()
	log, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func report(key string, bodyID int) relay.Report {
	return relay.Report{
		Key:   key,
		Topic: "observation-reports",
		Request: domain.CreationRequest{
			CelestialBodyID: bodyID,
			Timestamp:       time.Date(2024, 4, 26, 21, 30, 0, 0, time.UTC),
			Orientation:     "135",
			Visibility:      domain.VisibilityTelescope,
			Lat:             49.2812,
			Lng:             1.7791,
		},
	}
}

func unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func TestSubmittingLoader_SubmitsAndRecords(t *testing.T) {
	log := openLog(t)
	sub := &mockSubmitter{}
	pub := &mockPublisher{}
	l := relay.NewLoader(log, sub, unlimited(), pub, newTestMetrics(), slog.Default())

	require.NoError(t, l.LoadBatch(context.Background(), []relay.Report{report("a", 1), report("b", 3)}))

	assert.Len(t, sub.requests, 2)
	id, ok, err := log.Lookup(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 102, id)

	require.Len(t, pub.events, 2)
	assert.Equal(t, domain.ActivityObservationCreated, pub.events[0].Type)
	assert.Equal(t, "allsky-bot", pub.events[0].Actor)
}

func TestSubmittingLoader_SkipsAlreadySubmitted(t *testing.T) {
	log := openLog(t)
	require.NoError(t, log.Record(context.Background(), domain.Submission{ReportKey: "a", ObservationID: 7}))
	sub := &mockSubmitter{}
	l := relay.NewLoader(log, sub, unlimited(), nil, newTestMetrics(), slog.Default())

	require.NoError(t, l.LoadBatch(context.Background(), []relay.Report{report("a", 1), report("b", 1)}))

	require.Len(t, sub.requests, 1)
}

func TestSubmittingLoader_RetryAfterPartialFailure(t *testing.T) {
	log := openLog(t)
	sub := &mockSubmitter{errs: map[int]error{
		3: &domain.NetworkError{Op: "create observation", Err: errors.New("connection reset")},
	}}
	l := relay.NewLoader(log, sub, unlimited(), nil, newTestMetrics(), slog.Default())
	batch := []relay.Report{report("a", 1), report("b", 3)}

	err := l.LoadBatch(context.Background(), batch)
	var nerr *domain.NetworkError
	require.ErrorAs(t, err, &nerr)
	require.Len(t, sub.requests, 1)

	delete(sub.errs, 3)
	require.NoError(t, l.LoadBatch(context.Background(), batch))
	require.Len(t, sub.requests, 2, "the first report is not submitted twice")
	assert.Equal(t, 3, sub.requests[1].CelestialBodyID)
}

func TestSubmittingLoader_PlatformValidationSkipped(t *testing.T) {
	log := openLog(t)
	sub := &mockSubmitter{errs: map[int]error{
		3: &domain.ValidationError{Invalid: map[domain.Field]string{domain.FieldTimestamp: "in the future"}},
	}}
	l := relay.NewLoader(log, sub, unlimited(), nil, newTestMetrics(), slog.Default())

	require.NoError(t, l.LoadBatch(context.Background(), []relay.Report{report("a", 3), report("b", 1)}))

	require.Len(t, sub.requests, 1)
	_, ok, err := log.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmittingLoader_PublishFailureIgnored(t *testing.T) {
	l := relay.NewLoader(openLog(t), &mockSubmitter{}, unlimited(), &mockPublisher{err: errors.New("broker down")}, newTestMetrics(), slog.Default())
	require.NoError(t, l.LoadBatch(context.Background(), []relay.Report{report("a", 1)}))
}

func TestSubmittingLoader_RateLimitHonoursContext(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	sub := &mockSubmitter{}
	l := relay.NewLoader(openLog(t), sub, limiter, nil, newTestMetrics(), slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := l.LoadBatch(ctx, []relay.Report{report("a", 1), report("b", 1)})
	require.Error(t, err)
	assert.Len(t, sub.requests, 1)
}

// flakyLog fails the first Record calls, then delegates.
type flakyLog struct {
	relay.SubmissionLog
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyLog) Record(ctx context.Context, s domain.Submission) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("database is locked")
	}
	return f.SubmissionLog.Record(ctx, s)
}

func TestSubmittingLoader_RecordFailureDoesNotResubmit(t *testing.T) {
	log := &flakyLog{SubmissionLog: openLog(t), failures: 1}
	sub := &mockSubmitter{}
	l := relay.NewLoader(log, sub, unlimited(), nil, newTestMetrics(), slog.Default())
	batch := []relay.Report{report("a", 1)}

	require.NoError(t, l.LoadBatch(context.Background(), batch))
	require.NoError(t, l.LoadBatch(context.Background(), batch))

	assert.Len(t, sub.requests, 1)
	assert.Equal(t, 2, log.calls)
	id, ok, err := log.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 101, id)
}

func TestSubmittingLoader_RecordRetryStopsWithContext(t *testing.T) {
	log := &flakyLog{SubmissionLog: openLog(t), failures: 1000}
	sub := &mockSubmitter{}
	l := relay.NewLoader(log, sub, unlimited(), nil, newTestMetrics(), slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := l.LoadBatch(ctx, []relay.Report{report("a", 1)})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, sub.requests, 1)
	assert.GreaterOrEqual(t, log.calls, 2)
}
