package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testBodies = []domain.CelestialBody{
	{ID: 1, Name: "Moon", Image: "moon.png"},
	{ID: 3, Name: "Jupiter", Image: "jupiter.png", ValidityTime: 5},
}

type mockCatalog struct {
	mu     sync.Mutex
	calls  int
	bodies []domain.CelestialBody
	err    error
}

func (m *mockCatalog) CelestialBodies(_ context.Context) ([]domain.CelestialBody, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.bodies, nil
}

type mockSubmitter struct {
	mu       sync.Mutex
	requests []domain.CreationRequest
	record   domain.Record
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (m *mockSubmitter) CreateObservation(_ context.Context, req domain.CreationRequest) (domain.Record, error) {
	if m.entered != nil {
		close(m.entered)
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return domain.Record{}, m.err
	}
	return m.record, nil
}

type mockVoter struct {
	votes    []*domain.VoteDirection
	voteErr  error
	record   domain.Record
	fetchErr error
}

func (m *mockVoter) Vote(_ context.Context, _ int, dir *domain.VoteDirection) error {
	m.votes = append(m.votes, dir)
	return m.voteErr
}

func (m *mockVoter) Observation(_ context.Context, _ int) (domain.Record, error) {
	if m.fetchErr != nil {
		return domain.Record{}, m.fetchErr
	}
	return m.record, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, events ...domain.ActivityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

type mockAchievements struct {
	items []domain.Achievement
	err   error
}

func (m *mockAchievements) Achievements(_ context.Context, _ string) ([]domain.Achievement, error) {
	return m.items, m.err
}

type mockProfiles struct {
	profile    domain.UserProfile
	records    []domain.Record
	userErr    error
	recordsErr error
}

func (m *mockProfiles) User(_ context.Context, _ string) (domain.UserProfile, error) {
	return m.profile, m.userErr
}

func (m *mockProfiles) UserObservations(_ context.Context, _ string) ([]domain.Record, error) {
	return m.records, m.recordsErr
}

var testObservedAt = time.Date(2024, 4, 26, 21, 30, 0, 0, time.UTC)

// fillDraft sets every mandatory field of d.
func fillDraft(d *domain.Draft) error {
	if err := d.SetCelestialBody(3); err != nil {
		return err
	}
	d.SetTimestamp(testObservedAt)
	if err := d.SetOrientation("135"); err != nil {
		return err
	}
	if err := d.SetVisibility(domain.VisibilityTelescope); err != nil {
		return err
	}
	d.Marker().OnMapInteraction(domain.Coordinate{Lat: 48.85, Lng: 2.35})
	return nil
}
