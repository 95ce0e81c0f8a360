// Package session orchestrates one viewer's authoring and lifecycle flows on
// top of the domain model: loading the catalog, submitting drafts, voting and
// rendering achievements. Values in this package are meant to live for one
// viewing session and are driven from a single caller.
package session

import (
	"context"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

// CatalogSource lists the selectable celestial bodies.
type CatalogSource interface {
	CelestialBodies(ctx context.Context) ([]domain.CelestialBody, error)
}

// Submitter persists a validated draft.
type Submitter interface {
	CreateObservation(ctx context.Context, req domain.CreationRequest) (domain.Record, error)
}

// Voter casts votes and re-reads the authoritative record.
type Voter interface {
	Vote(ctx context.Context, id int, dir *domain.VoteDirection) error
	Observation(ctx context.Context, id int) (domain.Record, error)
}

// AchievementSource lists a user's achievements.
type AchievementSource interface {
	Achievements(ctx context.Context, username string) ([]domain.Achievement, error)
}

// ProfileSource reads public profiles and the records a user authored.
type ProfileSource interface {
	User(ctx context.Context, username string) (domain.UserProfile, error)
	UserObservations(ctx context.Context, username string) ([]domain.Record, error)
}

// ActivityPublisher announces lifecycle changes. Publishing is best-effort.
type ActivityPublisher interface {
	Publish(ctx context.Context, events ...domain.ActivityEvent) error
}
