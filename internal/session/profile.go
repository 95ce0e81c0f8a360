package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

// ProfileView is a user's public page.
type ProfileView struct {
	User         domain.UserRef
	Biography    string
	Karma        int
	Observations []domain.Record
	Badges       []Badge
}

// Profiles assembles profile pages.
type Profiles struct {
	source ProfileSource
	badges *Badges
}

func NewProfiles(source ProfileSource, metrics *observability.Metrics, logger *slog.Logger) *Profiles {
	return &Profiles{source: source, badges: NewBadges(nil, metrics, logger)}
}

// Profile returns username's profile. Karma is recomputed from the user's
// records so it agrees with the scores shown next to them.
func (p *Profiles) Profile(ctx context.Context, username string) (ProfileView, error) {
	user, err := p.source.User(ctx, username)
	if err != nil {
		return ProfileView{}, fmt.Errorf("fetch user %s: %w", username, err)
	}
	records, err := p.source.UserObservations(ctx, username)
	if err != nil {
		return ProfileView{}, fmt.Errorf("fetch observations of %s: %w", username, err)
	}
	return ProfileView{
		User:         user.User,
		Biography:    user.Biography,
		Karma:        domain.Karma(records),
		Observations: records,
		Badges:       p.badges.render(user.Achievements),
	}, nil
}
