package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

func TestBadges_Render(t *testing.T) {
	src := &mockAchievements{items: []domain.Achievement{
		{Kind: domain.AchievementHubble, Level: domain.LevelGold},
		{Kind: domain.AchievementObserver, Level: domain.LevelBronze},
	}}
	b := NewBadges(src, observability.NewMetricsForTesting(), discardLogger())

	badges, err := b.Render(context.Background(), "astro")
	require.NoError(t, err)

	assert.Equal(t, []Badge{
		{Achievement: src.items[0], Kind: "Hubble", Level: "Gold", Image: "HUBBLE.jpg"},
		{Achievement: src.items[1], Kind: "Observer", Level: "Bronze", Image: "OBSERVER.jpg"},
	}, badges)
}

func TestBadges_Render_UnmappedKindUsesFallback(t *testing.T) {
	unknown := domain.Achievement{Kind: "COMET_HUNTER", Level: domain.LevelSilver}
	src := &mockAchievements{items: []domain.Achievement{
		{Kind: domain.AchievementJudge, Level: domain.LevelPlatinum},
		unknown,
	}}
	b := NewBadges(src, observability.NewMetricsForTesting(), discardLogger())

	badges, err := b.Render(context.Background(), "astro")
	require.NoError(t, err)

	require.Len(t, badges, 2, "unmapped achievements are never dropped")
	assert.False(t, badges[0].Fallback)
	assert.Equal(t, Badge{
		Achievement: unknown,
		Kind:        "COMET_HUNTER",
		Level:       "SILVER",
		Image:       FallbackBadgeImage,
		Fallback:    true,
	}, badges[1])
}

func TestBadges_Render_Empty(t *testing.T) {
	b := NewBadges(&mockAchievements{}, observability.NewMetricsForTesting(), discardLogger())

	badges, err := b.Render(context.Background(), "newcomer")
	require.NoError(t, err)
	assert.Empty(t, badges)
}

func TestBadges_Render_DuplicateKind(t *testing.T) {
	src := &mockAchievements{items: []domain.Achievement{
		{Kind: domain.AchievementFamous, Level: domain.LevelBronze},
		{Kind: domain.AchievementFamous, Level: domain.LevelGold},
	}}
	b := NewBadges(src, observability.NewMetricsForTesting(), discardLogger())

	badges, err := b.Render(context.Background(), "astro")
	require.NoError(t, err)

	require.Len(t, badges, 1)
	assert.Equal(t, "Famous", badges[0].Kind)
	assert.Equal(t, "Bronze", badges[0].Level)
	assert.False(t, badges[0].Fallback)
}

func TestProfiles_Profile_DuplicateKindStillRenders(t *testing.T) {
	src := &mockProfiles{profile: domain.UserProfile{
		User: domain.UserRef{Username: "astro"},
		Achievements: []domain.Achievement{
			{Kind: domain.AchievementJudge, Level: domain.LevelSilver},
			{Kind: domain.AchievementHubble, Level: domain.LevelGold},
			{Kind: domain.AchievementJudge, Level: domain.LevelPlatinum},
		},
	}}
	p := NewProfiles(src, observability.NewMetricsForTesting(), discardLogger())

	view, err := p.Profile(context.Background(), "astro")
	require.NoError(t, err)

	require.Len(t, view.Badges, 2)
	assert.Equal(t, domain.AchievementJudge, view.Badges[0].Achievement.Kind)
	assert.Equal(t, domain.LevelSilver, view.Badges[0].Achievement.Level)
	assert.Equal(t, domain.AchievementHubble, view.Badges[1].Achievement.Kind)
}

func TestBadges_Render_SourceError(t *testing.T) {
	src := &mockAchievements{err: domain.ErrNotFound}
	b := NewBadges(src, observability.NewMetricsForTesting(), discardLogger())

	_, err := b.Render(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfiles_Profile(t *testing.T) {
	r1 := createdRecord()
	r1.VoteScore = 7
	r2 := createdRecord()
	r2.ID = 78
	r2.VoteScore = -2
	src := &mockProfiles{
		profile: domain.UserProfile{
			User:         domain.UserRef{Username: "astro"},
			Biography:    "Amateur astronomer",
			Karma:        3,
			Achievements: []domain.Achievement{{Kind: domain.AchievementFamous, Level: domain.LevelSilver}},
		},
		records: []domain.Record{r1, r2},
	}
	p := NewProfiles(src, observability.NewMetricsForTesting(), discardLogger())

	view, err := p.Profile(context.Background(), "astro")
	require.NoError(t, err)

	assert.Equal(t, "astro", view.User.Username)
	assert.Equal(t, "Amateur astronomer", view.Biography)
	assert.Equal(t, 5, view.Karma)
	assert.Len(t, view.Observations, 2)
	require.Len(t, view.Badges, 1)
	assert.Equal(t, "Famous", view.Badges[0].Kind)
	assert.Equal(t, "FAMOUS.png", view.Badges[0].Image)
}

func TestProfiles_Profile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  *mockProfiles
	}{
		{"user", &mockProfiles{userErr: domain.ErrNotFound}},
		{"observations", &mockProfiles{recordsErr: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProfiles(tt.src, observability.NewMetricsForTesting(), discardLogger())
			_, err := p.Profile(context.Background(), "astro")
			require.Error(t, err)
		})
	}
}
