package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

// FallbackBadgeImage is rendered for an achievement kind with no display mapping.
const FallbackBadgeImage = "fallback.png"

// Badge is one rendered achievement.
type Badge struct {
	Achievement domain.Achievement
	Kind        string
	Level       string
	Image       string
	Fallback    bool
}

// Badges renders a user's achievements.
type Badges struct {
	source  AchievementSource
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewBadges(source AchievementSource, metrics *observability.Metrics, logger *slog.Logger) *Badges {
	return &Badges{source: source, metrics: metrics, logger: logger}
}

// Render fetches username's ledger and maps every entry to a badge.
func (b *Badges) Render(ctx context.Context, username string) ([]Badge, error) {
	items, err := b.source.Achievements(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetch achievements: %w", err)
	}
	return b.render(items), nil
}

func (b *Badges) render(items []domain.Achievement) []Badge {
	ledger, err := domain.NewLedger(items)
	if err != nil {
		b.logger.Warn("achievement ledger has duplicate kinds, keeping the first of each", "error", err)
		ledger, _ = domain.NewLedger(firstOfEachKind(items))
	}
	out := make([]Badge, 0, ledger.Len())
	for _, a := range ledger.Achievements() {
		label, err := domain.DisplayLabel(a)
		if err != nil {
			b.logger.Warn("achievement rendered with fallback badge", "kind", a.Kind, "level", a.Level, "error", err)
			b.metrics.AchievementFallbacks.WithLabelValues(string(a.Kind)).Inc()
			out = append(out, Badge{
				Achievement: a,
				Kind:        string(a.Kind),
				Level:       string(a.Level),
				Image:       FallbackBadgeImage,
				Fallback:    true,
			})
			continue
		}
		out = append(out, Badge{
			Achievement: a,
			Kind:        label.Kind,
			Level:       label.Level,
			Image:       label.Image,
		})
	}
	return out
}

func firstOfEachKind(items []domain.Achievement) []domain.Achievement {
	seen := make(map[domain.AchievementKind]bool, len(items))
	out := make([]domain.Achievement, 0, len(items))
	for _, a := range items {
		if seen[a.Kind] {
			continue
		}
		seen[a.Kind] = true
		out = append(out, a)
	}
	return out
}
