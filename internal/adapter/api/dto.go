package api

import (
	"time"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

// recordDTO is an observation as serialized by the platform.
type recordDTO struct {
	ID            int                   `json:"id"`
	CelestialBody domain.CelestialBody  `json:"celestialBody"`
	Author        domain.UserRef        `json:"author"`
	Timestamp     time.Time             `json:"timestamp"`
	Orientation   float64               `json:"orientation"`
	Visibility    domain.Visibility     `json:"visibility"`
	Lat           float64               `json:"lat"`
	Lng           float64               `json:"lng"`
	Description   string                `json:"description"`
	Karma         int                   `json:"karma"`
	CurrentVote   *domain.VoteDirection `json:"currentVote"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func (d recordDTO) toDomain() domain.Record {
	return domain.Record{
		ID:            d.ID,
		CelestialBody: d.CelestialBody,
		Owner:         d.Author,
		Timestamp:     d.Timestamp,
		Orientation:   d.Orientation,
		Visibility:    d.Visibility,
		Coordinate:    domain.Coordinate{Lat: d.Lat, Lng: d.Lng},
		Description:   d.Description,
		VoteScore:     d.Karma,
		CurrentVote:   d.CurrentVote,
		CreatedAt:     d.CreatedAt,
	}
}

func toRecords(in []recordDTO) []domain.Record {
	out := make([]domain.Record, len(in))
	for i := range in {
		out[i] = in[i].toDomain()
	}
	return out
}

type userDTO struct {
	Username     string               `json:"username"`
	Avatar       string               `json:"avatar"`
	Biography    string               `json:"biography"`
	Karma        int                  `json:"karma"`
	Achievements []domain.Achievement `json:"achievements"`
}

func (d userDTO) toDomain() domain.UserProfile {
	return domain.UserProfile{
		User:         domain.UserRef{Username: d.Username, Avatar: d.Avatar},
		Biography:    d.Biography,
		Karma:        d.Karma,
		Achievements: d.Achievements,
	}
}

type voteDTO struct {
	Vote *domain.VoteDirection `json:"vote"`
}

type tokenDTO struct {
	AccessToken string `json:"accessToken"`
}

type errorDTO struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}
