package domain

import (
	"fmt"
	"time"
)

// UserRef identifies a platform user. Usernames are unique and serve as the
// viewer identity.
type UserRef struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// VoteDirection is one of the two vote actions offered to viewers.
type VoteDirection string

const (
	VoteUp   VoteDirection = "UPVOTE"
	VoteDown VoteDirection = "DOWNVOTE"
)

// Weight is the score delta the direction contributes.
func (v VoteDirection) Weight() int {
	switch v {
	case VoteUp:
		return 1
	case VoteDown:
		return -1
	default:
		return 0
	}
}

// ParseVoteDirection accepts "up"/"down" as well as the wire names.
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch s {
	case "up", "UP", string(VoteUp):
		return VoteUp, nil
	case "down", "DOWN", string(VoteDown):
		return VoteDown, nil
	default:
		return "", fmt.Errorf("unknown vote direction %q", s)
	}
}

// Record is a persisted observation as returned by the platform.
type Record struct {
	ID            int            `json:"id"`
	CelestialBody CelestialBody  `json:"celestialBody"`
	Owner         UserRef        `json:"owner"`
	Timestamp     time.Time      `json:"timestamp"`
	Orientation   float64        `json:"orientation"`
	Visibility    Visibility     `json:"visibility"`
	Coordinate    Coordinate     `json:"coordinate"`
	Description   string         `json:"description,omitempty"`
	VoteScore     int            `json:"voteScore"`
	CurrentVote   *VoteDirection `json:"currentVote,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// effectiveTime is the observation timestamp, or the creation time when the
// platform did not return one.
func (r Record) effectiveTime() time.Time {
	if r.Timestamp.IsZero() {
		return r.CreatedAt
	}
	return r.Timestamp
}

// ExpiryWindow returns the body's validity time, or defaultWindow when the
// body does not define one.
func (r Record) ExpiryWindow(defaultWindow time.Duration) time.Duration {
	if r.CelestialBody.ValidityTime > 0 {
		return time.Duration(r.CelestialBody.ValidityTime) * time.Hour
	}
	return defaultWindow
}

// IsExpired reports whether more than the expiry window has elapsed since the
// observation. It depends only on the record and now.
func (r Record) IsExpired(now time.Time, defaultWindow time.Duration) bool {
	return now.Sub(r.effectiveTime()) > r.ExpiryWindow(defaultWindow)
}

// Expired evaluates IsExpired against the package clock.
func (r Record) Expired(defaultWindow time.Duration) bool {
	return r.IsExpired(clock.Now(), defaultWindow)
}

// ExpiresAt returns the instant after which the record counts as expired.
func (r Record) ExpiresAt(defaultWindow time.Duration) time.Time {
	return r.effectiveTime().Add(r.ExpiryWindow(defaultWindow))
}

// VoteDelta is the score change of moving the viewer's vote from CurrentVote
// to dir. A nil dir withdraws the vote.
func (r Record) VoteDelta(dir *VoteDirection) int {
	delta := 0
	if r.CurrentVote != nil {
		delta -= r.CurrentVote.Weight()
	}
	if dir != nil {
		delta += dir.Weight()
	}
	return delta
}

// ApplyVote returns a copy of the record with the viewer's vote set to dir.
// A previous vote is replaced, not added to. An unknown direction leaves the
// record unchanged. The receiver is not modified.
func (r Record) ApplyVote(dir VoteDirection) Record {
	if dir.Weight() == 0 {
		return r
	}
	out := r
	out.VoteScore += r.VoteDelta(&dir)
	out.CurrentVote = &dir
	return out
}

// RetractVote returns a copy of the record without the viewer's vote.
func (r Record) RetractVote() Record {
	out := r
	out.VoteScore += r.VoteDelta(nil)
	out.CurrentVote = nil
	return out
}

// IsOwnedBy reports whether username authored the record. It only gates which
// actions are offered; the record does not enforce viewer identity.
func (r Record) IsOwnedBy(username string) bool {
	return username != "" && r.Owner.Username == username
}

// Karma sums the vote scores of a user's records.
func Karma(records []Record) int {
	total := 0
	for _, r := range records {
		total += r.VoteScore
	}
	return total
}

// Tally is a vote score with an optional unconfirmed local delta. The
// confirmed value always comes from the platform.
type Tally struct {
	confirmed int
	pending   *int
}

// NewTally starts a tally at a platform-confirmed score.
func NewTally(confirmed int) Tally {
	return Tally{confirmed: confirmed}
}

// Propose records an optimistic delta on top of the confirmed score,
// replacing any earlier pending delta.
func (t Tally) Propose(delta int) Tally {
	t.pending = &delta
	return t
}

// Confirm adopts the platform's score and discards the pending delta.
func (t Tally) Confirm(score int) Tally {
	return Tally{confirmed: score}
}

// Rollback discards the pending delta.
func (t Tally) Rollback() Tally {
	return Tally{confirmed: t.confirmed}
}

// Display is the score to render: confirmed plus any pending delta.
func (t Tally) Display() int {
	if t.pending == nil {
		return t.confirmed
	}
	return t.confirmed + *t.pending
}

func (t Tally) Confirmed() int { return t.confirmed }

func (t Tally) Pending() bool { return t.pending != nil }
