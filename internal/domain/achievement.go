package domain

import (
	"errors"
	"fmt"
)

// AchievementKind is a badge category.
type AchievementKind string

const (
	AchievementFamous    AchievementKind = "FAMOUS"
	AchievementHubble    AchievementKind = "HUBBLE"
	AchievementJamesWebb AchievementKind = "JAMES_WEBB"
	AchievementJudge     AchievementKind = "JUDGE"
	AchievementObserver  AchievementKind = "OBSERVER"
)

// AchievementKinds lists every kind in display order.
var AchievementKinds = []AchievementKind{
	AchievementFamous,
	AchievementHubble,
	AchievementJamesWebb,
	AchievementJudge,
	AchievementObserver,
}

// AchievementLevel is the tier reached within a kind.
type AchievementLevel string

const (
	LevelBronze   AchievementLevel = "BRONZE"
	LevelSilver   AchievementLevel = "SILVER"
	LevelGold     AchievementLevel = "GOLD"
	LevelPlatinum AchievementLevel = "PLATINUM"
)

// AchievementLevels lists every level from lowest to highest.
var AchievementLevels = []AchievementLevel{LevelBronze, LevelSilver, LevelGold, LevelPlatinum}

// Achievement is one (kind, level) pair held by a user.
type Achievement struct {
	Kind  AchievementKind  `json:"achievement"`
	Level AchievementLevel `json:"level"`
}

// Label is what a badge renders.
type Label struct {
	Kind  string
	Level string
	Image string
}

type kindDisplay struct {
	text  string
	image string
}

var kindTable = map[AchievementKind]kindDisplay{
	AchievementFamous:    {text: "Famous", image: "FAMOUS.png"},
	AchievementHubble:    {text: "Hubble", image: "HUBBLE.jpg"},
	AchievementJamesWebb: {text: "James Webb", image: "JAMES_WEBB.jpg"},
	AchievementJudge:     {text: "Judge", image: "JUDGE.jpg"},
	AchievementObserver:  {text: "Observer", image: "OBSERVER.jpg"},
}

var levelTable = map[AchievementLevel]string{
	LevelBronze:   "Bronze",
	LevelSilver:   "Silver",
	LevelGold:     "Gold",
	LevelPlatinum: "Platinum",
}

// DisplayLabel maps an achievement to its display text and image key.
func DisplayLabel(a Achievement) (Label, error) {
	kind, ok := kindTable[a.Kind]
	if !ok {
		return Label{}, &ConfigurationError{Kind: string(a.Kind), Detail: "no display mapping for achievement kind"}
	}
	level, ok := levelTable[a.Level]
	if !ok {
		return Label{}, &ConfigurationError{Kind: string(a.Kind), Detail: fmt.Sprintf("no display mapping for level %q", a.Level)}
	}
	return Label{Kind: kind.text, Level: level, Image: kind.image}, nil
}

// ValidateAchievementTables checks that every declared kind and level has a
// display mapping with an image. Binaries call it at startup.
func ValidateAchievementTables() error {
	var errs []error
	for _, k := range AchievementKinds {
		d, ok := kindTable[k]
		if !ok || d.text == "" || d.image == "" {
			errs = append(errs, &ConfigurationError{Kind: string(k), Detail: "missing kind mapping"})
		}
	}
	for _, l := range AchievementLevels {
		if levelTable[l] == "" {
			errs = append(errs, &ConfigurationError{Kind: string(l), Detail: "missing level mapping"})
		}
	}
	return errors.Join(errs...)
}

// Ledger is a user's achievements, at most one level per kind.
type Ledger struct {
	byKind map[AchievementKind]AchievementLevel
	order  []AchievementKind
}

// NewLedger builds a ledger, refusing a kind that appears twice.
func NewLedger(items []Achievement) (Ledger, error) {
	l := Ledger{byKind: make(map[AchievementKind]AchievementLevel, len(items))}
	for _, a := range items {
		if _, dup := l.byKind[a.Kind]; dup {
			return Ledger{}, fmt.Errorf("achievement %s listed more than once", a.Kind)
		}
		l.byKind[a.Kind] = a.Level
		l.order = append(l.order, a.Kind)
	}
	return l, nil
}

// Achievements returns the ledger entries in the order received.
func (l Ledger) Achievements() []Achievement {
	out := make([]Achievement, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, Achievement{Kind: k, Level: l.byKind[k]})
	}
	return out
}

// Level returns the level held for kind.
func (l Ledger) Level(kind AchievementKind) (AchievementLevel, bool) {
	lvl, ok := l.byKind[kind]
	return lvl, ok
}

func (l Ledger) Len() int { return len(l.order) }
