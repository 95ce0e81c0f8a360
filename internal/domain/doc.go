// Package domain models Open Observatory observations: the client-held draft
// a user authors, the map marker bound to it, the record the platform returns
// after submission, and the achievement ledger shown on user profiles.
//
// # Authoring
//
// A [Draft] collects five mandatory fields before it can be turned into a
// [CreationRequest]:
//
//	celestialBodyId  must exist in the loaded [Catalog] (checked lazily when
//	                 the catalog arrives after the selection)
//	timestamp        date and time of the observation
//	orientation      free text that must contain at least one ASCII digit,
//	                 e.g. "98", "98°", "deg45"; the value is not range-checked
//	visibility       NAKED_EYE, BINOCULARS or TELESCOPE
//	coordinate       set only through the [MarkerPlacement] (map clicks or an
//	                 explicit place search), never from device geolocation
//
// The description is optional. The draft never performs I/O.
//
// # Marker
//
// A draft holds exactly one marker. Every map interaction replaces the bound
// point; there is no history and no latitude/longitude range check at this
// layer (the platform rejects impossible coordinates).
//
// # Record lifecycle
//
// A [Record] is immutable once received, except for its vote score, which
// changes through [Record.ApplyVote] returning a copy. Expiry is derived on
// every read:
//
//	effective = timestamp (or createdAt when the timestamp is missing)
//	window    = celestial body validity time in hours, or the configured default
//	expired   = now - effective > window
//
// The function is monotonic in now: once expired, always expired.
//
// Vote scores shown before the platform confirms them are modelled as a
// two-phase [Tally] (confirmed value plus an optional pending delta) so an
// optimistic update can be rolled back when the platform disagrees.
//
// # Achievements
//
// Achievement kinds and levels map to display text and a static image key
// through closed tables. [ValidateAchievementTables] checks the tables at
// startup; [DisplayLabel] returns a [ConfigurationError] for anything the
// tables do not cover so callers can render a fallback instead of dropping it.
package domain
