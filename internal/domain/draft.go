package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field names a draft field, using the platform's wire names.
type Field string

const (
	FieldCelestialBody Field = "celestialBodyId"
	FieldTimestamp     Field = "timestamp"
	FieldOrientation   Field = "orientation"
	FieldVisibility    Field = "visibility"
	FieldCoordinate    Field = "coordinate"
	FieldDescription   Field = "description"
)

// mandatoryFields is ordered so ValidationError.Missing is deterministic.
var mandatoryFields = []Field{
	FieldCelestialBody,
	FieldTimestamp,
	FieldOrientation,
	FieldVisibility,
	FieldCoordinate,
}

// Visibility describes how the body was observed.
type Visibility string

const (
	VisibilityNakedEye   Visibility = "NAKED_EYE"
	VisibilityBinoculars Visibility = "BINOCULARS"
	VisibilityTelescope  Visibility = "TELESCOPE"
)

// Visibilities lists the selectable visibility levels in display order.
var Visibilities = []Visibility{VisibilityNakedEye, VisibilityBinoculars, VisibilityTelescope}

// Valid reports whether v is a known visibility level.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityNakedEye, VisibilityBinoculars, VisibilityTelescope:
		return true
	default:
		return false
	}
}

// orientationRe is deliberately loose: any digit anywhere passes.
var orientationRe = regexp.MustCompile(`\d`)

// ValidOrientation reports whether s contains at least one ASCII digit.
// The value is not bounded to [0, 360).
func ValidOrientation(s string) bool {
	return orientationRe.MatchString(s)
}

// timestampLayouts are tried in order when a timestamp arrives as text.
// The last one is what the date picker emits.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a form timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CreationRequest is the payload submitted to create an observation.
type CreationRequest struct {
	CelestialBodyID int        `json:"celestialBodyId"`
	Timestamp       time.Time  `json:"timestamp"`
	Orientation     string     `json:"orientation"`
	Visibility      Visibility `json:"visibility"`
	Lat             float64    `json:"lat"`
	Lng             float64    `json:"lng"`
	Description     string     `json:"description,omitempty"`
}

// Coordinate returns the request's marker position.
func (r CreationRequest) Coordinate() Coordinate {
	return Coordinate{Lat: r.Lat, Lng: r.Lng}
}

// Draft is an observation under construction. It lives only in memory for
// the authoring session and performs no I/O.
type Draft struct {
	celestialBodyID *int
	timestamp       time.Time
	orientation     string
	visibility      Visibility
	description     string
	marker          MarkerPlacement
	catalog         *Catalog
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	return &Draft{}
}

// AttachCatalog makes the loaded catalog available for body id checks.
// Selections made before the catalog arrived are checked at submission.
func (d *Draft) AttachCatalog(c *Catalog) {
	d.catalog = c
}

// Marker returns the draft's single marker binding.
func (d *Draft) Marker() *MarkerPlacement {
	return &d.marker
}

// SetField sets a field from its form representation.
func (d *Draft) SetField(field Field, value string) error {
	switch field {
	case FieldCelestialBody:
		id, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return invalidField(field, "not a celestial body id")
		}
		return d.SetCelestialBody(id)
	case FieldTimestamp:
		t, err := ParseTimestamp(value)
		if err != nil {
			return invalidField(field, err.Error())
		}
		d.SetTimestamp(t)
		return nil
	case FieldOrientation:
		return d.SetOrientation(value)
	case FieldVisibility:
		return d.SetVisibility(Visibility(strings.TrimSpace(value)))
	case FieldDescription:
		d.SetDescription(value)
		return nil
	case FieldCoordinate:
		return invalidField(field, "set through the map marker")
	default:
		return fmt.Errorf("unknown draft field %q", field)
	}
}

// SetCelestialBody selects the observed body. When a catalog is attached the
// id must be part of it; otherwise it is accepted and checked at submission.
func (d *Draft) SetCelestialBody(id int) error {
	if d.catalog != nil && !d.catalog.Contains(id) {
		return invalidField(FieldCelestialBody, fmt.Sprintf("unknown celestial body %d", id))
	}
	d.celestialBodyID = &id
	return nil
}

func (d *Draft) SetTimestamp(t time.Time) {
	d.timestamp = t
}

// SetOrientation stores the value and reports whether it passes the digit rule.
// An empty value leaves the field unset.
func (d *Draft) SetOrientation(s string) error {
	d.orientation = s
	if s == "" {
		return &ValidationError{Missing: []Field{FieldOrientation}}
	}
	if !ValidOrientation(s) {
		return invalidField(FieldOrientation, "must be a value in degrees")
	}
	return nil
}

// SetVisibility selects the visibility level. Unknown levels are refused.
func (d *Draft) SetVisibility(v Visibility) error {
	if !v.Valid() {
		return invalidField(FieldVisibility, fmt.Sprintf("unknown visibility %q", v))
	}
	d.visibility = v
	return nil
}

func (d *Draft) SetDescription(s string) {
	d.description = s
}

// CelestialBodyID returns the selected body id, if any.
func (d *Draft) CelestialBodyID() (int, bool) {
	if d.celestialBodyID == nil {
		return 0, false
	}
	return *d.celestialBodyID, true
}

// IsComplete reports whether every mandatory field is set and valid.
func (d *Draft) IsComplete() bool {
	_, err := d.ToCreationRequest()
	return err == nil
}

// ToCreationRequest converts the draft into a submission payload, or returns
// a *ValidationError naming the unset and malformed fields.
func (d *Draft) ToCreationRequest() (CreationRequest, error) {
	verr := &ValidationError{}
	for _, f := range mandatoryFields {
		if !d.isSet(f) {
			verr.Missing = append(verr.Missing, f)
		}
	}

	invalid := map[Field]string{}
	if id, ok := d.CelestialBodyID(); ok && d.catalog != nil && !d.catalog.Contains(id) {
		invalid[FieldCelestialBody] = fmt.Sprintf("unknown celestial body %d", id)
	}
	if d.orientation != "" && !ValidOrientation(d.orientation) {
		invalid[FieldOrientation] = "must be a value in degrees"
	}
	if len(invalid) > 0 {
		verr.Invalid = invalid
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return CreationRequest{}, verr
	}

	point, _ := d.marker.CurrentPoint()
	return CreationRequest{
		CelestialBodyID: *d.celestialBodyID,
		Timestamp:       d.timestamp,
		Orientation:     d.orientation,
		Visibility:      d.visibility,
		Lat:             point.Lat,
		Lng:             point.Lng,
		Description:     d.description,
	}, nil
}

func (d *Draft) isSet(f Field) bool {
	switch f {
	case FieldCelestialBody:
		return d.celestialBodyID != nil
	case FieldTimestamp:
		return !d.timestamp.IsZero()
	case FieldOrientation:
		return d.orientation != ""
	case FieldVisibility:
		return d.visibility != ""
	case FieldCoordinate:
		_, ok := d.marker.CurrentPoint()
		return ok
	default:
		return true
	}
}
