package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// RawReport is an unprocessed observation report read from the report topic.
type RawReport struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Submission links a relayed report to the observation it produced.
type Submission struct {
	ReportKey     string
	ObservationID int
	Topic         string
	Offset        int64
	SubmittedAt   time.Time
}

// ReportKey identifies a report across redeliveries: the message key when the
// producer set one, otherwise its topic position.
func (r RawReport) ReportKey() string {
	if len(r.Key) > 0 {
		return string(r.Key)
	}
	return fmt.Sprintf("%s/%d/%d", r.Topic, r.Partition, r.Offset)
}

// reportPayload mirrors the observation form: every field arrives as the text
// a user would have typed, the marker as a pair of numbers.
type reportPayload struct {
	CelestialBodyID json.RawMessage `json:"celestialBodyId"`
	Timestamp       string          `json:"timestamp"`
	Orientation     json.RawMessage `json:"orientation"`
	Visibility      string          `json:"visibility"`
	Lat             *float64        `json:"lat"`
	Lng             *float64        `json:"lng"`
	Description     string          `json:"description"`
}

// ParseReport runs a report through a fresh draft, exactly as if a user had
// filled in the form and clicked the map, and returns the creation request.
// The catalog may be nil, in which case the body id is not checked.
func ParseReport(raw RawReport, catalog *Catalog) (CreationRequest, error) {
	var p reportPayload
	if err := json.Unmarshal(raw.Value, &p); err != nil {
		return CreationRequest{}, fmt.Errorf("parse report: %w", err)
	}

	d := NewDraft()
	d.AttachCatalog(catalog)

	var setErrs []error
	set := func(f Field, v string) {
		if v == "" {
			return
		}
		if err := d.SetField(f, v); err != nil {
			setErrs = append(setErrs, err)
		}
	}
	set(FieldCelestialBody, rawText(p.CelestialBodyID))
	set(FieldTimestamp, p.Timestamp)
	set(FieldOrientation, rawText(p.Orientation))
	set(FieldVisibility, p.Visibility)
	d.SetDescription(p.Description)
	if p.Lat != nil && p.Lng != nil {
		d.Marker().OnMapInteraction(Coordinate{Lat: *p.Lat, Lng: *p.Lng})
	}

	req, err := d.ToCreationRequest()
	if err != nil {
		return CreationRequest{}, fmt.Errorf("parse report: %w", mergeValidation(append(setErrs, err)))
	}
	return req, nil
}

// rawText accepts a JSON string or number and returns its text.
func rawText(m json.RawMessage) string {
	if len(m) == 0 || string(m) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(m, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(m)
}

// mergeValidation folds several validation errors into one. Non-validation
// errors are joined alongside.
func mergeValidation(errs []error) error {
	merged := &ValidationError{}
	var other []error
	missing := map[Field]bool{}
	for _, err := range errs {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			other = append(other, err)
			continue
		}
		for _, f := range verr.Missing {
			if !missing[f] {
				missing[f] = true
				merged.Missing = append(merged.Missing, f)
			}
		}
		for f, reason := range verr.Invalid {
			if merged.Invalid == nil {
				merged.Invalid = map[Field]string{}
			}
			merged.Invalid[f] = reason
		}
	}
	// A field refused by its setter stays unset; report it once, as invalid.
	filtered := merged.Missing[:0]
	for _, f := range merged.Missing {
		if _, bad := merged.Invalid[f]; !bad {
			filtered = append(filtered, f)
		}
	}
	merged.Missing = filtered
	if len(other) == 0 {
		return merged
	}
	return errors.Join(append([]error{merged}, other...)...)
}
