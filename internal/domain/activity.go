package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ActivityType names an activity event.
type ActivityType string

const (
	ActivityObservationCreated ActivityType = "observation.created"
	ActivityObservationVoted   ActivityType = "observation.voted"
)

// ActivityEvent announces a lifecycle change of a record to downstream feeds.
type ActivityEvent struct {
	ID         string        `json:"id"`
	Type       ActivityType  `json:"type"`
	Record     Record        `json:"record"`
	Actor      string        `json:"actor,omitempty"`
	Direction  VoteDirection `json:"direction,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// OutputEvent is the serialized form destined for the activity topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// NewActivity stamps an event with a fresh id and the package clock.
func NewActivity(typ ActivityType, rec Record, actor string) ActivityEvent {
	return ActivityEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Record:     rec,
		Actor:      actor,
		OccurredAt: clock.Now().UTC(),
	}
}

// SerializeActivity marshals an event keyed by record id so all events of a
// record land on the same partition.
func SerializeActivity(ev ActivityEvent) (OutputEvent, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize activity event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(strconv.Itoa(ev.Record.ID)),
		Value: data,
		Headers: map[string]string{
			"event_type":  string(ev.Type),
			"event_id":    ev.ID,
			"occurred_at": ev.OccurredAt.Format(time.RFC3339),
		},
	}, nil
}
