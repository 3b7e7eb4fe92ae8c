package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the current payload envelope schema version.
const EnvelopeVersion = 1

// PayloadEnvelope is the wire frame every published and consumed event shares.
// Data carries the event-specific payload untouched so consumers can decode it
// against their own schemas.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    uuid.UUID       `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope wraps data in a versioned envelope with a fresh event ID.
func NewEnvelope(occurredAt time.Time, data any) (PayloadEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, err
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.New(),
		OccurredAt: occurredAt,
		Data:       raw,
	}, nil
}

// Marshal encodes the envelope for the wire.
func (e PayloadEnvelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Validate checks the envelope carries the fields consumers rely on.
func (e PayloadEnvelope) Validate() error {
	if e.Version <= 0 {
		return errors.New("envelope version is required")
	}
	if e.EventID == uuid.Nil {
		return errors.New("envelope event id is required")
	}
	if len(e.Data) == 0 {
		return errors.New("envelope data is required")
	}
	return nil
}
