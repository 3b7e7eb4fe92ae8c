package enums

import "fmt"

// EventType identifies the broadcast events published on the cart-events topic.
type EventType string

const (
	EventCartUpdated    EventType = "cart_updated"
	EventUnknownTag     EventType = "unknown_tag"
	EventWeightMismatch EventType = "weight_mismatch"
	EventWeightUpdate   EventType = "weight_update"
)

var validEventTypes = []EventType{
	EventCartUpdated,
	EventUnknownTag,
	EventWeightMismatch,
	EventWeightUpdate,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
