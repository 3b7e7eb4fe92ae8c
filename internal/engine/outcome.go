package engine

import (
	"time"

	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	"github.com/smartkart-ai/smartkart-backend/pkg/enums"
)

// Outcome is the terminal decision for a single tag scan. Every scan resolves
// to exactly one outcome; there is no retry and no intermediate state survives
// the call.
type Outcome string

const (
	// OutcomeSuppressed means the scan was dropped by the cooldown filter.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeCartNotFound means no cart exists for the scanned cart id.
	OutcomeCartNotFound Outcome = "cart_not_found"
	// OutcomeUnknownTag means no catalog product carries the scanned tag.
	OutcomeUnknownTag Outcome = "unknown_tag"
	// OutcomeAdded means a new line item was appended to the cart.
	OutcomeAdded Outcome = "added"
	// OutcomeRemoved means an existing line item was deleted from the cart.
	OutcomeRemoved Outcome = "removed"
	// OutcomeIgnoredRemoval means a repeat scan was treated as noise because
	// the measured weight did not corroborate a physical removal.
	OutcomeIgnoredRemoval Outcome = "ignored_removal"
	// OutcomeWeightMismatch means an addition was refused because the measured
	// weight did not corroborate a physical placement.
	OutcomeWeightMismatch Outcome = "weight_mismatch"
)

func (o Outcome) String() string {
	return string(o)
}

// IsValid reports whether o is one of the recognized terminal outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuppressed, OutcomeCartNotFound, OutcomeUnknownTag,
		OutcomeAdded, OutcomeRemoved, OutcomeIgnoredRemoval, OutcomeWeightMismatch:
		return true
	}
	return false
}

// Mutated reports whether the outcome committed a line-item change.
func (o Outcome) Mutated() bool {
	return o == OutcomeAdded || o == OutcomeRemoved
}

// ScanResult carries the terminal outcome of one tag scan plus the evidence
// that produced it.
type ScanResult struct {
	Outcome    Outcome
	Cart       *models.Cart
	Product    *models.Product
	Action     enums.CartAction
	Measured   float64
	Expected   float64
	Difference float64
}

// TagScanEvent is one normalized RFID read.
type TagScanEvent struct {
	CartID    string    `json:"cartId" validate:"required"`
	TagID     string    `json:"tagId" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// WeightUpdateEvent is one load cell reading.
type WeightUpdateEvent struct {
	CartID         string    `json:"cartId" validate:"required"`
	MeasuredWeight float64   `json:"measuredWeight" validate:"gte=0"`
	Timestamp      time.Time `json:"timestamp"`
}

// WeightState is the persisted weight snapshot after a reading is applied.
type WeightState struct {
	CartID      string    `json:"cartId"`
	Measured    float64   `json:"measuredWeight"`
	Expected    float64   `json:"expectedWeight"`
	Discrepancy bool      `json:"discrepancy"`
	At          time.Time `json:"timestamp"`
}

// Mismatch describes a refused addition for observers.
type Mismatch struct {
	CartID      string           `json:"cartId"`
	ProductName string           `json:"productName"`
	Action      enums.CartAction `json:"action"`
	Measured    float64          `json:"measuredWeight"`
	Expected    float64          `json:"expectedWeight"`
	Difference  float64          `json:"difference"`
	At          time.Time        `json:"timestamp"`
}
