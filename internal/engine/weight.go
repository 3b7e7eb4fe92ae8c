package engine

import (
	"context"
	"fmt"
	"math"
	"time"
)

// WeightTracker applies load cell readings to a cart's persisted weight state
// and raises the advisory discrepancy flag. It never mutates line items.
type WeightTracker struct {
	store     CartStore
	tolerance float64
}

// NewWeightTracker builds a tracker using the advisory discrepancy tolerance.
func NewWeightTracker(store CartStore, tolerance float64) (*WeightTracker, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("discrepancy tolerance must be non-negative")
	}
	return &WeightTracker{store: store, tolerance: tolerance}, nil
}

// Update records a measured weight for the cart, compares it against the
// cart's computed expected weight and persists the new snapshot.
func (t *WeightTracker) Update(ctx context.Context, cartID string, measured float64, now time.Time) (*WeightState, error) {
	cart, err := t.store.FindByCartID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	expected := cart.TotalWeight
	diff := math.Abs(measured - expected)
	discrepancy := diff > t.tolerance

	if _, err := t.store.UpdateWeightState(ctx, cartID, measured, discrepancy, now); err != nil {
		return nil, err
	}

	return &WeightState{
		CartID:      cartID,
		Measured:    measured,
		Expected:    expected,
		Discrepancy: discrepancy,
		At:          now,
	}, nil
}

// ExpectedAfter returns the cart weight expected once delta is applied, used
// to corroborate add and remove decisions against the scale reading.
func ExpectedAfter(totalWeight, delta float64) float64 {
	return totalWeight + delta
}
