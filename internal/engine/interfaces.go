package engine

import (
	"context"
	"time"

	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	"github.com/smartkart-ai/smartkart-backend/pkg/enums"
)

// CartStore is the persistence surface the engine mutates carts through.
type CartStore interface {
	FindByCartID(ctx context.Context, cartID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	UpdateWeightState(ctx context.Context, cartID string, measured float64, discrepancy bool, at time.Time) (*models.Cart, error)
}

// Catalog resolves scanned tag identifiers to catalog products.
type Catalog interface {
	ByRFIDTag(ctx context.Context, tag string) (*models.Product, error)
}

// Emitter publishes engine outcomes to observers. Implementations are
// best-effort: a failed emit never rolls back a committed cart mutation, so
// none of these methods return an error.
type Emitter interface {
	CartUpdated(ctx context.Context, cart *models.Cart, action enums.CartAction, productName string)
	UnknownTag(ctx context.Context, cartID, tagID string, at time.Time)
	WeightMismatch(ctx context.Context, m Mismatch)
	WeightUpdated(ctx context.Context, state WeightState)
}
