package carts

import (
	"context"
	"time"

	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service
// and by the reconciliation engine.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByCartID(ctx context.Context, cartID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, cartID string) error
	List(ctx context.Context) ([]models.Cart, error)
	UpdateWeightState(ctx context.Context, cartID string, measured float64, discrepancy bool, at time.Time) (*models.Cart, error)
}
