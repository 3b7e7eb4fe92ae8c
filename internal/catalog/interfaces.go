package catalog

import (
	"context"

	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ProductRepository defines the persistence surface for the product catalog.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	ByProductID(ctx context.Context, productID string) (*models.Product, error)
	ByRFIDTag(ctx context.Context, tag string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Save(ctx context.Context, product *models.Product) error
	List(ctx context.Context) ([]models.Product, error)
}
