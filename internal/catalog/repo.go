package catalog

import (
	"context"
	"errors"

	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository exposes persistence operations for catalog products.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ByProductID loads a product by its catalog identifier.
func (r *Repository) ByProductID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

// ByRFIDTag resolves the product carrying the given tag, if any.
func (r *Repository) ByRFIDTag(ctx context.Context, tag string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("rfid_tag = ?", tag).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no product for tag")
		}
		return nil, err
	}
	return &product, nil
}

// Create inserts a new catalog product.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Save persists changes to an existing product.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// List returns the full catalog.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Order("product_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
