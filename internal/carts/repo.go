package carts

import (
	"context"
	"errors"
	"time"

	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository exposes persistence operations for carts and their line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByCartID loads a cart with its line items in insertion order.
func (r *Repository) FindByCartID(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("added_at ASC")
		}).
		Where("cart_id = ?", cartID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// Save persists the cart record and replaces its line items atomically.
func (r *Repository) Save(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(cart).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_ref = ?", cart.ID).Delete(&models.CartLineItem{}).Error; err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return nil
		}
		for i := range cart.Items {
			cart.Items[i].CartRef = cart.ID
		}
		return tx.Create(&cart.Items).Error
	})
}

// Delete removes a cart and, via the FK cascade, its line items.
func (r *Repository) Delete(ctx context.Context, cartID string) error {
	result := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.Cart{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return nil
}

// List returns every cart with its line items.
func (r *Repository) List(ctx context.Context) ([]models.Cart, error) {
	var rows []models.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("added_at ASC")
		}).
		Order("cart_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateWeightState persists the measured weight snapshot without touching
// line items, then returns the refreshed cart.
func (r *Repository) UpdateWeightState(ctx context.Context, cartID string, measured float64, discrepancy bool, at time.Time) (*models.Cart, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("cart_id = ?", cartID).
		Updates(map[string]any{
			"measured_weight":    measured,
			"weight_discrepancy": discrepancy,
			"last_weight_update": at,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return r.FindByCartID(ctx, cartID)
}
