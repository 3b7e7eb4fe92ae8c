package carts

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartkart-ai/smartkart-backend/pkg/db"
	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
)

// Service exposes cart fleet administration: provisioning, claiming and
// checkout reset. Line-item mutations flow through the reconciliation engine,
// not through this service.
type Service interface {
	CreateCart(ctx context.Context, cartID string) (*models.Cart, error)
	RemoveCart(ctx context.Context, cartID string) error
	GetCart(ctx context.Context, cartID string) (*models.Cart, error)
	ListCarts(ctx context.Context) ([]models.Cart, error)
	ClaimCart(ctx context.Context, cartID string) (*models.Cart, error)
	ResetCart(ctx context.Context, cartID string) (*models.Cart, error)
}

type service struct {
	repo CartRepository
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo CartRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

// CreateCart provisions a new cart, inactive and empty.
func (s *service) CreateCart(ctx context.Context, cartID string) (*models.Cart, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	cart := &models.Cart{CartID: cartID}
	created, err := s.repo.Create(ctx, cart)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart id already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

// RemoveCart decommissions a cart.
func (s *service) RemoveCart(ctx context.Context, cartID string) error {
	if strings.TrimSpace(cartID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	return s.repo.Delete(ctx, cartID)
}

// GetCart returns a cart with its line items.
func (s *service) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	return s.repo.FindByCartID(ctx, cartID)
}

// ListCarts returns the whole fleet.
func (s *service) ListCarts(ctx context.Context) ([]models.Cart, error) {
	return s.repo.List(ctx)
}

// ClaimCart marks a cart active for a shopping session. Claiming an already
// active cart is a conflict so two shoppers cannot share one cart.
func (s *service) ClaimCart(ctx context.Context, cartID string) (*models.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	cart, err := s.repo.FindByCartID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is already claimed")
	}

	cart.Active = true
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim cart")
	}
	return cart, nil
}

// ResetCart empties a cart and releases the claim, the checkout epilogue.
func (s *service) ResetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	cart, err := s.repo.FindByCartID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart.Items = nil
	cart.Active = false
	cart.MeasuredWeight = 0
	cart.WeightDiscrepancy = false
	cart.RecomputeTotals()

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart")
	}
	return cart, nil
}
