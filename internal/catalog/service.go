package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/smartkart-ai/smartkart-backend/pkg/db"
	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
)

// Service exposes catalog lookups and RFID tag assignment.
type Service interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	ByRFIDTag(ctx context.Context, tag string) (*models.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	AssignTag(ctx context.Context, productID, tag string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// CreateProductInput captures the payload for a new catalog entry.
type CreateProductInput struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Weight    float64
	Image     *string
	Tags      []string
	RFIDTag   *string
}

type service struct {
	repo ProductRepository
}

// NewService builds a catalog service backed by the provided repository.
func NewService(repo ProductRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.repo.ByProductID(ctx, productID)
}

func (s *service) ByRFIDTag(ctx context.Context, tag string) (*models.Product, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tag is required")
	}
	return s.repo.ByRFIDTag(ctx, tag)
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	input.ProductID = strings.TrimSpace(input.ProductID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Weight < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be non-negative")
	}
	if input.RFIDTag != nil && strings.TrimSpace(*input.RFIDTag) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rfid tag must not be blank")
	}

	product := &models.Product{
		ProductID: input.ProductID,
		Name:      input.Name,
		Price:     input.Price,
		Weight:    input.Weight,
		Image:     input.Image,
		Tags:      pq.StringArray(input.Tags),
		RFIDTag:   input.RFIDTag,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product id or rfid tag already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

// AssignTag binds an RFID tag to a product. Tags are globally unique; the
// partial unique index rejects a tag already bound to another product.
func (s *service) AssignTag(ctx context.Context, productID, tag string) (*models.Product, error) {
	tag = strings.TrimSpace(tag)
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if tag == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tag is required")
	}

	product, err := s.repo.ByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.RFIDTag = &tag
	if err := s.repo.Save(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "rfid tag already assigned to another product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign tag")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.List(ctx)
}
