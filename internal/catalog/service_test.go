package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
	"gorm.io/gorm"
)

type stubProductRepo struct {
	byID      map[string]*models.Product
	byTag     map[string]*models.Product
	createErr error
	saveErr   error
}

func newStubProductRepo(products ...*models.Product) *stubProductRepo {
	repo := &stubProductRepo{
		byID:  make(map[string]*models.Product),
		byTag: make(map[string]*models.Product),
	}
	for _, product := range products {
		repo.byID[product.ProductID] = product
		if product.RFIDTag != nil {
			repo.byTag[*product.RFIDTag] = product
		}
	}
	return repo
}

func (r *stubProductRepo) WithTx(*gorm.DB) ProductRepository { return r }

func (r *stubProductRepo) ByProductID(_ context.Context, productID string) (*models.Product, error) {
	product, ok := r.byID[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (r *stubProductRepo) ByRFIDTag(_ context.Context, tag string) (*models.Product, error) {
	product, ok := r.byTag[tag]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no product for tag")
	}
	return product, nil
}

func (r *stubProductRepo) Create(_ context.Context, product *models.Product) (*models.Product, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.byID[product.ProductID] = product
	if product.RFIDTag != nil {
		r.byTag[*product.RFIDTag] = product
	}
	return product, nil
}

func (r *stubProductRepo) Save(_ context.Context, product *models.Product) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.byID[product.ProductID] = product
	if product.RFIDTag != nil {
		r.byTag[*product.RFIDTag] = product
	}
	return nil
}

func (r *stubProductRepo) List(_ context.Context) ([]models.Product, error) {
	rows := make([]models.Product, 0, len(r.byID))
	for _, product := range r.byID {
		rows = append(rows, *product)
	}
	return rows, nil
}

func strPtr(v string) *string { return &v }

func TestCreateProductValidates(t *testing.T) {
	svc, err := NewService(newStubProductRepo())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{"missing id", CreateProductInput{Name: "Milk"}},
		{"missing name", CreateProductInput{ProductID: "milk"}},
		{"negative price", CreateProductInput{ProductID: "milk", Name: "Milk", Price: decimal.NewFromInt(-1)}},
		{"negative weight", CreateProductInput{ProductID: "milk", Name: "Milk", Weight: -0.5}},
		{"blank tag", CreateProductInput{ProductID: "milk", Name: "Milk", RFIDTag: strPtr("  ")}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateProduct(context.Background(), tc.input); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestCreateProductPersists(t *testing.T) {
	repo := newStubProductRepo()
	svc, _ := NewService(repo)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		ProductID: "milk",
		Name:      "Whole Milk",
		Price:     decimal.NewFromFloat(1.50),
		Weight:    0.5,
		Tags:      []string{"dairy"},
		RFIDTag:   strPtr("tag-milk"),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if product.RFIDTag == nil || *product.RFIDTag != "tag-milk" {
		t.Fatalf("tag not stored: %+v", product)
	}

	resolved, err := svc.ByRFIDTag(context.Background(), "tag-milk")
	if err != nil || resolved.ProductID != "milk" {
		t.Fatalf("expected tag to resolve milk, got %+v err %v", resolved, err)
	}
}

func TestCreateProductDuplicateConflicts(t *testing.T) {
	repo := newStubProductRepo()
	repo.createErr = errors.New(`ERROR: duplicate key value violates unique constraint "idx_products_product_id" (SQLSTATE 23505)`)
	svc, _ := NewService(repo)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{ProductID: "milk", Name: "Whole Milk"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAssignTagBindsProduct(t *testing.T) {
	repo := newStubProductRepo(&models.Product{ProductID: "milk", Name: "Whole Milk"})
	svc, _ := NewService(repo)

	product, err := svc.AssignTag(context.Background(), "milk", " tag-milk ")
	if err != nil {
		t.Fatalf("AssignTag: %v", err)
	}
	if product.RFIDTag == nil || *product.RFIDTag != "tag-milk" {
		t.Fatalf("expected trimmed tag bound, got %+v", product.RFIDTag)
	}
}

func TestAssignTagAlreadyBoundConflicts(t *testing.T) {
	repo := newStubProductRepo(&models.Product{ProductID: "milk", Name: "Whole Milk"})
	repo.saveErr = errors.New(`ERROR: duplicate key value violates unique constraint "idx_products_rfid_tag" (SQLSTATE 23505)`)
	svc, _ := NewService(repo)

	_, err := svc.AssignTag(context.Background(), "milk", "tag-milk")
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAssignTagToMissingProduct(t *testing.T) {
	svc, _ := NewService(newStubProductRepo())
	_, err := svc.AssignTag(context.Background(), "ghost", "tag-x")
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUnknownTagLookup(t *testing.T) {
	svc, _ := NewService(newStubProductRepo())
	_, err := svc.ByRFIDTag(context.Background(), "tag-mystery")
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
