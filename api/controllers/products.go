package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/smartkart-ai/smartkart-backend/api/responses"
	"github.com/smartkart-ai/smartkart-backend/api/validators"
	"github.com/smartkart-ai/smartkart-backend/internal/catalog"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
)

type createProductRequest struct {
	ProductID string   `json:"productId" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	Price     string   `json:"price" validate:"required"`
	Weight    float64  `json:"weight" validate:"gte=0"`
	Image     *string  `json:"image"`
	Tags      []string `json:"tags"`
	RFIDTag   *string  `json:"rfidTag"`
}

type assignTagRequest struct {
	RFIDTag string `json:"rfidTag" validate:"required"`
}

// ProductCreate adds a catalog entry.
func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal string"))
			return
		}

		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			ProductID: req.ProductID,
			Name:      req.Name,
			Price:     price,
			Weight:    req.Weight,
			Image:     req.Image,
			Tags:      req.Tags,
			RFIDTag:   req.RFIDTag,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductList returns the catalog.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ProductFetch returns a single catalog entry.
func ProductFetch(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "productId is required"))
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductAssignTag binds an RFID tag to a catalog entry.
func ProductAssignTag(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "productId is required"))
			return
		}

		var req assignTagRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AssignTag(r.Context(), productID, req.RFIDTag)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
