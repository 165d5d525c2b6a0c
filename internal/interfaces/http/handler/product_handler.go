package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dreschagin/order-service/internal/application/usecase"
	"github.com/dreschagin/order-service/internal/domain/entity"
	"github.com/dreschagin/order-service/internal/domain/repository"
	"github.com/dreschagin/order-service/pkg/logger"
)

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

func (req productRequest) input() usecase.ProductInput {
	return usecase.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
}

type productResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductResponse(p *entity.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ProductHandler обрабатывает API запросы для товаров
type ProductHandler struct {
	products *usecase.ManageProductsUseCase
	logger   *logger.Logger
}

// NewProductHandler создает новый handler
func NewProductHandler(products *usecase.ManageProductsUseCase, logger *logger.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	products, err := h.products.List(r.Context())
	if err != nil {
		log.Error("Error fetching all products", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	data := make([]productResponse, 0, len(products))
	for _, p := range products {
		data = append(data, toProductResponse(p))
	}

	log.Info("Fetched all products successfully", "count", len(data))
	writeSuccess(w, http.StatusOK, "All Products fetched", data)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.products.Get(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Warn(fmt.Sprintf("Product with ID: %d not found", id))
		writeError(w, http.StatusNotFound, fmt.Sprintf("Product with ID: %d not found", id))
		return
	case err != nil:
		log.Error(fmt.Sprintf("Error fetching product with ID: %d", id), err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	log.Info(fmt.Sprintf("Fetched product with ID: %d successfully", id))
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Product with ID: %d fetched", id), toProductResponse(product))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	var req productRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Warn("Rejected malformed product payload", "error", err.Error())
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.products.Create(r.Context(), req.input())
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		log.Warn("Rejected invalid product", "error", err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error("Error creating product", err)
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	log.Info(fmt.Sprintf("New product created: %d", product.ID), "name", product.Name)
	writeSuccess(w, http.StatusCreated, "Product created successfully", toProductResponse(product))
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req productRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Warn("Rejected malformed product payload", "error", err.Error())
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.products.Update(r.Context(), id, req.input())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Warn(fmt.Sprintf("Product with ID: %d not found for update", id))
		writeError(w, http.StatusNotFound, fmt.Sprintf("Product with ID: %d not found", id))
		return
	case errors.Is(err, usecase.ErrInvalidInput):
		log.Warn("Rejected invalid product", "product_id", id, "error", err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error(fmt.Sprintf("Error updating product with ID: %d", id), err)
		writeError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	log.Info(fmt.Sprintf("Product with ID: %d updated successfully", id))
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Product with ID: %d updated", id), toProductResponse(product))
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.products.Delete(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Warn(fmt.Sprintf("Product with ID: %d not found for deletion", id))
		writeError(w, http.StatusNotFound, fmt.Sprintf("Product with ID: %d not found", id))
		return
	case err != nil:
		log.Error(fmt.Sprintf("Error deleting product with ID: %d", id), err)
		writeError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	log.Info(fmt.Sprintf("Product with ID: %d deleted successfully", id))
	writeSuccess(w, http.StatusNoContent, "", nil)
}
