package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"ventaexpress/internal/domain"
	"ventaexpress/internal/middleware"
	"ventaexpress/internal/notify"
	"ventaexpress/internal/repository"
	"ventaexpress/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductRequest represents a product create or edit payload. Price and
// stock arrive as raw form text; parsing them is part of validation.
type ProductRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Price       string `json:"price" validate:"required"`
	Stock       string `json:"stock" validate:"required"`
}

// ProductResponse represents product data returned to clients
type ProductResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          float64   `json:"price"`
	FormattedPrice string    `json:"formatted_price"`
	Stock          int       `json:"stock"`
	CreatedAt      time.Time `json:"created_at"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID.String(),
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		FormattedPrice: p.FormattedPrice(),
		Stock:          p.Stock,
		CreatedAt:      p.CreatedAt,
	}
}

func toProductResponses(products []*domain.Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		responses = append(responses, toProductResponse(p))
	}
	return responses
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	hub            *notify.Hub
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, hub *notify.Hub, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		hub:            hub,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.ListProducts)
		r.Get("/stream", h.StreamProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
}

// ListProducts returns all products for the signed-in account
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	products, err := h.productService.List(r.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// StreamProducts serves the product collection as a live snapshot stream.
// Initial and published events carry the same response shape.
func (h *ProductHandler) StreamProducts(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.GetAccountID(r.Context())

	fetch := func() (interface{}, error) {
		products, err := h.productService.List(r.Context(), accountID)
		if err != nil {
			return nil, err
		}
		return toProductResponses(products), nil
	}
	render := func(records interface{}) (interface{}, error) {
		products, ok := records.([]*domain.Product)
		if !ok {
			return nil, fmt.Errorf("unexpected snapshot payload %T", records)
		}
		return toProductResponses(products), nil
	}

	streamCollection(w, r, h.hub, notify.Products, fetch, render, h.logger)
}

// GetProduct returns a single product by ID
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.productService.Get(r.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// CreateProduct creates a new product
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, nil)
}

// UpdateProduct edits an existing product. Stock is set absolutely here;
// only recording a sale decrements it.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}
	h.saveProduct(w, r, &id)
}

func (h *ProductHandler) saveProduct(w http.ResponseWriter, r *http.Request, id *uuid.UUID) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Save(r.Context(), accountID, id, service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondSaveError(w, h.logger, "product", err)
		return
	}

	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
	}

	h.logger.Info("Product saved",
		zap.String("product_id", product.ID.String()),
		zap.String("account_id", accountID.String()),
	)
	middleware.RespondWithJSON(w, status, toProductResponse(product))
}

// DeleteProduct removes a product. Past sales keep their recorded lines;
// their detail views degrade instead of breaking.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := h.productService.Delete(r.Context(), accountID, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to delete product", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	h.logger.Info("Product deleted",
		zap.String("product_id", id.String()),
		zap.String("account_id", accountID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product deleted successfully"})
}
