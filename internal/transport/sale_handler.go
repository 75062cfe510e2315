package transport

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
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

// SaleItemRequest is one product line in a sale request
type SaleItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// SaleRequest represents a record-sale payload: the chosen customer and the
// selected quantities. Quantities beyond available stock are rejected.
type SaleRequest struct {
	CustomerID string            `json:"customer_id" validate:"required,uuid"`
	Items      []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// SaleItemResponse is one recorded product line
type SaleItemResponse struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
	Missing     bool    `json:"missing,omitempty"`
}

// SaleResponse represents sale data returned to clients
type SaleResponse struct {
	ID             string             `json:"id"`
	CustomerID     string             `json:"customer_id"`
	CustomerName   string             `json:"customer_name"`
	Items          []SaleItemResponse `json:"items,omitempty"`
	Total          float64            `json:"total"`
	FormattedTotal string             `json:"formatted_total"`
	CreatedAt      time.Time          `json:"created_at"`
	FormattedDate  string             `json:"formatted_date"`
}

// SaleListResponse is the sales history plus its aggregate
type SaleListResponse struct {
	Sales          []SaleResponse `json:"sales"`
	Total          float64        `json:"total"`
	FormattedTotal string         `json:"formatted_total"`
}

func toSaleResponse(s *domain.Sale) SaleResponse {
	return SaleResponse{
		ID:             s.ID.String(),
		CustomerID:     s.CustomerID.String(),
		CustomerName:   s.CustomerName,
		Total:          s.Total,
		FormattedTotal: s.FormattedTotal(),
		CreatedAt:      s.CreatedAt,
		FormattedDate:  s.FormattedDate(),
	}
}

func toSaleListResponse(sales []*domain.Sale, total float64) SaleListResponse {
	responses := make([]SaleResponse, 0, len(sales))
	for _, s := range sales {
		responses = append(responses, toSaleResponse(s))
	}
	return SaleListResponse{
		Sales:          responses,
		Total:          total,
		FormattedTotal: domain.FormatMoney(total),
	}
}

// saleSnapshotResponse rebuilds the list view, aggregate included, from a
// published snapshot.
func saleSnapshotResponse(sales []*domain.Sale) SaleListResponse {
	var total float64
	for _, s := range sales {
		total += s.Total
	}
	total = math.Round(total*100) / 100
	return toSaleListResponse(sales, total)
}

// SaleHandler handles HTTP requests for sale operations
type SaleHandler struct {
	saleService service.SaleService
	hub         *notify.Hub
	logger      *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService service.SaleService, hub *notify.Hub, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
		hub:         hub,
		logger:      logger,
	}
}

// RegisterRoutes registers all sale routes. Sales are append-only: there is
// no edit or delete.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.ListSales)
		r.Get("/stream", h.StreamSales)
		r.Post("/", h.RecordSale)
		r.Get("/{id}", h.GetSale)
	})
}

// ListSales returns the sales history with its aggregate total
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	sales, total, err := h.saleService.List(r.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to list sales", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toSaleListResponse(sales, total))
}

// StreamSales serves the sales history as a live snapshot stream. Initial
// and published events carry the same response shape, aggregate included.
func (h *SaleHandler) StreamSales(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.GetAccountID(r.Context())

	fetch := func() (interface{}, error) {
		sales, total, err := h.saleService.List(r.Context(), accountID)
		if err != nil {
			return nil, err
		}
		return toSaleListResponse(sales, total), nil
	}
	render := func(records interface{}) (interface{}, error) {
		sales, ok := records.([]*domain.Sale)
		if !ok {
			return nil, fmt.Errorf("unexpected snapshot payload %T", records)
		}
		return saleSnapshotResponse(sales), nil
	}

	streamCollection(w, r, h.hub, notify.Sales, fetch, render, h.logger)
}

// GetSale returns one sale with its per-product lines. Lines whose product
// has since been deleted come back flagged as missing.
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale ID")
		return
	}

	sale, lines, err := h.saleService.Detail(r.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "sale not found")
			return
		}
		h.logger.Error("Failed to get sale", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	response := toSaleResponse(sale)
	response.Items = make([]SaleItemResponse, 0, len(lines))
	for _, line := range lines {
		response.Items = append(response.Items, SaleItemResponse{
			ProductID:   line.ProductID.String(),
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Missing:     line.Missing,
		})
	}

	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// RecordSale runs the whole sale flow for one request: snapshot the
// collections, pick the customer, set the quantities, confirm. The sale
// and its stock decrements land as a single transaction or not at all.
func (h *SaleHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req SaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	flow, err := h.saleService.NewFlow(r.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to start sale flow", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	if err := flow.SelectCustomer(customerID); err != nil {
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "customer not found")
		return
	}

	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
			return
		}
		if err := flow.SetQuantity(productID, item.Quantity); err != nil {
			if errors.Is(err, service.ErrUnknownProduct) {
				middleware.RespondWithError(w, http.StatusUnprocessableEntity, "product not found or out of stock")
				return
			}
			middleware.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
	}

	sale, err := flow.Confirm(r.Context())
	if err != nil {
		h.respondConfirmError(w, err)
		return
	}

	h.logger.Info("Sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("account_id", accountID.String()),
		zap.Float64("total", sale.Total),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, toSaleResponse(sale))
}

func (h *SaleHandler) respondConfirmError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		middleware.RespondWithError(w, http.StatusConflict,
			"insufficient stock for: "+strings.Join(insufficient.Products, ", "))
	case errors.Is(err, repository.ErrStockChanged):
		middleware.RespondWithError(w, http.StatusConflict,
			"stock changed while recording the sale, please retry")
	case errors.Is(err, service.ErrNotReady):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "sale is not ready to confirm")
	case errors.Is(err, service.ErrDataIntegrity):
		h.logger.Error("Sale failed integrity check", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "record failed its integrity check")
	default:
		h.logger.Error("Failed to record sale", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
	}
}
