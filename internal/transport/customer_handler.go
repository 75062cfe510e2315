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

// CustomerRequest represents a customer create or edit payload. Field-level
// rules are applied by the service; the transport checks shape only.
type CustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// CustomerResponse represents customer data returned to clients
type CustomerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerResponse(c *domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

func toCustomerResponses(customers []*domain.Customer) []CustomerResponse {
	responses := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		responses = append(responses, toCustomerResponse(c))
	}
	return responses
}

// CustomerHandler handles HTTP requests for customer operations
type CustomerHandler struct {
	customerService service.CustomerService
	hub             *notify.Hub
	logger          *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService service.CustomerService, hub *notify.Hub, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		hub:             hub,
		logger:          logger,
	}
}

// RegisterRoutes registers all customer routes. Every route requires a
// signed-in account; records are scoped to that account.
func (h *CustomerHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/customers", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.ListCustomers)
		r.Get("/stream", h.StreamCustomers)
		r.Post("/", h.CreateCustomer)
		r.Get("/{id}", h.GetCustomer)
		r.Put("/{id}", h.UpdateCustomer)
		r.Delete("/{id}", h.DeleteCustomer)
	})
}

// ListCustomers returns all customers for the signed-in account
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	customers, err := h.customerService.List(r.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to list customers", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toCustomerResponses(customers))
}

// StreamCustomers serves the customer collection as a live snapshot stream.
// Initial and published events carry the same response shape.
func (h *CustomerHandler) StreamCustomers(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.GetAccountID(r.Context())

	fetch := func() (interface{}, error) {
		customers, err := h.customerService.List(r.Context(), accountID)
		if err != nil {
			return nil, err
		}
		return toCustomerResponses(customers), nil
	}
	render := func(records interface{}) (interface{}, error) {
		customers, ok := records.([]*domain.Customer)
		if !ok {
			return nil, fmt.Errorf("unexpected snapshot payload %T", records)
		}
		return toCustomerResponses(customers), nil
	}

	streamCollection(w, r, h.hub, notify.Customers, fetch, render, h.logger)
}

// GetCustomer returns a single customer by ID
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	customer, err := h.customerService.Get(r.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("Failed to get customer", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// CreateCustomer creates a new customer
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	h.saveCustomer(w, r, nil)
}

// UpdateCustomer edits an existing customer. The write is an upsert by
// identifier: the saved record replaces the previous one wholesale.
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}
	h.saveCustomer(w, r, &id)
}

func (h *CustomerHandler) saveCustomer(w http.ResponseWriter, r *http.Request, id *uuid.UUID) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CustomerRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.customerService.Save(r.Context(), accountID, id, service.CustomerInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondSaveError(w, h.logger, "customer", err)
		return
	}

	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
	}

	h.logger.Info("Customer saved",
		zap.String("customer_id", customer.ID.String()),
		zap.String("account_id", accountID.String()),
	)
	middleware.RespondWithJSON(w, status, toCustomerResponse(customer))
}

// DeleteCustomer removes a customer. Sales that reference the customer keep
// their recorded name; deletion never cascades.
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	if err := h.customerService.Delete(r.Context(), accountID, id); err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("Failed to delete customer", zap.Error(err))
		middleware.RespondWithBackendError(w, err)
		return
	}

	h.logger.Info("Customer deleted",
		zap.String("customer_id", id.String()),
		zap.String("account_id", accountID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "customer deleted successfully"})
}

// respondSaveError maps the service-level save failures shared by the
// customer and product flows onto HTTP responses.
func respondSaveError(w http.ResponseWriter, logger *zap.Logger, record string, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		fieldErrors := make([]middleware.ValidationError, 0, len(validationErr.Fields))
		for _, f := range validationErr.Fields {
			fieldErrors = append(fieldErrors, middleware.ValidationError{
				Field:   f.Field,
				Message: f.Message,
			})
		}
		middleware.RespondWithValidationErrors(w, fieldErrors)
		return
	}
	if errors.Is(err, service.ErrDataIntegrity) {
		logger.Error("Record failed integrity check", zap.String("record", record), zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "record failed its integrity check")
		return
	}

	logger.Error("Failed to save record", zap.String("record", record), zap.Error(err))
	middleware.RespondWithBackendError(w, err)
}
