package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ventaexpress/internal/domain"
	"ventaexpress/internal/notify"
	"ventaexpress/internal/repository"
	"ventaexpress/internal/validation"

	"github.com/google/uuid"
)

// ValidationError carries the per-field reasons collected by the
// authoritative pre-write check. The write is never attempted.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// ErrDataIntegrity means a constructed record failed its own invariant
// despite passing field validation. Fatal to the operation; no write.
var ErrDataIntegrity = errors.New("record failed its integrity check")

// CustomerInput is the raw form content for a customer create or edit.
type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

// CustomerService owns the customer edit/create flow: validate, upsert by
// identifier, publish the refreshed snapshot to live subscribers.
type CustomerService interface {
	Save(ctx context.Context, accountID uuid.UUID, id *uuid.UUID, input CustomerInput) (*domain.Customer, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	Get(ctx context.Context, accountID, id uuid.UUID) (*domain.Customer, error)
	List(ctx context.Context, accountID uuid.UUID) ([]*domain.Customer, error)
}

type customerService struct {
	repo repository.CustomerRepository
	hub  *notify.Hub
}

// NewCustomerService creates a new instance of CustomerService
func NewCustomerService(repo repository.CustomerRepository, hub *notify.Hub) CustomerService {
	return &customerService{repo: repo, hub: hub}
}

// Save validates the input authoritatively and upserts the customer. A nil
// id means create (a new identifier is generated); otherwise the existing
// identifier is reused and the stored record overwritten in place.
func (s *customerService) Save(ctx context.Context, accountID uuid.UUID, id *uuid.UUID, input CustomerInput) (*domain.Customer, error) {
	result := &validation.Result{}
	result.Name("name", input.Name)
	result.Email("email", input.Email)
	result.Phone("phone", input.Phone)
	if !result.OK() {
		return nil, &ValidationError{Fields: result.Errors}
	}

	customer := &domain.Customer{
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		AccountID: accountID,
		CreatedAt: time.Now(),
	}
	if id != nil {
		customer.ID = *id
	} else {
		customer.ID = uuid.New()
	}

	if !customer.IsValid() {
		return nil, ErrDataIntegrity
	}

	if err := s.repo.Upsert(ctx, customer); err != nil {
		return nil, err
	}

	s.publish(ctx, accountID)
	return customer, nil
}

// Delete removes a customer and refreshes the live snapshot
func (s *customerService) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, accountID, id); err != nil {
		return err
	}
	s.publish(ctx, accountID)
	return nil
}

// Get retrieves one customer
func (s *customerService) Get(ctx context.Context, accountID, id uuid.UUID) (*domain.Customer, error) {
	return s.repo.FindByID(ctx, accountID, id)
}

// List retrieves the full customer snapshot
func (s *customerService) List(ctx context.Context, accountID uuid.UUID) ([]*domain.Customer, error) {
	return s.repo.List(ctx, accountID)
}

func (s *customerService) publish(ctx context.Context, accountID uuid.UUID) {
	customers, err := s.repo.List(ctx, accountID)
	if err != nil {
		// Subscribers keep their previous snapshot; the next successful
		// write republishes.
		return
	}
	s.hub.Publish(accountID, notify.Customers, customers)
}
