package service

import (
	"context"
	"time"

	"ventaexpress/internal/domain"
	"ventaexpress/internal/notify"
	"ventaexpress/internal/repository"
	"ventaexpress/internal/validation"

	"github.com/google/uuid"
)

// ProductInput is the raw form content for a product create or edit.
// Price and Stock arrive as the user typed them; parsing is part of
// validation (thousands separators in the price are ignored).
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Stock       string
}

// ProductService owns the product edit/create flow.
type ProductService interface {
	Save(ctx context.Context, accountID uuid.UUID, id *uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	Get(ctx context.Context, accountID, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, accountID uuid.UUID) ([]*domain.Product, error)
}

type productService struct {
	repo repository.ProductRepository
	hub  *notify.Hub
}

// NewProductService creates a new instance of ProductService
func NewProductService(repo repository.ProductRepository, hub *notify.Hub) ProductService {
	return &productService{repo: repo, hub: hub}
}

// Save validates the input authoritatively and upserts the product. A nil
// id means create; on edit the original creation timestamp is preserved by
// the repository. Stock written here is an absolute set.
func (s *productService) Save(ctx context.Context, accountID uuid.UUID, id *uuid.UUID, input ProductInput) (*domain.Product, error) {
	result := &validation.Result{}
	result.Name("name", input.Name)
	result.Description("description", input.Description)
	price := result.Price("price", input.Price)
	stock := result.Stock("stock", input.Stock)
	if !result.OK() {
		return nil, &ValidationError{Fields: result.Errors}
	}

	product := &domain.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       price,
		Stock:       stock,
		AccountID:   accountID,
		CreatedAt:   time.Now(),
	}
	if id != nil {
		product.ID = *id
	} else {
		product.ID = uuid.New()
	}

	if !product.IsValid() {
		return nil, ErrDataIntegrity
	}

	if err := s.repo.Upsert(ctx, product); err != nil {
		return nil, err
	}

	s.publish(ctx, accountID)
	return product, nil
}

// Delete removes a product and refreshes the live snapshot
func (s *productService) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, accountID, id); err != nil {
		return err
	}
	s.publish(ctx, accountID)
	return nil
}

// Get retrieves one product
func (s *productService) Get(ctx context.Context, accountID, id uuid.UUID) (*domain.Product, error) {
	return s.repo.FindByID(ctx, accountID, id)
}

// List retrieves the full product snapshot
func (s *productService) List(ctx context.Context, accountID uuid.UUID) ([]*domain.Product, error) {
	return s.repo.List(ctx, accountID)
}

func (s *productService) publish(ctx context.Context, accountID uuid.UUID) {
	products, err := s.repo.List(ctx, accountID)
	if err != nil {
		return
	}
	s.hub.Publish(accountID, notify.Products, products)
}
