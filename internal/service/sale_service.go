package service

import (
	"context"
	"math"

	"ventaexpress/internal/domain"
	"ventaexpress/internal/notify"
	"ventaexpress/internal/repository"

	"github.com/google/uuid"
)

// SaleDetailLine is one product line of a sale detail view. Products
// deleted since the sale are rendered with zero quantity and no name.
type SaleDetailLine struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Missing     bool      `json:"missing"`
}

// SaleService reads the sale ledger: list with a running total aggregate,
// and per-sale detail derivation. Sales are immutable, so there is no
// save or delete here; creation goes through SaleFlow.
type SaleService interface {
	NewFlow(ctx context.Context, accountID uuid.UUID) (*SaleFlow, error)
	List(ctx context.Context, accountID uuid.UUID) ([]*domain.Sale, float64, error)
	Detail(ctx context.Context, accountID, id uuid.UUID) (*domain.Sale, []SaleDetailLine, error)
}

type saleService struct {
	saleRepo     repository.SaleRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	hub          *notify.Hub
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(
	saleRepo repository.SaleRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	hub *notify.Hub,
) SaleService {
	return &saleService{
		saleRepo:     saleRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		hub:          hub,
	}
}

// NewFlow starts a sale flow over a fresh snapshot of both collections
func (s *saleService) NewFlow(ctx context.Context, accountID uuid.UUID) (*SaleFlow, error) {
	return NewSaleFlow(ctx, accountID, s.customerRepo, s.productRepo, s.saleRepo, s.hub)
}

// List returns the full sale snapshot and the running sales total,
// recomputed from scratch over the whole snapshot.
func (s *saleService) List(ctx context.Context, accountID uuid.UUID) ([]*domain.Sale, float64, error) {
	sales, err := s.saleRepo.List(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	var total float64
	for _, sale := range sales {
		total += sale.Total
	}
	total = math.Round(total*100) / 100

	return sales, total, nil
}

// Detail re-derives a sale's product lines from the current inventory.
// A sale holds no strong reference to its products: a line whose product
// was deleted degrades to zero quantity instead of failing the view.
func (s *saleService) Detail(ctx context.Context, accountID, id uuid.UUID) (*domain.Sale, []SaleDetailLine, error) {
	sale, err := s.saleRepo.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.productRepo.List(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]SaleDetailLine, 0, len(sale.Items))
	for productID, quantity := range sale.Items {
		line := SaleDetailLine{ProductID: productID, Quantity: quantity}
		if product, ok := byID[productID]; ok {
			line.ProductName = product.Name
			line.UnitPrice = product.Price
		} else {
			line.Quantity = 0
			line.Missing = true
		}
		lines = append(lines, line)
	}

	return sale, lines, nil
}
