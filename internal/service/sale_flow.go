package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ventaexpress/internal/domain"
	"ventaexpress/internal/notify"
	"ventaexpress/internal/repository"

	"github.com/google/uuid"
)

// FlowState is where a sale flow currently stands.
type FlowState string

const (
	SelectingCustomer FlowState = "selecting_customer"
	SelectingProducts FlowState = "selecting_products"
	ReadyToConfirm    FlowState = "ready_to_confirm"
	Submitting        FlowState = "submitting"
	Done              FlowState = "done"
	Failed            FlowState = "failed"
)

var (
	ErrCustomerNotSelected = errors.New("no customer selected")
	ErrUnknownProduct      = errors.New("product is not in the flow snapshot")
	ErrQuantityAtStock     = errors.New("quantity already at available stock")
	ErrQuantityAtZero      = errors.New("quantity already at zero")
	ErrNotReady            = errors.New("sale is not ready to confirm")
	ErrFlowFinished        = errors.New("sale flow already finished")
)

// InsufficientStockError names each product whose requested quantity
// exceeds the stock known to the flow.
type InsufficientStockError struct {
	Products []string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Products))
}

// SaleFlow is the one stateful multi-step process: pick a customer, adjust
// per-product quantities, confirm. Customers and products are snapshotted
// once at flow entry and never re-fetched; the confirm-time stock check and
// the decrement both run against that snapshot, and the repository's
// conditional write fails the whole transaction if stock moved underneath.
type SaleFlow struct {
	accountID uuid.UUID
	customers []*domain.Customer
	products  []*domain.Product
	byID      map[uuid.UUID]*domain.Product

	state    FlowState
	customer *domain.Customer
	selected map[uuid.UUID]int
	total    float64

	saleRepo repository.SaleRepository
	hub      *notify.Hub
}

// NewSaleFlow reads both collections once and enters SelectingCustomer.
// Only products with stock available are offered.
func NewSaleFlow(ctx context.Context, accountID uuid.UUID, customerRepo repository.CustomerRepository, productRepo repository.ProductRepository, saleRepo repository.SaleRepository, hub *notify.Hub) (*SaleFlow, error) {
	customers, err := customerRepo.List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	products, err := productRepo.ListInStock(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	return &SaleFlow{
		accountID: accountID,
		customers: customers,
		products:  products,
		byID:      byID,
		state:     SelectingCustomer,
		selected:  map[uuid.UUID]int{},
		saleRepo:  saleRepo,
		hub:       hub,
	}, nil
}

// State returns the flow's current state.
func (f *SaleFlow) State() FlowState { return f.state }

// Customers returns the customer snapshot taken at flow entry.
func (f *SaleFlow) Customers() []*domain.Customer { return f.customers }

// Products returns the product snapshot taken at flow entry.
func (f *SaleFlow) Products() []*domain.Product { return f.products }

// Total returns the running total, to the cent.
func (f *SaleFlow) Total() float64 { return f.total }

// Quantity returns the currently selected quantity for a product.
func (f *SaleFlow) Quantity(productID uuid.UUID) int { return f.selected[productID] }

// SelectCustomer picks the sale's customer. Exactly one must be chosen
// before confirming; passing uuid.Nil clears the choice.
func (f *SaleFlow) SelectCustomer(id uuid.UUID) error {
	if f.finished() {
		return ErrFlowFinished
	}

	if id == uuid.Nil {
		f.customer = nil
		f.recompute()
		return nil
	}

	for _, c := range f.customers {
		if c.ID == id {
			f.customer = c
			f.recompute()
			return nil
		}
	}
	return errors.New("customer is not in the flow snapshot")
}

// Increment raises a product's quantity by one. The control is bounded to
// the stock known at flow entry: at quantity == stock the increment is
// refused, so an overselling selection is unreachable through it.
func (f *SaleFlow) Increment(productID uuid.UUID) error {
	if f.finished() {
		return ErrFlowFinished
	}

	product, ok := f.byID[productID]
	if !ok {
		return ErrUnknownProduct
	}
	if f.selected[productID] >= product.Stock {
		return ErrQuantityAtStock
	}

	f.selected[productID]++
	f.recompute()
	return nil
}

// Decrement lowers a product's quantity by one, never below zero. A
// product at zero quantity leaves the selection.
func (f *SaleFlow) Decrement(productID uuid.UUID) error {
	if f.finished() {
		return ErrFlowFinished
	}

	if _, ok := f.byID[productID]; !ok {
		return ErrUnknownProduct
	}
	if f.selected[productID] == 0 {
		return ErrQuantityAtZero
	}

	f.selected[productID]--
	if f.selected[productID] == 0 {
		delete(f.selected, productID)
	}
	f.recompute()
	return nil
}

// SetQuantity sets a product's quantity directly, bounded to [0, stock].
func (f *SaleFlow) SetQuantity(productID uuid.UUID, quantity int) error {
	if f.finished() {
		return ErrFlowFinished
	}

	product, ok := f.byID[productID]
	if !ok {
		return ErrUnknownProduct
	}
	if quantity < 0 || quantity > product.Stock {
		return fmt.Errorf("quantity for %q must be within [0, %d]", product.Name, product.Stock)
	}

	if quantity == 0 {
		delete(f.selected, productID)
	} else {
		f.selected[productID] = quantity
	}
	f.recompute()
	return nil
}

// Confirm re-validates stock sufficiency against the flow snapshot, builds
// the sale record, checks its invariant, and persists it together with the
// stock decrements as one transaction. On a write error the flow returns to
// ReadyToConfirm and may be retried; no partial decrement is possible.
func (f *SaleFlow) Confirm(ctx context.Context) (*domain.Sale, error) {
	if f.finished() {
		return nil, ErrFlowFinished
	}
	if f.state != ReadyToConfirm {
		return nil, ErrNotReady
	}

	var insufficient []string
	for productID, quantity := range f.selected {
		product := f.byID[productID]
		if quantity > product.Stock {
			insufficient = append(insufficient, product.Name)
		}
	}
	if len(insufficient) > 0 {
		f.state = SelectingProducts
		return nil, &InsufficientStockError{Products: insufficient}
	}

	f.state = Submitting

	items := make(map[uuid.UUID]int, len(f.selected))
	stockAt := make(map[uuid.UUID]int, len(f.selected))
	for productID, quantity := range f.selected {
		items[productID] = quantity
		stockAt[productID] = f.byID[productID].Stock
	}

	sale := &domain.Sale{
		ID:           uuid.New(),
		CustomerID:   f.customer.ID,
		CustomerName: f.customer.Name,
		Items:        items,
		Total:        f.total,
		AccountID:    f.accountID,
		CreatedAt:    time.Now(),
	}

	// Should be unreachable when field validation is correct; fatal if not.
	if !sale.IsValid() {
		f.state = Failed
		return nil, ErrDataIntegrity
	}

	if err := f.saleRepo.Create(ctx, sale, stockAt); err != nil {
		f.state = ReadyToConfirm
		return nil, err
	}

	f.state = Done

	sales, err := f.saleRepo.List(ctx, f.accountID)
	if err == nil {
		f.hub.Publish(f.accountID, notify.Sales, sales)
	}

	return sale, nil
}

func (f *SaleFlow) finished() bool {
	return f.state == Done || f.state == Failed
}

// recompute derives the running total and the confirmability of the flow
// from the current selection. The total is Σ(quantity × price) over the
// snapshot, rounded to the cent.
func (f *SaleFlow) recompute() {
	f.total = 0
	for productID, quantity := range f.selected {
		f.total += f.byID[productID].Price * float64(quantity)
	}
	f.total = math.Round(f.total*100) / 100

	if f.customer != nil && len(f.selected) > 0 && f.total > 0 {
		f.state = ReadyToConfirm
	} else if f.customer == nil {
		f.state = SelectingCustomer
	} else {
		f.state = SelectingProducts
	}
}
