package repository

import (
	"context"
	"testing"
	"time"

	"ventaexpress/internal/domain"

	"github.com/google/uuid"
)

func saleTestProduct(t *testing.T, repo ProductRepository, accountID uuid.UUID, name string, price float64, stock int) *domain.Product {
	t.Helper()

	product := &domain.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: "Product used by the sale tests",
		Price:       price,
		Stock:       stock,
		AccountID:   accountID,
		CreatedAt:   time.Now(),
	}
	if err := repo.Upsert(context.Background(), product); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}
	return product
}

func TestSaleCreatePersistsSaleAndDecrementsStock(t *testing.T) {
	accountID := createTestAccount(t)
	productRepo := NewProductRepository(testDB)
	saleRepo := NewSaleRepository(testDB)
	ctx := context.Background()

	soda := saleTestProduct(t, productRepo, accountID, "Soda", 1.50, 10)
	chips := saleTestProduct(t, productRepo, accountID, "Chips", 2.75, 4)

	sale := &domain.Sale{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		CustomerName: "Maria Lopez",
		Items: map[uuid.UUID]int{
			soda.ID:  3,
			chips.ID: 2,
		},
		Total:     10.00,
		AccountID: accountID,
		CreatedAt: time.Now(),
	}
	stockAt := map[uuid.UUID]int{
		soda.ID:  10,
		chips.ID: 4,
	}

	if err := saleRepo.Create(ctx, sale, stockAt); err != nil {
		t.Fatalf("Failed to create sale: %v", err)
	}

	retrieved, err := saleRepo.FindByID(ctx, accountID, sale.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve sale: %v", err)
	}
	if retrieved.CustomerName != "Maria Lopez" {
		t.Errorf("CustomerName mismatch: got %s", retrieved.CustomerName)
	}
	if len(retrieved.Items) != 2 {
		t.Fatalf("Expected 2 sale items, got %d", len(retrieved.Items))
	}
	if retrieved.Items[soda.ID] != 3 || retrieved.Items[chips.ID] != 2 {
		t.Errorf("Sale items mismatch: %v", retrieved.Items)
	}

	sodaAfter, err := productRepo.FindByID(ctx, accountID, soda.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve product: %v", err)
	}
	if sodaAfter.Stock != 7 {
		t.Errorf("Expected soda stock 7 after sale, got %d", sodaAfter.Stock)
	}

	chipsAfter, err := productRepo.FindByID(ctx, accountID, chips.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve product: %v", err)
	}
	if chipsAfter.Stock != 2 {
		t.Errorf("Expected chips stock 2 after sale, got %d", chipsAfter.Stock)
	}
}

func TestSaleCreateRollsBackWhenStockChanged(t *testing.T) {
	accountID := createTestAccount(t)
	productRepo := NewProductRepository(testDB)
	saleRepo := NewSaleRepository(testDB)
	ctx := context.Background()

	soda := saleTestProduct(t, productRepo, accountID, "Soda", 1.50, 10)
	chips := saleTestProduct(t, productRepo, accountID, "Chips", 2.75, 4)

	sale := &domain.Sale{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		CustomerName: "Maria Lopez",
		Items: map[uuid.UUID]int{
			soda.ID:  1,
			chips.ID: 1,
		},
		Total:     4.25,
		AccountID: accountID,
		CreatedAt: time.Now(),
	}

	// The caller's view of chips stock is stale: it says 9, the row says 4.
	// The conditional decrement must fail the whole transaction.
	stockAt := map[uuid.UUID]int{
		soda.ID:  10,
		chips.ID: 9,
	}

	err := saleRepo.Create(ctx, sale, stockAt)
	if err != ErrStockChanged {
		t.Fatalf("Expected ErrStockChanged, got: %v", err)
	}

	// No sale row, no items, no partial decrement
	if _, err := saleRepo.FindByID(ctx, accountID, sale.ID); err != ErrSaleNotFound {
		t.Errorf("Expected ErrSaleNotFound for the aborted sale, got: %v", err)
	}

	sodaAfter, err := productRepo.FindByID(ctx, accountID, soda.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve product: %v", err)
	}
	if sodaAfter.Stock != 10 {
		t.Errorf("Soda stock changed by an aborted sale: got %d, want 10", sodaAfter.Stock)
	}

	chipsAfter, err := productRepo.FindByID(ctx, accountID, chips.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve product: %v", err)
	}
	if chipsAfter.Stock != 4 {
		t.Errorf("Chips stock changed by an aborted sale: got %d, want 4", chipsAfter.Stock)
	}
}

func TestSaleFindByIDMissing(t *testing.T) {
	accountID := createTestAccount(t)
	saleRepo := NewSaleRepository(testDB)

	_, err := saleRepo.FindByID(context.Background(), accountID, uuid.New())
	if err != ErrSaleNotFound {
		t.Errorf("Expected ErrSaleNotFound, got: %v", err)
	}
}

func TestSaleListReturnsNewestFirst(t *testing.T) {
	accountID := createTestAccount(t)
	productRepo := NewProductRepository(testDB)
	saleRepo := NewSaleRepository(testDB)
	ctx := context.Background()

	product := saleTestProduct(t, productRepo, accountID, "Soda", 1.50, 100)

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		sale := &domain.Sale{
			ID:           uuid.New(),
			CustomerID:   uuid.New(),
			CustomerName: "Maria Lopez",
			Items:        map[uuid.UUID]int{product.ID: 1},
			Total:        1.50,
			AccountID:    accountID,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		stockAt := map[uuid.UUID]int{product.ID: 100 - i}
		if err := saleRepo.Create(ctx, sale, stockAt); err != nil {
			t.Fatalf("Failed to create sale: %v", err)
		}
		ids = append(ids, sale.ID)
	}

	sales, err := saleRepo.List(ctx, accountID)
	if err != nil {
		t.Fatalf("Failed to list sales: %v", err)
	}
	if len(sales) != 3 {
		t.Fatalf("Expected 3 sales, got %d", len(sales))
	}

	// Newest first
	for i, want := range []uuid.UUID{ids[2], ids[1], ids[0]} {
		if sales[i].ID != want {
			t.Errorf("Sale at position %d out of order", i)
		}
	}

	// Each listed sale carries its items
	for _, s := range sales {
		if s.Items[product.ID] != 1 {
			t.Errorf("Sale %s missing its item line", s.ID)
		}
	}
}
