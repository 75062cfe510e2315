package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ventaexpress/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound = errors.New("sale not found")

	// ErrStockChanged means a product's stock no longer matched the value
	// the sale was validated against. The whole transaction is rolled back;
	// neither the sale nor any stock decrement is applied.
	ErrStockChanged = errors.New("product stock changed concurrently")
)

// SaleRepository defines the interface for sale data access. Sales are
// immutable once created: there is no update or delete operation.
type SaleRepository interface {
	// Create writes the sale record and decrements stock for every sold
	// product in one transaction. stockAt holds the per-product stock the
	// caller validated against; each decrement is conditional on that value
	// so a concurrent sale fails the whole transaction instead of driving
	// stock negative.
	Create(ctx context.Context, sale *domain.Sale, stockAt map[uuid.UUID]int) error
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*domain.Sale, error)
	List(ctx context.Context, accountID uuid.UUID) ([]*domain.Sale, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Create inserts the sale, its items, and the stock decrements atomically
func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale, stockAt map[uuid.UUID]int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sale transaction: %w", err)
	}
	defer tx.Rollback()

	saleQuery := `
		INSERT INTO sales (id, customer_id, customer_name, total, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.ExecContext(
		ctx,
		saleQuery,
		sale.ID,
		sale.CustomerID,
		sale.CustomerName,
		sale.Total,
		sale.AccountID,
		sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	itemQuery := `
		INSERT INTO sale_items (sale_id, product_id, quantity)
		VALUES ($1, $2, $3)
	`
	stockQuery := `
		UPDATE products
		SET stock = stock - $3
		WHERE id = $1 AND account_id = $2 AND stock = $4
	`

	for productID, quantity := range sale.Items {
		if _, err := tx.ExecContext(ctx, itemQuery, sale.ID, productID, quantity); err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}

		knownStock, ok := stockAt[productID]
		if !ok {
			return fmt.Errorf("no stock snapshot for product %s", productID)
		}

		result, err := tx.ExecContext(ctx, stockQuery, productID, sale.AccountID, quantity, knownStock)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrStockChanged
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale transaction: %w", err)
	}

	return nil
}

// FindByID retrieves a sale with its items within the account namespace
func (r *saleRepository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*domain.Sale, error) {
	query := `
		SELECT id, customer_id, customer_name, total, account_id, created_at
		FROM sales
		WHERE id = $1 AND account_id = $2
	`

	sale := &domain.Sale{}
	err := r.db.QueryRowContext(ctx, query, id, accountID).Scan(
		&sale.ID,
		&sale.CustomerID,
		&sale.CustomerName,
		&sale.Total,
		&sale.AccountID,
		&sale.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	sale.Items = map[uuid.UUID]int{}

	itemQuery := `
		SELECT product_id, quantity
		FROM sale_items
		WHERE sale_id = $1
	`
	rows, err := r.db.QueryContext(ctx, itemQuery, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID uuid.UUID
		var quantity int
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		sale.Items[productID] = quantity
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale items: %w", err)
	}

	return sale, nil
}

// List retrieves the full sale collection for one account, newest first
func (r *saleRepository) List(ctx context.Context, accountID uuid.UUID) ([]*domain.Sale, error) {
	query := `
		SELECT id, customer_id, customer_name, total, account_id, created_at
		FROM sales
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	for rows.Next() {
		sale := &domain.Sale{}
		err := rows.Scan(
			&sale.ID,
			&sale.CustomerID,
			&sale.CustomerName,
			&sale.Total,
			&sale.AccountID,
			&sale.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	if len(sales) == 0 {
		return sales, nil
	}

	byID := make(map[uuid.UUID]*domain.Sale, len(sales))
	for _, sale := range sales {
		sale.Items = map[uuid.UUID]int{}
		byID[sale.ID] = sale
	}

	itemQuery := `
		SELECT si.sale_id, si.product_id, si.quantity
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.account_id = $1
	`
	itemRows, err := r.db.QueryContext(ctx, itemQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var saleID, productID uuid.UUID
		var quantity int
		if err := itemRows.Scan(&saleID, &productID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		if sale, ok := byID[saleID]; ok {
			sale.Items[productID] = quantity
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale items: %w", err)
	}

	return sales, nil
}
