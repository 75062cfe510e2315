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
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access, scoped
// to one account. Stock changes arrive here either as an absolute set via
// Upsert or through the sale transaction in SaleRepository.
type ProductRepository interface {
	Upsert(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, accountID uuid.UUID) ([]*domain.Product, error)
	ListInStock(ctx context.Context, accountID uuid.UUID) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Upsert writes a product keyed by its identifier. An existing record is
// overwritten unconditionally (last-write-wins); the original creation
// timestamp is preserved across edits and written back into the record so
// the caller never reports a timestamp the database does not hold.
func (r *productRepository) Upsert(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, stock, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    price = EXCLUDED.price, stock = EXCLUDED.stock
		WHERE products.account_id = EXCLUDED.account_id
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.AccountID,
		product.CreatedAt,
	).Scan(&product.CreatedAt)

	if err != nil {
		// No row comes back when the identifier exists under another account.
		if err == sql.ErrNoRows {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// Delete removes a product from the account namespace. Past sales keep
// their recorded quantities; they hold no strong reference to the product.
func (r *productRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1 AND account_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID within the account namespace
func (r *productRepository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, stock, account_id, created_at
		FROM products
		WHERE id = $1 AND account_id = $2
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id, accountID).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.AccountID,
		&product.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves the full product collection for one account. Collections
// are assumed small enough for a full-snapshot model; no pagination.
func (r *productRepository) List(ctx context.Context, accountID uuid.UUID) ([]*domain.Product, error) {
	return r.list(ctx, accountID, false)
}

// ListInStock retrieves only products with stock available, the snapshot
// the sale flow starts from.
func (r *productRepository) ListInStock(ctx context.Context, accountID uuid.UUID) ([]*domain.Product, error) {
	return r.list(ctx, accountID, true)
}

func (r *productRepository) list(ctx context.Context, accountID uuid.UUID, inStockOnly bool) ([]*domain.Product, error) {
	query := `
		SELECT id, name, description, price, stock, account_id, created_at
		FROM products
		WHERE account_id = $1
	`
	if inStockOnly {
		query += ` AND stock > 0`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.Stock,
			&product.AccountID,
			&product.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
