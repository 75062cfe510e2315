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
	ErrCustomerNotFound = errors.New("customer not found")
)

// CustomerRepository defines the interface for customer data access. Every
// operation is scoped to one account; a record is never visible outside the
// account that owns it.
type CustomerRepository interface {
	Upsert(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*domain.Customer, error)
	List(ctx context.Context, accountID uuid.UUID) ([]*domain.Customer, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Upsert writes a customer keyed by its identifier. An existing record is
// overwritten unconditionally (last-write-wins); the original creation
// timestamp is preserved across edits and written back into the record so
// the caller never reports a timestamp the database does not hold.
func (r *customerRepository) Upsert(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, name, email, phone, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone
		WHERE customers.account_id = EXCLUDED.account_id
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.AccountID,
		customer.CreatedAt,
	).Scan(&customer.CreatedAt)

	if err != nil {
		// No row comes back when the identifier exists under another account.
		if err == sql.ErrNoRows {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("failed to upsert customer: %w", err)
	}

	return nil
}

// Delete removes a customer from the account namespace
func (r *customerRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	query := `DELETE FROM customers WHERE id = $1 AND account_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCustomerNotFound
	}

	return nil
}

// FindByID retrieves a customer by ID within the account namespace
func (r *customerRepository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*domain.Customer, error) {
	query := `
		SELECT id, name, email, phone, account_id, created_at
		FROM customers
		WHERE id = $1 AND account_id = $2
	`

	customer := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, query, id, accountID).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.AccountID,
		&customer.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer by ID: %w", err)
	}

	return customer, nil
}

// List retrieves the full customer collection for one account. Collections
// are assumed small enough for a full-snapshot model; no pagination.
func (r *customerRepository) List(ctx context.Context, accountID uuid.UUID) ([]*domain.Customer, error) {
	query := `
		SELECT id, name, email, phone, account_id, created_at
		FROM customers
		WHERE account_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*domain.Customer{}
	for rows.Next() {
		customer := &domain.Customer{}
		err := rows.Scan(
			&customer.ID,
			&customer.Name,
			&customer.Email,
			&customer.Phone,
			&customer.AccountID,
			&customer.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, nil
}
