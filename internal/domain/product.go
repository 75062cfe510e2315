package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is an inventory item owned by one account. Stock is mutated only
// by direct edits and by the sale transaction's decrement.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	AccountID   uuid.UUID `json:"account_id" db:"account_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsValid reports whether the record satisfies its own invariant:
// non-empty name and description, positive price, non-negative stock.
func (p *Product) IsValid() bool {
	return p.Name != "" &&
		p.Description != "" &&
		p.Price > 0 &&
		p.Stock >= 0
}

// FormattedPrice renders the price as "$1,234.50".
func (p *Product) FormattedPrice() string {
	return FormatMoney(p.Price)
}
