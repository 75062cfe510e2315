package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sale is an immutable sale record. Items maps product id to quantity sold;
// CustomerName is captured at sale time and does not track later renames.
// A sale keeps no strong reference to its products: quantities stay valid
// even if a referenced product is later deleted.
type Sale struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	CustomerID   uuid.UUID         `json:"customer_id" db:"customer_id"`
	CustomerName string            `json:"customer_name" db:"customer_name"`
	Items        map[uuid.UUID]int `json:"items"`
	Total        float64           `json:"total" db:"total"`
	AccountID    uuid.UUID         `json:"account_id" db:"account_id"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// IsValid reports whether the record satisfies its own invariant:
// a customer reference, at least one item, positive total.
func (s *Sale) IsValid() bool {
	return s.CustomerID != uuid.Nil &&
		len(s.Items) > 0 &&
		s.Total > 0
}

// FormattedTotal renders the total as "$1,234.50".
func (s *Sale) FormattedTotal() string {
	return FormatMoney(s.Total)
}

// FormattedDate renders the sale timestamp as "02/01/2006 15:04".
func (s *Sale) FormattedDate() string {
	return s.CreatedAt.Format("02/01/2006 15:04")
}
