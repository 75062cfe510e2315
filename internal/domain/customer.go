package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Email pattern intentionally accepts domains without a dot (e.g. "a@b").
// Tightening it would reject addresses existing accounts already stored.
var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)
	phonePattern = regexp.MustCompile(`^[267][0-9]{3}-[0-9]{4}$`)
)

// Customer is a merchant's customer record, scoped to one account.
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	AccountID uuid.UUID `json:"account_id" db:"account_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsValid reports whether the record satisfies its own invariant:
// non-empty name, email matching the email pattern, phone matching the
// fixed local format (leading digit 2, 6 or 7, then ###-####).
func (c *Customer) IsValid() bool {
	return c.Name != "" &&
		c.Email != "" &&
		ValidEmail(c.Email) &&
		ValidPhone(c.Phone)
}

// ValidEmail reports whether s matches the customer email pattern.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidPhone reports whether s matches the customer phone pattern.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}
