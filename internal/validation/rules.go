package validation

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"ventaexpress/internal/domain"
)

const (
	NameMinLen = 2
	NameMaxLen = 100

	DescriptionMinLen = 10
	DescriptionMaxLen = 500

	PriceMax = 1_000_000
	StockMax = 10_000
)

// FieldError is one failed rule for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects the outcome of evaluating every rule for a form. Rules are
// never short-circuited so each field can surface its own reason.
type Result struct {
	Errors []FieldError
}

func (r *Result) add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// OK reports whether every evaluated rule passed.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Name checks a name-like field: required, length within [2, 100].
// Lengths count characters, not bytes.
func (r *Result) Name(field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		r.add(field, "name is required")
	case utf8.RuneCountInString(value) < NameMinLen:
		r.add(field, "name must be at least 2 characters")
	case utf8.RuneCountInString(value) > NameMaxLen:
		r.add(field, "name must be at most 100 characters")
	}
}

// Description checks a description field: required, length within [10, 500].
func (r *Result) Description(field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		r.add(field, "description is required")
	case utf8.RuneCountInString(value) < DescriptionMinLen:
		r.add(field, "description must be at least 10 characters")
	case utf8.RuneCountInString(value) > DescriptionMaxLen:
		r.add(field, "description must be at most 500 characters")
	}
}

// Email checks an email field against the customer email pattern.
func (r *Result) Email(field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		r.add(field, "email is required")
	case !domain.ValidEmail(value):
		r.add(field, "invalid email format")
	}
}

// Phone checks a phone field against the fixed ####-#### pattern with a
// leading digit of 2, 6 or 7.
func (r *Result) Phone(field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		r.add(field, "phone is required")
	case !domain.ValidPhone(value):
		r.add(field, "invalid phone format, use ####-####")
	}
}

// Price parses a price field, ignoring thousands separators, and checks it
// is a positive decimal no greater than 1,000,000. Returns the parsed value
// when the rule passes.
func (r *Result) Price(field, value string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if cleaned == "" {
		r.add(field, "price is required")
		return 0
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		r.add(field, "invalid price")
		return 0
	}
	switch {
	case price <= 0:
		r.add(field, "price must be greater than 0")
	case price > PriceMax:
		r.add(field, "price is too high")
	}
	return price
}

// Stock parses a stock field and checks it is a non-negative integer no
// greater than 10,000. Returns the parsed value when the rule passes.
func (r *Result) Stock(field, value string) int {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		r.add(field, "stock is required")
		return 0
	}
	stock, err := strconv.Atoi(cleaned)
	if err != nil {
		r.add(field, "invalid stock")
		return 0
	}
	switch {
	case stock < 0:
		r.add(field, "stock cannot be negative")
	case stock > StockMax:
		r.add(field, "stock is too high")
	}
	return stock
}
