package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidEmail(t *testing.T) {
	valid := []string{
		"maria@example.com",
		"maria.lopez@example.com",
		"maria+tag@example.com",
		"m_l-1@sub.example.com",
		// Dotless domains pass the pattern on purpose
		"a@b",
	}
	invalid := []string{
		"",
		"maria",
		"@example.com",
		"maria@",
		"maria lopez@example.com",
		"maria@exam ple.com",
	}

	for _, email := range valid {
		if !ValidEmail(email) {
			t.Errorf("ValidEmail(%q) = false, want true", email)
		}
	}
	for _, email := range invalid {
		if ValidEmail(email) {
			t.Errorf("ValidEmail(%q) = true, want false", email)
		}
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{"2123-4567", "6000-0000", "7999-9999"}
	invalid := []string{
		"",
		"1123-4567", // leading digit must be 2, 6 or 7
		"9123-4567",
		"71234567",   // missing dash
		"7123-456",   // too short
		"7123-45678", // too long
		"7123 4567",
		"712a-4567",
	}

	for _, phone := range valid {
		if !ValidPhone(phone) {
			t.Errorf("ValidPhone(%q) = false, want true", phone)
		}
	}
	for _, phone := range invalid {
		if ValidPhone(phone) {
			t.Errorf("ValidPhone(%q) = true, want false", phone)
		}
	}
}

func TestCustomerIsValid(t *testing.T) {
	base := Customer{
		ID:        uuid.New(),
		Name:      "Maria Lopez",
		Email:     "maria@example.com",
		Phone:     "7123-4567",
		AccountID: uuid.New(),
		CreatedAt: time.Now(),
	}
	if !base.IsValid() {
		t.Fatal("A well-formed customer should be valid")
	}

	mutations := map[string]func(c *Customer){
		"empty name":  func(c *Customer) { c.Name = "" },
		"empty email": func(c *Customer) { c.Email = "" },
		"bad email":   func(c *Customer) { c.Email = "not an email" },
		"empty phone": func(c *Customer) { c.Phone = "" },
		"bad phone":   func(c *Customer) { c.Phone = "12345" },
	}
	for name, mutate := range mutations {
		c := base
		mutate(&c)
		if c.IsValid() {
			t.Errorf("Customer with %s should be invalid", name)
		}
	}
}
