package service

import (
	"context"
	"errors"
	"testing"

	"ventaexpress/internal/notify"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func newTestCustomerService() (CustomerService, *memCustomerRepo, *notify.Hub) {
	repo := newMemCustomerRepo()
	hub := notify.NewHub(zap.NewNop())
	return NewCustomerService(repo, hub), repo, hub
}

func TestCustomerSaveCreatesRecord(t *testing.T) {
	svc, repo, _ := newTestCustomerService()
	accountID := uuid.New()

	customer, err := svc.Save(context.Background(), accountID, nil, CustomerInput{
		Name:  "Maria Lopez",
		Email: "maria@example.com",
		Phone: "7123-4567",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if customer.ID == uuid.Nil {
		t.Error("Create did not assign an identifier")
	}
	if customer.AccountID != accountID {
		t.Error("Customer not scoped to the signed-in account")
	}
	if _, ok := repo.customers[customer.ID]; !ok {
		t.Error("Customer not persisted")
	}
}

func TestCustomerSaveAccumulatesValidationErrors(t *testing.T) {
	svc, repo, _ := newTestCustomerService()

	_, err := svc.Save(context.Background(), uuid.New(), nil, CustomerInput{
		Name:  "M",
		Email: "not an email",
		Phone: "12345",
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected a ValidationError, got %v", err)
	}

	// Every failed rule reports, not just the first
	fields := make(map[string]bool)
	for _, f := range validationErr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"name", "email", "phone"} {
		if !fields[want] {
			t.Errorf("Missing validation error for field %q", want)
		}
	}

	// Nothing written
	if len(repo.customers) != 0 {
		t.Error("A record was written despite validation failure")
	}
}

func TestCustomerPhoneValidation(t *testing.T) {
	svc, _, _ := newTestCustomerService()
	accountID := uuid.New()

	valid := []string{"2123-4567", "6000-0000", "7999-9999"}
	invalid := []string{"1123-4567", "71234567", "7123-456", "7123-45678", "9123-4567"}

	for _, phone := range valid {
		if _, err := svc.Save(context.Background(), accountID, nil, CustomerInput{
			Name: "Maria Lopez", Email: "maria@example.com", Phone: phone,
		}); err != nil {
			t.Errorf("Phone %q rejected: %v", phone, err)
		}
	}
	for _, phone := range invalid {
		if _, err := svc.Save(context.Background(), accountID, nil, CustomerInput{
			Name: "Maria Lopez", Email: "maria@example.com", Phone: phone,
		}); err == nil {
			t.Errorf("Phone %q accepted", phone)
		}
	}
}

func TestProperty_CustomerSaveIsIdempotentByIdentifier(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("re-saving under the same identifier leaves one record with the last values", prop.ForAll(
		func(name1 string, name2 string, email string, phone string) bool {
			svc, repo, _ := newTestCustomerService()
			accountID := uuid.New()
			ctx := context.Background()

			first, err := svc.Save(ctx, accountID, nil, CustomerInput{Name: name1, Email: email, Phone: phone})
			if err != nil {
				return true // Skip inputs the rules reject
			}

			second, err := svc.Save(ctx, accountID, &first.ID, CustomerInput{Name: name2, Email: email, Phone: phone})
			if err != nil {
				return true
			}

			if second.ID != first.ID {
				t.Logf("FAIL: Edit changed the identifier")
				return false
			}
			if len(repo.customers) != 1 {
				t.Logf("FAIL: Expected one record, got %d", len(repo.customers))
				return false
			}
			if repo.customers[first.ID].Name != name2 {
				t.Logf("FAIL: Last write did not win")
				return false
			}
			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{1,20} [A-Z][a-z]{1,20}`),
		gen.RegexMatch(`[A-Z][a-z]{1,20} [A-Z][a-z]{1,20}`),
		gen.RegexMatch(`[a-z]{3,12}@[a-z]{3,8}\.com`),
		gen.RegexMatch(`[267][0-9]{3}-[0-9]{4}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCustomerEditReturnsStoredCreatedAt(t *testing.T) {
	svc, repo, _ := newTestCustomerService()
	accountID := uuid.New()
	ctx := context.Background()

	first, err := svc.Save(ctx, accountID, nil, CustomerInput{
		Name: "Maria Lopez", Email: "maria@example.com", Phone: "7123-4567",
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.Save(ctx, accountID, &first.ID, CustomerInput{
		Name: "Maria R. Lopez", Email: "maria@example.com", Phone: "7123-4567",
	})
	if err != nil {
		t.Fatal(err)
	}

	// The edit response reports the stored creation time, not the time of
	// the edit itself
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Edit reported CreatedAt %v, stored record holds %v", second.CreatedAt, first.CreatedAt)
	}
	if !repo.customers[first.ID].CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Stored CreatedAt rewritten on edit")
	}
}

func TestCustomerSavePublishesSnapshot(t *testing.T) {
	svc, _, hub := newTestCustomerService()
	accountID := uuid.New()

	sub := hub.Subscribe(accountID, notify.Customers)
	defer sub.Unsubscribe()

	if _, err := svc.Save(context.Background(), accountID, nil, CustomerInput{
		Name: "Maria Lopez", Email: "maria@example.com", Phone: "7123-4567",
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case snapshot := <-sub.C:
		if snapshot.Collection != notify.Customers {
			t.Errorf("Snapshot on wrong collection: %s", snapshot.Collection)
		}
	default:
		t.Fatal("No snapshot published after a save")
	}
}

func TestCustomerDeletePublishesSnapshot(t *testing.T) {
	svc, _, hub := newTestCustomerService()
	accountID := uuid.New()

	customer, err := svc.Save(context.Background(), accountID, nil, CustomerInput{
		Name: "Maria Lopez", Email: "maria@example.com", Phone: "7123-4567",
	})
	if err != nil {
		t.Fatal(err)
	}

	sub := hub.Subscribe(accountID, notify.Customers)
	defer sub.Unsubscribe()

	if err := svc.Delete(context.Background(), accountID, customer.ID); err != nil {
		t.Fatal(err)
	}

	select {
	case <-sub.C:
	default:
		t.Fatal("No snapshot published after a delete")
	}
}
