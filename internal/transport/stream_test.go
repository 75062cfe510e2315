package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ventaexpress/internal/domain"
	"ventaexpress/internal/middleware"
	"ventaexpress/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// streamRecorder is a flushable recorder safe to read while the stream
// handler is still writing. Each flush is signalled on a channel so the
// test can wait for a whole event instead of polling.
type streamRecorder struct {
	mu      sync.Mutex
	rec     *httptest.ResponseRecorder
	flushes chan struct{}
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{rec: httptest.NewRecorder(), flushes: make(chan struct{}, 8)}
}

func (r *streamRecorder) Header() http.Header { return r.rec.Header() }

func (r *streamRecorder) WriteHeader(code int) { r.rec.WriteHeader(code) }

func (r *streamRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.Write(b)
}

func (r *streamRecorder) Flush() {
	r.flushes <- struct{}{}
}

func (r *streamRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.Body.String()
}

func (r *streamRecorder) waitFlush(t *testing.T) {
	t.Helper()
	select {
	case <-r.flushes:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a stream event")
	}
}

// Every event on a stream carries the same response shape: a snapshot
// published after a write renders exactly like the opening snapshot.
func TestStreamEventsShareOneShape(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	accountID := uuid.New()
	stored := []*domain.Customer{{
		ID:        uuid.New(),
		Name:      "Maria Lopez",
		Email:     "maria@example.com",
		Phone:     "7123-4567",
		AccountID: accountID,
		CreatedAt: time.Date(2024, 3, 7, 14, 5, 0, 0, time.UTC),
	}}

	// Block the opening fetch until a snapshot has been published, so the
	// published event is provably delivered through the subscription.
	fetchEntered := make(chan struct{})
	release := make(chan struct{})
	fetch := func() (interface{}, error) {
		close(fetchEntered)
		<-release
		return toCustomerResponses(stored), nil
	}
	render := func(records interface{}) (interface{}, error) {
		customers, ok := records.([]*domain.Customer)
		if !ok {
			return nil, fmt.Errorf("unexpected snapshot payload %T", records)
		}
		return toCustomerResponses(customers), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest("GET", "/api/customers/stream", nil)
	req = req.WithContext(context.WithValue(ctx, middleware.AccountIDKey, accountID))

	w := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		streamCollection(w, req, hub, notify.Customers, fetch, render, zap.NewNop())
		close(done)
	}()

	<-fetchEntered
	hub.Publish(accountID, notify.Customers, stored)
	close(release)

	w.waitFlush(t) // opening snapshot
	w.waitFlush(t) // published snapshot
	cancel()
	<-done

	events := strings.Split(strings.TrimSuffix(w.body(), "\n\n"), "\n\n")
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d: %q", len(events), w.body())
	}

	var payloads []string
	for _, event := range events {
		if !strings.HasPrefix(event, "event: customers\ndata: ") {
			t.Fatalf("Malformed event: %q", event)
		}
		data := strings.TrimPrefix(event, "event: customers\ndata: ")

		var records []CustomerResponse
		if err := json.Unmarshal([]byte(data), &records); err != nil {
			t.Fatalf("Event is not a customer response list: %v (%q)", err, data)
		}
		if strings.Contains(data, "account_id") {
			t.Error("Event leaked the account identifier")
		}
		payloads = append(payloads, data)
	}

	if payloads[0] != payloads[1] {
		t.Errorf("Opening and published events disagree:\n%s\n%s", payloads[0], payloads[1])
	}
}
