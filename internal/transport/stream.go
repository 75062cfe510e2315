package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ventaexpress/internal/middleware"
	"ventaexpress/internal/notify"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// streamCollection serves one account's collection as a server-sent event
// stream. The first event is a full snapshot fetched on open; every later
// event is a full snapshot published after a write, passed through render so
// both carry the same response shape. The subscription is torn down when the
// client disconnects.
func streamCollection(
	w http.ResponseWriter,
	r *http.Request,
	hub *notify.Hub,
	collection notify.Collection,
	fetch func() (interface{}, error),
	render func(records interface{}) (interface{}, error),
	logger *zap.Logger,
) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.RespondWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before the initial fetch so writes that land in between
	// are not lost.
	sub := hub.Subscribe(accountID, collection)
	defer sub.Unsubscribe()

	records, err := fetch()
	if err != nil {
		logger.Error("Initial snapshot fetch failed",
			zap.String("collection", string(collection)),
			zap.Error(err),
		)
		middleware.RespondWithBackendError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, flusher, collection, records); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-sub.C:
			if !ok {
				return
			}
			view, err := render(snapshot.Records)
			if err != nil {
				logger.Error("Dropping snapshot the stream cannot render",
					zap.String("collection", string(snapshot.Collection)),
					zap.Error(err),
				)
				continue
			}
			if err := writeEvent(w, flusher, snapshot.Collection, view); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, collection notify.Collection, records interface{}) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", collection, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func parseID(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, param))
}
