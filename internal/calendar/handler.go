package calendar

import (
	"encoding/json"
	"net/http"

	"github.com/aorysoft/leadbot/pkg/logging"
)

// Handler serves the read-only calendar endpoints.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a calendar handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// GetCalendar handles GET /calendar requests.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	snapshot := h.store.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("failed to encode calendar snapshot", "error", err)
	}
}
