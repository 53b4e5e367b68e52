package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aorysoft/leadbot/pkg/logging"
)

// Handler exposes the chat turn over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("conversation: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

// ChatResponse is the POST /chat reply.
type ChatResponse struct {
	Response       string   `json:"response"`
	AvailableSlots []string `json:"available_slots,omitempty"`
}

// Chat handles POST /chat. Only a malformed or empty request is a client
// error; every understood request gets a 200 with a reply payload.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	reply := h.service.Respond(r.Context(), req.ThreadID, req.Message)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ChatResponse{
		Response:       reply.Message,
		AvailableSlots: reply.AvailableSlots,
	}); err != nil {
		h.logger.Error("failed to encode chat response", "error", err)
	}
}
