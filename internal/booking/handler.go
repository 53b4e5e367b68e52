package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aorysoft/leadbot/internal/calendar"
	"github.com/aorysoft/leadbot/internal/ledger"
	"github.com/aorysoft/leadbot/pkg/logging"
)

// Handler handles the HTTP booking surface. Core failures come back as
// well-formed payloads with success=false; only malformed bodies get a 4xx.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a booking handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// BookRequest is the POST /book body.
type BookRequest struct {
	Slot             string `json:"slot"`
	ClientName       string `json:"client_name"`
	IdempotencyToken string `json:"idempotency_token,omitempty"`
}

// BookResponse is the POST /book reply.
type BookResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Book handles POST /book requests.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Book(r.Context(), Request{
		Slot:             req.Slot,
		Name:             req.ClientName,
		IdempotencyToken: req.IdempotencyToken,
	})
	if err != nil {
		writeJSON(w, h.logger, BookResponse{Message: userMessage(err, req.Slot), Success: false})
		return
	}

	message := fmt.Sprintf("Booked %s for %s. Confirmation sent!", result.Record.Slot, result.Record.Name)
	if result.Replayed {
		message = fmt.Sprintf("%s is already confirmed for %s.", result.Record.Slot, result.Record.Name)
	}
	writeJSON(w, h.logger, BookResponse{Message: message, Success: true})
}

// FormRequest is the POST /save-form body, matching the widget form.
type FormRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Company      string `json:"company"`
	SelectedSlot string `json:"selected_slot"`
	Message      string `json:"message"`
}

// FormResponse is the POST /save-form reply.
type FormResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SaveForm handles POST /save-form requests: a full booking with contact
// details collected by the widget form.
func (h *Handler) SaveForm(w http.ResponseWriter, r *http.Request) {
	var req FormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	bookingReq := Request{
		Slot:    req.SelectedSlot,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Note:    req.Message,
	}
	if err := bookingReq.ValidateForm(); err != nil {
		writeJSON(w, h.logger, FormResponse{Success: false, Message: "Missing required booking information."})
		return
	}

	result, err := h.service.Book(r.Context(), bookingReq)
	if err != nil {
		writeJSON(w, h.logger, FormResponse{Success: false, Message: userMessage(err, req.SelectedSlot)})
		return
	}

	message := "Form data saved successfully!"
	if result.Replayed {
		message = "This booking was already saved."
	}
	writeJSON(w, h.logger, FormResponse{Success: true, Message: message})
}

// userMessage converts a core error into the user-facing text the chat and
// form surfaces show. Raw errors never leak through.
func userMessage(err error, slot string) string {
	switch {
	case errors.Is(err, calendar.ErrSlotNotFound), errors.Is(err, calendar.ErrInvalidSlotID):
		return fmt.Sprintf("Slot %s is not available or invalid.", slot)
	case errors.Is(err, calendar.ErrSlotAlreadyBooked):
		return fmt.Sprintf("Sorry, %s was just taken. Please pick another time.", slot)
	case errors.Is(err, ledger.ErrNotWritable):
		return "We could not record your booking. Please try again in a moment."
	case errors.Is(err, ErrTokenReused):
		return "This booking reference was already used for a different time. Please retry without it."
	case errors.Is(err, ErrMissingSlot), errors.Is(err, ErrMissingName), errors.Is(err, ErrMissingFields):
		return "Missing required booking information."
	default:
		return "Something went wrong while booking. Please try again."
	}
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
