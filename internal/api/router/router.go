// Package router wires every HTTP surface of the service onto one chi mux.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aorysoft/leadbot/internal/booking"
	"github.com/aorysoft/leadbot/internal/calendar"
	"github.com/aorysoft/leadbot/internal/conversation"
	httpmiddleware "github.com/aorysoft/leadbot/internal/http/middleware"
	"github.com/aorysoft/leadbot/internal/webchat"
	"github.com/aorysoft/leadbot/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	BookingHandler      *booking.Handler
	CalendarHandler     *calendar.Handler
	WebchatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// ChatRatePerSecond enables per-IP rate limiting on the chat surfaces
	// when > 0. ChatBurst defaults to 10.
	ChatRatePerSecond float64
	ChatBurst         int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.CalendarHandler != nil {
		r.Get("/calendar", cfg.CalendarHandler.GetCalendar)
	}

	if cfg.BookingHandler != nil {
		r.Post("/book", cfg.BookingHandler.Book)
		r.Post("/save-form", cfg.BookingHandler.SaveForm)
	}

	r.Group(func(chat chi.Router) {
		if cfg.ChatRatePerSecond > 0 {
			burst := cfg.ChatBurst
			if burst <= 0 {
				burst = 10
			}
			chat.Use(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, burst))
		}
		if cfg.ConversationHandler != nil {
			chat.Post("/chat", cfg.ConversationHandler.Chat)
		}
		if cfg.WebchatHandler != nil {
			chat.Get("/chat/ws", cfg.WebchatHandler.HandleWebSocket)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"message": "Lead Generation Chatbot API is running",
	})
}
