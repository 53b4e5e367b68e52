// Package intent classifies inbound utterances into a fixed set of domain
// actions. The resolver is pure: it never touches the calendar or the
// ledger, so a misclassification can never corrupt state.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aorysoft/leadbot/internal/llm"
	"github.com/aorysoft/leadbot/pkg/logging"
)

// Kind enumerates the actions the orchestrator knows how to take.
type Kind string

const (
	KindGreeting           Kind = "greeting"
	KindInformationSeeking Kind = "information_seeking"
	KindListSlots          Kind = "list_slots"
	KindBookSlot           Kind = "book_slot"
	KindUnclassified       Kind = "unclassified"
)

// Reason codes attached to KindUnclassified resolutions.
const (
	ReasonEmptyInput  = "empty_input"
	ReasonTimeout     = "llm_timeout"
	ReasonLLMError    = "llm_error"
	ReasonUnparseable = "unparseable_reply"
)

// BookingDetails carries the fields extracted for a book_slot intent.
type BookingDetails struct {
	Slot    string `json:"slot"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Note    string `json:"note"`
}

// Resolution is the tagged result of classifying one utterance.
type Resolution struct {
	Kind    Kind
	Booking *BookingDetails // set only for KindBookSlot
	Reason  string          // set only for KindUnclassified
}

const classifierPrompt = `Classify this message to a software consultancy's scheduling assistant into ONE intent. Respond with JSON only.

Intents:
- greeting: Hello, hi, small talk with no request
- information_seeking: Questions about services, pricing, capabilities, or anything not covered below
- list_slots: Asking to meet, schedule, book a call, or see available times, without naming a specific slot and contact details
- book_slot: Asking to book a specific slot AND providing contact details

For book_slot, extract what the user supplied; use "" for anything missing.
The slot field must be in "YYYY-MM-DD H:MM AM/PM" form if the user named one.

Message: %s

Respond with: {"intent": "<intent>", "slot": "", "name": "", "email": "", "phone": "", "company": "", "note": ""}`

// Resolver classifies utterances via the text-completion service, bounded
// by a timeout so a slow model can never stall a request indefinitely.
type Resolver struct {
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

// NewResolver creates a resolver. A zero timeout defaults to 10s.
func NewResolver(client llm.Client, model string, timeout time.Duration, logger *logging.Logger) *Resolver {
	if client == nil {
		panic("intent: llm client required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{client: client, model: model, timeout: timeout, logger: logger}
}

// Resolve classifies one utterance. history is the most recent prior
// exchange, if any; it is passed to the model for context only. Resolve
// never returns an error: every failure degrades to KindUnclassified with a
// reason code so the orchestrator can fall back deterministically.
func (r *Resolver) Resolve(ctx context.Context, utterance string, history []llm.Message) Resolution {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Resolution{Kind: KindUnclassified, Reason: ReasonEmptyInput}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(classifierPrompt, utterance),
	})

	resp, err := r.client.Complete(ctx, llm.Request{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		reason := ReasonLLMError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		r.logger.Warn("intent classification failed", "reason", reason, "error", err)
		return Resolution{Kind: KindUnclassified, Reason: reason}
	}

	return r.parse(resp.Text)
}

// parse extracts the JSON object from the model reply and maps it onto the
// intent enumeration. A book_slot missing its required fields degrades to
// information_seeking so the orchestrator asks for the rest instead of
// attempting a malformed booking.
func (r *Resolver) parse(reply string) Resolution {
	content := strings.TrimSpace(reply)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		r.logger.Warn("intent reply had no JSON object", "reply", truncate(content, 120))
		return Resolution{Kind: KindUnclassified, Reason: ReasonUnparseable}
	}

	var result struct {
		Intent string `json:"intent"`
		BookingDetails
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		r.logger.Warn("intent reply was not valid JSON", "error", err)
		return Resolution{Kind: KindUnclassified, Reason: ReasonUnparseable}
	}

	switch Kind(strings.ToLower(strings.TrimSpace(result.Intent))) {
	case KindGreeting:
		return Resolution{Kind: KindGreeting}
	case KindInformationSeeking:
		return Resolution{Kind: KindInformationSeeking}
	case KindListSlots:
		return Resolution{Kind: KindListSlots}
	case KindBookSlot:
		details := result.BookingDetails
		if strings.TrimSpace(details.Slot) == "" ||
			strings.TrimSpace(details.Name) == "" ||
			strings.TrimSpace(details.Email) == "" {
			return Resolution{Kind: KindInformationSeeking}
		}
		return Resolution{Kind: KindBookSlot, Booking: &details}
	default:
		return Resolution{Kind: KindUnclassified, Reason: ReasonUnparseable}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
