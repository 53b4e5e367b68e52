// Package conversation orchestrates one chat turn: classify the utterance,
// take at most one calendar/booking action, and produce exactly one reply.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aorysoft/leadbot/internal/booking"
	"github.com/aorysoft/leadbot/internal/calendar"
	"github.com/aorysoft/leadbot/internal/intent"
	"github.com/aorysoft/leadbot/internal/ledger"
	"github.com/aorysoft/leadbot/internal/llm"
	"github.com/aorysoft/leadbot/internal/observability/metrics"
	"github.com/aorysoft/leadbot/pkg/logging"
)

var tracer = otel.Tracer("leadbot.internal.conversation")

// maxHistoryMessages bounds the stored transcript so prompts stay small.
const maxHistoryMessages = 20

// defaultThreadID groups messages from clients that do not send a thread id.
const defaultThreadID = "default"

// Reply is the single payload every chat turn produces. AvailableSlots is
// set only when the turn surfaced calendar availability.
type Reply struct {
	Message        string
	AvailableSlots []string
}

// ServiceConfig wires the orchestrator's collaborators.
type ServiceConfig struct {
	Resolver *intent.Resolver
	Calendar *calendar.Store
	Booker   *booking.Service
	LLM      llm.Client
	History  HistoryStore
	Metrics  *metrics.ChatMetrics
	Logger   *logging.Logger

	Model       string
	MaxTokens   int32
	Temperature float32
}

// Service runs the chat turn state machine.
type Service struct {
	resolver *intent.Resolver
	store    *calendar.Store
	booker   *booking.Service
	llm      llm.Client
	history  HistoryStore
	metrics  *metrics.ChatMetrics
	logger   *logging.Logger

	model       string
	maxTokens   int32
	temperature float32
}

// NewService constructs the orchestrator. Metrics may be nil.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Resolver == nil {
		panic("conversation: intent resolver required")
	}
	if cfg.Calendar == nil {
		panic("conversation: calendar store required")
	}
	if cfg.Booker == nil {
		panic("conversation: booking service required")
	}
	if cfg.LLM == nil {
		panic("conversation: llm client required")
	}
	if cfg.History == nil {
		cfg.History = NewMemoryHistoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	return &Service{
		resolver:    cfg.Resolver,
		store:       cfg.Calendar,
		booker:      cfg.Booker,
		llm:         cfg.LLM,
		history:     cfg.History,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Respond handles one inbound message and always returns a reply. Internal
// failures degrade to the fixed fallback message; they never surface as
// errors to the caller.
func (s *Service) Respond(ctx context.Context, threadID, message string) Reply {
	ctx, span := tracer.Start(ctx, "conversation.respond")
	defer span.End()

	if threadID == "" {
		threadID = defaultThreadID
	}
	span.SetAttributes(attribute.String("leadbot.thread_id", threadID))

	history, err := s.history.Load(ctx, threadID)
	if err != nil {
		s.logger.Warn("failed to load history, continuing without it", "thread_id", threadID, "error", err)
		history = nil
	}

	classifyStart := time.Now()
	res := s.resolver.Resolve(ctx, message, lastExchange(history))
	s.metrics.ObserveLLMLatency("classify", time.Since(classifyStart).Seconds())
	span.SetAttributes(attribute.String("leadbot.intent", string(res.Kind)))

	var reply Reply
	status := "ok"
	switch res.Kind {
	case intent.KindGreeting, intent.KindInformationSeeking:
		text, genErr := s.generate(ctx, history, message)
		if genErr != nil {
			s.logger.Warn("reply generation failed, using fallback", "thread_id", threadID, "error", genErr)
			reply.Message = fallbackMessage
			status = "fallback"
		} else {
			reply.Message = text
		}
	case intent.KindListSlots:
		reply = s.listSlots()
	case intent.KindBookSlot:
		reply = s.book(ctx, res.Booking)
	default:
		reply.Message = fallbackMessage
		status = "fallback"
	}

	s.metrics.ObserveChat(string(res.Kind), status)
	s.saveHistory(ctx, threadID, history, message, reply.Message)
	return reply
}

// generate produces a free-form reply for greeting and question turns.
func (s *Service) generate(ctx context.Context, history []llm.Message, message string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	start := time.Now()
	resp, err := s.llm.Complete(ctx, llm.Request{
		Model:       s.model,
		System:      []string{systemPrompt},
		Messages:    messages,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	s.metrics.ObserveLLMLatency("reply", time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", errors.New("conversation: model returned an empty reply")
	}
	return resp.Text, nil
}

// listSlots surfaces current availability straight from the calendar store,
// never from the model.
func (s *Service) listSlots() Reply {
	slots := s.store.ListAvailable()
	if len(slots) == 0 {
		return Reply{Message: "We're fully booked at the moment. Leave your details and we'll reach out as soon as a time opens up."}
	}
	out := make([]string, len(slots))
	for i, id := range slots {
		out[i] = id.String()
	}
	return Reply{
		Message:        "Here are our available meeting times. Which one works best for you?",
		AvailableSlots: out,
	}
}

// book attempts the booking and converts every outcome into user-facing
// text. Failures re-offer whatever is still available.
func (s *Service) book(ctx context.Context, details *intent.BookingDetails) Reply {
	result, err := s.booker.Book(ctx, booking.Request{
		Slot:    details.Slot,
		Name:    details.Name,
		Email:   details.Email,
		Phone:   details.Phone,
		Company: details.Company,
		Note:    details.Note,
	})
	if err != nil {
		return Reply{
			Message:        bookingFailureMessage(err, details.Slot),
			AvailableSlots: s.listSlots().AvailableSlots,
		}
	}
	if result.Replayed {
		return Reply{Message: fmt.Sprintf("You're already confirmed for %s, %s. See you then!", result.Record.Slot, result.Record.Name)}
	}
	return Reply{Message: fmt.Sprintf(
		"You're booked for %s, %s! Confirmed at %s. A confirmation is on its way.",
		result.Record.Slot,
		result.Record.Name,
		result.Record.BookedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
	)}
}

func bookingFailureMessage(err error, slot string) string {
	switch {
	case errors.Is(err, calendar.ErrSlotAlreadyBooked):
		return fmt.Sprintf("Sorry, %s was just taken. Here are the times still open:", slot)
	case errors.Is(err, calendar.ErrSlotNotFound), errors.Is(err, calendar.ErrInvalidSlotID):
		return fmt.Sprintf("I couldn't find %s on our calendar. Here are the times we do have open:", slot)
	case errors.Is(err, ledger.ErrNotWritable):
		return "We couldn't record your booking just now. Please try again in a moment."
	default:
		return "Something went wrong while booking. Here are the times still open:"
	}
}

// saveHistory appends the turn and trims the transcript. A failed save is
// logged and dropped; the reply already went out.
func (s *Service) saveHistory(ctx context.Context, threadID string, history []llm.Message, userMessage, assistantMessage string) {
	history = append(history,
		llm.Message{Role: llm.RoleUser, Content: userMessage},
		llm.Message{Role: llm.RoleAssistant, Content: assistantMessage},
	)
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	if err := s.history.Save(ctx, threadID, history); err != nil {
		s.logger.Warn("failed to save history", "thread_id", threadID, "error", err)
	}
}

// lastExchange returns the final user/assistant pair, giving the classifier
// just enough context to resolve follow-ups like "yes, the 10 AM one".
func lastExchange(history []llm.Message) []llm.Message {
	if len(history) <= 2 {
		return history
	}
	return history[len(history)-2:]
}
