package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aorysoft/leadbot/internal/calendar"
	"github.com/aorysoft/leadbot/internal/ledger"
	"github.com/aorysoft/leadbot/internal/notify"
	"github.com/aorysoft/leadbot/internal/observability/metrics"
	"github.com/aorysoft/leadbot/pkg/logging"
)

var bookingTracer = otel.Tracer("leadbot.internal.booking")

// Result is the typed outcome of a successful booking. Replayed reports
// that the request was a retry of an already-committed booking.
type Result struct {
	Record   ledger.BookingRecord
	Replayed bool
}

// Service is the transaction boundary between the calendar and the ledger:
// the slot reservation and the ledger append succeed or fail together.
type Service struct {
	store   *calendar.Store
	ledger  ledger.Appender
	email   notify.EmailSender
	metrics *metrics.ChatMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService constructs a booking service. email and m may be nil.
func NewService(store *calendar.Store, led ledger.Appender, email notify.EmailSender, m *metrics.ChatMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("booking: calendar store required")
	}
	if led == nil {
		panic("booking: ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:   store,
		ledger:  led,
		email:   email,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Book reserves the slot and appends the ledger record as one logical
// transaction: if the append fails, the reservation is rolled back and the
// slot is free again. Retries carrying the same idempotency key succeed
// without a second record.
func (s *Service) Book(ctx context.Context, req Request) (*Result, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()

	if err := req.Validate(); err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, err
	}

	slotID, err := calendar.ParseSlotID(req.Slot)
	if err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, err
	}
	span.SetAttributes(attribute.String("leadbot.slot", slotID.String()))

	bookedAt := s.now()
	key := req.IdempotencyToken
	if key == "" {
		key = ledger.DeriveKey(slotID.String(), req.Email, bookedAt)
	}

	record := ledger.BookingRecord{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		BookedAt:       bookedAt,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Company:        req.Company,
		Slot:           slotID.String(),
		Note:           req.Note,
	}

	client := calendar.Client{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Note:    req.Note,
	}

	if err := s.store.Book(slotID, client); err != nil {
		if errors.Is(err, calendar.ErrSlotAlreadyBooked) {
			// A retry of a committed booking holds the slot already;
			// report success instead of a conflict.
			seen, seenErr := s.ledger.Seen(ctx, key)
			if seenErr == nil && seen {
				s.metrics.ObserveBooking("replay")
				s.logger.Info("booking replayed", "slot", slotID.String(), "key", key)
				return &Result{Record: record, Replayed: true}, nil
			}
			s.metrics.ObserveBooking("conflict")
			return nil, err
		}
		span.RecordError(err)
		s.metrics.ObserveBooking("slot_not_found")
		return nil, err
	}

	inserted, err := s.ledger.Append(ctx, record)
	if err != nil {
		span.RecordError(err)
		// Roll the reservation back so the slot is not silently lost.
		if cancelErr := s.store.Cancel(slotID); cancelErr != nil {
			s.logger.Error("booking rollback failed", "slot", slotID.String(), "error", cancelErr)
		}
		s.metrics.ObserveBooking("ledger_error")
		return nil, err
	}
	if !inserted {
		// The key already committed a booking for a different slot; a
		// replay of the same slot is caught above as a conflict. Keeping
		// this reservation would occupy a slot with no ledger record.
		if cancelErr := s.store.Cancel(slotID); cancelErr != nil {
			s.logger.Error("booking rollback failed", "slot", slotID.String(), "error", cancelErr)
		}
		s.metrics.ObserveBooking("token_reuse")
		s.logger.Warn("booking rejected, idempotency token reused", "slot", slotID.String(), "key", key)
		return nil, ErrTokenReused
	}

	if s.email != nil && record.Email != "" {
		msg := notify.BookingConfirmation(record.Name, record.Slot)
		msg.To = record.Email
		if err := s.email.Send(ctx, msg); err != nil {
			// Email is best-effort; the booking stands.
			s.logger.Warn("confirmation email failed", "error", err, "to", record.Email)
		}
	}

	s.metrics.ObserveBooking("confirmed")
	s.logger.Info("booking confirmed", "slot", record.Slot, "name", record.Name, "record_id", record.ID)
	return &Result{Record: record}, nil
}
