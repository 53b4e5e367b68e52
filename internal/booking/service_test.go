package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aorysoft/leadbot/internal/calendar"
	"github.com/aorysoft/leadbot/internal/ledger"
	"github.com/aorysoft/leadbot/internal/notify"
	"github.com/aorysoft/leadbot/pkg/logging"
)

// mockLedger is an in-memory Appender with the same idempotency contract
// as the real ones.
type mockLedger struct {
	mu         sync.Mutex
	records    []ledger.BookingRecord
	seen       map[string]struct{}
	failAppend error
}

func newMockLedger() *mockLedger {
	return &mockLedger{seen: make(map[string]struct{})}
}

func (m *mockLedger) Append(_ context.Context, record ledger.BookingRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend != nil {
		return false, m.failAppend
	}
	if _, dup := m.seen[record.IdempotencyKey]; dup {
		return false, nil
	}
	m.seen[record.IdempotencyKey] = struct{}{}
	m.records = append(m.records, record)
	return true, nil
}

func (m *mockLedger) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[key]
	return ok, nil
}

func (m *mockLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
	fail error
}

func (r *recordingEmail) Send(_ context.Context, msg notify.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, msg)
	return nil
}

func newTestService(t *testing.T, seed calendar.Seed) (*Service, *calendar.Store, *mockLedger) {
	t.Helper()
	store := calendar.NewStore(seed)
	led := newMockLedger()
	svc := NewService(store, led, nil, nil, logging.New("error"))
	return svc, store, led
}

func TestBookSuccess(t *testing.T) {
	svc, store, led := newTestService(t, calendar.Seed{"2025-08-20": {"10:00 AM"}})

	result, err := svc.Book(context.Background(), Request{
		Slot:  "2025-08-20 10:00 AM",
		Name:  "Acme Co",
		Email: "ops@acme.example",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Replayed)
	assert.Equal(t, "2025-08-20 10:00 AM", result.Record.Slot)
	assert.NotEmpty(t, result.Record.ID)
	assert.NotEmpty(t, result.Record.IdempotencyKey)
	assert.False(t, result.Record.BookedAt.IsZero())

	occupant, booked, err := store.Occupant(calendar.SlotID{Date: "2025-08-20", Time: "10:00 AM"})
	require.NoError(t, err)
	assert.True(t, booked)
	assert.Equal(t, "Acme Co", occupant.Name)
	assert.Equal(t, 1, led.count())
}

func TestBookUnknownSlot(t *testing.T) {
	svc, store, led := newTestService(t, calendar.Seed{"2025-08-20": {"10:00 AM"}})

	_, err := svc.Book(context.Background(), Request{Slot: "2099-01-01 9:00 AM", Name: "Acme Co"})
	assert.ErrorIs(t, err, calendar.ErrSlotNotFound)
	assert.Equal(t, 0, led.count())
	assert.Len(t, store.ListAvailable(), 1)
}

func TestBookConflictSecondAttemptFails(t *testing.T) {
	svc, _, led := newTestService(t, calendar.Seed{"2025-08-20": {"10:00 AM"}})
	ctx := context.Background()

	_, err := svc.Book(ctx, Request{Slot: "2025-08-20 10:00 AM", Name: "First", Email: "first@a.example"})
	require.NoError(t, err)

	_, err = svc.Book(ctx, Request{Slot: "2025-08-20 10:00 AM", Name: "Second", Email: "second@b.example"})
	assert.ErrorIs(t, err, calendar.ErrSlotAlreadyBooked)
	assert.Equal(t, 1, led.count())
}

func TestBookValidation(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Book(ctx, Request{Name: "Acme"})
	assert.ErrorIs(t, err, ErrMissingSlot)

	_, err = svc.Book(ctx, Request{Slot: "2025-08-20 10:00 AM"})
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = svc.Book(ctx, Request{Slot: "not-a-slot", Name: "Acme"})
	assert.ErrorIs(t, err, calendar.ErrInvalidSlotID)
}

func TestBookLedgerFailureRollsBack(t *testing.T) {
	svc, store, led := newTestService(t, calendar.Seed{"2025-08-20": {"10:00 AM"}})
	led.failAppend = fmt.Errorf("disk full: %w", ledger.ErrNotWritable)

	_, err := svc.Book(context.Background(), Request{Slot: "2025-08-20 10:00 AM", Name: "Acme Co"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNotWritable)

	// The reservation must have been rolled back: the slot is free again
	// and a later booking succeeds.
	_, booked, occErr := store.Occupant(calendar.SlotID{Date: "2025-08-20", Time: "10:00 AM"})
	require.NoError(t, occErr)
	assert.False(t, booked)

	led.failAppend = nil
	_, err = svc.Book(context.Background(), Request{Slot: "2025-08-20 10:00 AM", Name: "Acme Co"})
	assert.NoError(t, err)
}

func TestBookIdempotentReplay(t *testing.T) {
	svc, _, led := newTestService(t, calendar.Seed{"2025-08-20": {"10:00 AM"}})
	ctx := context.Background()
	req := Request{
		Slot:             "2025-08-20 10:00 AM",
		Name:             "Acme Co",
		Email:            "ops@acme.example",
		IdempotencyToken: "tok-123",
	}

	first, err := svc.Book(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := svc.Book(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1, led.count(), "replay must not append a second record")
}

func TestBookTokenReuseAcrossSlotsRollsBack(t *testing.T) {
	svc, store, led := newTestService(t, calendar.Seed{"2025-08-20": {"10:00 AM", "11:00 AM"}})
	ctx := context.Background()

	_, err := svc.Book(ctx, Request{
		Slot:             "2025-08-20 10:00 AM",
		Name:             "Acme Co",
		Email:            "ops@acme.example",
		IdempotencyToken: "tok-1",
	})
	require.NoError(t, err)

	// The same token against a different free slot must not silently
	// occupy it without a ledger record.
	_, err = svc.Book(ctx, Request{
		Slot:             "2025-08-20 11:00 AM",
		Name:             "Acme Co",
		Email:            "ops@acme.example",
		IdempotencyToken: "tok-1",
	})
	assert.ErrorIs(t, err, ErrTokenReused)
	assert.Equal(t, 1, led.count())

	_, booked, occErr := store.Occupant(calendar.SlotID{Date: "2025-08-20", Time: "11:00 AM"})
	require.NoError(t, occErr)
	assert.False(t, booked, "the second slot must be released on token reuse")

	// The slot stays bookable for a request carrying its own token.
	_, err = svc.Book(ctx, Request{
		Slot:             "2025-08-20 11:00 AM",
		Name:             "Beta LLC",
		Email:            "hello@beta.example",
		IdempotencyToken: "tok-2",
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, led.count())
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	svc, _, led := newTestService(t, calendar.Seed{"2025-08-20": {"10:00 AM"}})

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Book(context.Background(), Request{
				Slot:  "2025-08-20 10:00 AM",
				Name:  fmt.Sprintf("Racer %d", i),
				Email: fmt.Sprintf("racer%d@acme.example", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, calendar.ErrSlotAlreadyBooked):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, led.count(), "exactly one ledger record for the winning booking")
}

func TestBookSendsConfirmationEmail(t *testing.T) {
	store := calendar.NewStore(calendar.Seed{"2025-08-20": {"10:00 AM"}})
	led := newMockLedger()
	email := &recordingEmail{}
	svc := NewService(store, led, email, nil, logging.New("error"))

	_, err := svc.Book(context.Background(), Request{
		Slot:  "2025-08-20 10:00 AM",
		Name:  "Jane Doe",
		Email: "jane@acme.example",
	})
	require.NoError(t, err)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "jane@acme.example", email.sent[0].To)
	assert.Contains(t, email.sent[0].Body, "2025-08-20 10:00 AM")
}

func TestBookEmailFailureDoesNotFailBooking(t *testing.T) {
	store := calendar.NewStore(calendar.Seed{"2025-08-20": {"10:00 AM"}})
	led := newMockLedger()
	email := &recordingEmail{fail: fmt.Errorf("smtp down")}
	svc := NewService(store, led, email, nil, logging.New("error"))

	result, err := svc.Book(context.Background(), Request{
		Slot:  "2025-08-20 10:00 AM",
		Name:  "Jane Doe",
		Email: "jane@acme.example",
	})
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, 1, led.count())
}
