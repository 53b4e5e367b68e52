package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// ErrNotWritable wraps append failures from the underlying store. Callers
// match it with errors.Is to trigger transactional rollback.
var ErrNotWritable = errors.New("ledger not writable")

// BookingRecord is the immutable row appended once per successful booking.
// Records are never mutated or deleted.
type BookingRecord struct {
	ID             string
	IdempotencyKey string
	BookedAt       time.Time
	Name           string
	Email          string
	Phone          string
	Company        string
	Slot           string
	Note           string
}

// Appender is the write-side contract of the booking ledger. Append must be
// idempotent on IdempotencyKey: replays leave exactly one record. It reports
// whether a record was actually written, so callers can tell a fresh insert
// from a suppressed duplicate. Seen reports whether a key has already been
// committed.
type Appender interface {
	Append(ctx context.Context, record BookingRecord) (inserted bool, err error)
	Seen(ctx context.Context, key string) (bool, error)
}

// DeriveKey builds an idempotency key when the client did not supply one:
// a hash of slot, lowercased email and the hour bucket of the attempt.
// Same-hour retries dedupe; a genuine re-booking later does not.
func DeriveKey(slot, email string, at time.Time) string {
	h := sha256.New()
	h.Write([]byte(slot))
	h.Write([]byte("|"))
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	h.Write([]byte("|"))
	h.Write([]byte(at.UTC().Format("2006-01-02T15")))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
