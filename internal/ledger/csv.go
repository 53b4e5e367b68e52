package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/aorysoft/leadbot/pkg/logging"
)

// External reporting tools depend on these column names; do not reorder.
var csvHeader = []string{"Timestamp", "Name", "Email", "Phone", "Company", "Selected Slot", "Message"}

const csvTimestampLayout = "2006-01-02 15:04:05"

// CSVLedger appends booking records to a flat delimited file. All appends
// are serialized through one mutex so concurrent writers cannot interleave
// rows. The idempotency index lives in process memory; it covers retries
// within one process lifetime, which is the durability the calendar itself
// offers.
type CSVLedger struct {
	path   string
	logger *logging.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewCSVLedger creates a CSV-backed ledger at path. The file is created on
// first append, not here.
func NewCSVLedger(path string, logger *logging.Logger) *CSVLedger {
	if logger == nil {
		logger = logging.Default()
	}
	return &CSVLedger{
		path:   path,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Append writes one record and reports whether a row was written. A record
// whose idempotency key was already committed writes nothing.
func (l *CSVLedger) Append(_ context.Context, record BookingRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.IdempotencyKey != "" {
		if _, dup := l.seen[record.IdempotencyKey]; dup {
			l.logger.Debug("ledger: duplicate append suppressed", "key", record.IdempotencyKey)
			return false, nil
		}
	}

	writeHeader := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("ledger: open %s: %w: %w", l.path, ErrNotWritable, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return false, fmt.Errorf("ledger: write header: %w: %w", ErrNotWritable, err)
		}
	}
	row := []string{
		record.BookedAt.Format(csvTimestampLayout),
		record.Name,
		record.Email,
		record.Phone,
		record.Company,
		record.Slot,
		record.Note,
	}
	if err := w.Write(row); err != nil {
		return false, fmt.Errorf("ledger: write row: %w: %w", ErrNotWritable, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("ledger: flush: %w: %w", ErrNotWritable, err)
	}

	if record.IdempotencyKey != "" {
		l.seen[record.IdempotencyKey] = struct{}{}
	}
	l.logger.Info("ledger: booking recorded", "slot", record.Slot, "name", record.Name)
	return true, nil
}

// Seen reports whether a key was committed by this process.
func (l *CSVLedger) Seen(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok, nil
}
