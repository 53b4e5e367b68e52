package calendar

import (
	"strings"
	"time"
)

// Client identifies who holds a slot. Uniqueness is not enforced; the same
// email may hold several slots.
type Client struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Note    string `json:"note"`
}

// SlotID identifies a bookable unit as a (date, time) pair, e.g.
// ("2025-08-20", "10:00 AM").
type SlotID struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// ParseSlotID parses the wire form "2025-08-20 10:00 AM" into a SlotID.
func ParseSlotID(s string) (SlotID, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 2)
	if len(parts) != 2 || parts[0] == "" || strings.TrimSpace(parts[1]) == "" {
		return SlotID{}, ErrInvalidSlotID
	}
	return SlotID{Date: parts[0], Time: strings.TrimSpace(parts[1])}, nil
}

// String renders the wire form used by the chat and booking endpoints.
func (id SlotID) String() string {
	return id.Date + " " + id.Time
}

// Slot pairs an identity with its current occupant (nil when free).
type Slot struct {
	ID       SlotID  `json:"id"`
	Occupant *Client `json:"occupant,omitempty"`
}

// clockOrder converts a clock string like "9:30 AM" into minutes since
// midnight for chronological sorting. Unparseable times sort last, in
// lexical order among themselves.
func clockOrder(clock string) (int, bool) {
	t, err := time.Parse("3:04 PM", strings.ToUpper(strings.TrimSpace(clock)))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func clockLess(a, b string) bool {
	am, aok := clockOrder(a)
	bm, bok := clockOrder(b)
	switch {
	case aok && bok:
		return am < bm
	case aok:
		return true
	case bok:
		return false
	default:
		return a < b
	}
}
