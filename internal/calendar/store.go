package calendar

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Store owns the in-memory calendar. All mutation goes through the store
// mutex; bookings never create new slots, they only flip an existing free
// slot to occupied.
type Store struct {
	mu   sync.RWMutex
	days map[string]map[string]*Client // date -> time -> occupant (nil = free)
}

// Seed maps dates to the clock times bookable on that date.
type Seed map[string][]string

// DefaultSeed returns the built-in demo calendar.
func DefaultSeed() Seed {
	return Seed{
		"2025-08-20": {"10:00 AM", "11:00 AM"},
		"2025-08-21": {"2:00 PM", "3:00 PM"},
		"2025-08-22": {"9:30 AM", "10:30 AM"},
	}
}

// ParseSeedJSON decodes a seed from its JSON form
// {"2025-08-20": ["10:00 AM", ...], ...}.
func ParseSeedJSON(data []byte) (Seed, error) {
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("calendar: invalid seed json: %w", err)
	}
	if len(seed) == 0 {
		return nil, fmt.Errorf("calendar: seed json contains no dates")
	}
	return seed, nil
}

// NewStore seeds a store. A nil or empty seed uses DefaultSeed.
func NewStore(seed Seed) *Store {
	if len(seed) == 0 {
		seed = DefaultSeed()
	}
	days := make(map[string]map[string]*Client, len(seed))
	for date, times := range seed {
		slots := make(map[string]*Client, len(times))
		for _, t := range times {
			slots[t] = nil
		}
		days[date] = slots
	}
	return &Store{days: days}
}

// ListAvailable returns the identities of all free slots ordered by date
// then clock time. The result is a snapshot; it does not track later
// mutations.
func (s *Store) ListAvailable() []SlotID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SlotID, 0)
	for _, date := range s.sortedDatesLocked() {
		for _, clock := range s.sortedTimesLocked(date) {
			if s.days[date][clock] == nil {
				out = append(out, SlotID{Date: date, Time: clock})
			}
		}
	}
	return out
}

// Book atomically transitions an existing free slot to occupied. The
// check and the set happen under one lock, so two concurrent bookings of
// the same slot yield exactly one success.
func (s *Store) Book(id SlotID, client Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.days[id.Date]
	if !ok {
		return ErrSlotNotFound
	}
	occupant, ok := day[id.Time]
	if !ok {
		return ErrSlotNotFound
	}
	if occupant != nil {
		return ErrSlotAlreadyBooked
	}
	c := client
	day[id.Time] = &c
	return nil
}

// Cancel clears the occupant of a booked slot. Ledger records are never
// touched; cancellation is a calendar-only transition.
func (s *Store) Cancel(id SlotID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.days[id.Date]
	if !ok {
		return ErrSlotNotFound
	}
	occupant, ok := day[id.Time]
	if !ok {
		return ErrSlotNotFound
	}
	if occupant == nil {
		return ErrSlotNotBooked
	}
	day[id.Time] = nil
	return nil
}

// Occupant reports who holds a slot, if anyone.
func (s *Store) Occupant(id SlotID) (Client, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day, ok := s.days[id.Date]
	if !ok {
		return Client{}, false, ErrSlotNotFound
	}
	occupant, ok := day[id.Time]
	if !ok {
		return Client{}, false, ErrSlotNotFound
	}
	if occupant == nil {
		return Client{}, false, nil
	}
	return *occupant, true, nil
}

// Snapshot copies the whole calendar as date -> time -> occupant name or
// nil, the shape served by GET /calendar.
func (s *Store) Snapshot() map[string]map[string]*string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]*string, len(s.days))
	for date, slots := range s.days {
		day := make(map[string]*string, len(slots))
		for clock, occupant := range slots {
			if occupant == nil {
				day[clock] = nil
				continue
			}
			name := occupant.Name
			day[clock] = &name
		}
		out[date] = day
	}
	return out
}

func (s *Store) sortedDatesLocked() []string {
	dates := make([]string, 0, len(s.days))
	for d := range s.days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func (s *Store) sortedTimesLocked(date string) []string {
	times := make([]string, 0, len(s.days[date]))
	for t := range s.days[date] {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return clockLess(times[i], times[j]) })
	return times
}
