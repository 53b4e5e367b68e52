package calendar

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotID(t *testing.T) {
	id, err := ParseSlotID("2025-08-20 10:00 AM")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-20", id.Date)
	assert.Equal(t, "10:00 AM", id.Time)
	assert.Equal(t, "2025-08-20 10:00 AM", id.String())

	_, err = ParseSlotID("2025-08-20")
	assert.ErrorIs(t, err, ErrInvalidSlotID)

	_, err = ParseSlotID("   ")
	assert.ErrorIs(t, err, ErrInvalidSlotID)
}

func TestListAvailableChronologicalOrder(t *testing.T) {
	store := NewStore(Seed{
		"2025-08-21": {"2:00 PM", "9:30 AM", "11:15 AM"},
		"2025-08-20": {"10:00 AM"},
	})

	got := store.ListAvailable()
	want := []SlotID{
		{Date: "2025-08-20", Time: "10:00 AM"},
		{Date: "2025-08-21", Time: "9:30 AM"},
		{Date: "2025-08-21", Time: "11:15 AM"},
		{Date: "2025-08-21", Time: "2:00 PM"},
	}
	assert.Equal(t, want, got)
}

func TestBookTransitions(t *testing.T) {
	store := NewStore(Seed{"2025-08-20": {"10:00 AM"}})
	id := SlotID{Date: "2025-08-20", Time: "10:00 AM"}

	require.NoError(t, store.Book(id, Client{Name: "Acme Co"}))

	occupant, booked, err := store.Occupant(id)
	require.NoError(t, err)
	assert.True(t, booked)
	assert.Equal(t, "Acme Co", occupant.Name)

	err = store.Book(id, Client{Name: "Other Co"})
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)

	// The losing booking must not have replaced the occupant.
	occupant, _, err = store.Occupant(id)
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", occupant.Name)
}

func TestBookNeverFabricatesSlots(t *testing.T) {
	store := NewStore(Seed{"2025-08-20": {"10:00 AM"}})

	err := store.Book(SlotID{Date: "2099-01-01", Time: "9:00 AM"}, Client{Name: "X"})
	assert.ErrorIs(t, err, ErrSlotNotFound)

	err = store.Book(SlotID{Date: "2025-08-20", Time: "4:00 PM"}, Client{Name: "X"})
	assert.ErrorIs(t, err, ErrSlotNotFound)

	// Calendar unchanged: still exactly one free slot.
	assert.Len(t, store.ListAvailable(), 1)
	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	require.Len(t, snapshot["2025-08-20"], 1)
}

func TestListAvailableExcludesBooked(t *testing.T) {
	store := NewStore(nil)
	before := store.ListAvailable()
	require.NotEmpty(t, before)

	target := before[0]
	require.NoError(t, store.Book(target, Client{Name: "Acme Co"}))

	after := store.ListAvailable()
	assert.Len(t, after, len(before)-1)
	assert.NotContains(t, after, target)
}

func TestCancel(t *testing.T) {
	store := NewStore(Seed{"2025-08-20": {"10:00 AM"}})
	id := SlotID{Date: "2025-08-20", Time: "10:00 AM"}

	assert.ErrorIs(t, store.Cancel(id), ErrSlotNotBooked)
	assert.ErrorIs(t, store.Cancel(SlotID{Date: "2099-01-01", Time: "9:00 AM"}), ErrSlotNotFound)

	require.NoError(t, store.Book(id, Client{Name: "Acme Co"}))
	require.NoError(t, store.Cancel(id))

	_, booked, err := store.Occupant(id)
	require.NoError(t, err)
	assert.False(t, booked)
	assert.Contains(t, store.ListAvailable(), id)
}

func TestConcurrentBookSingleWinner(t *testing.T) {
	store := NewStore(Seed{"2025-08-20": {"10:00 AM"}})
	id := SlotID{Date: "2025-08-20", Time: "10:00 AM"}

	const n = 50
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Book(id, Client{Name: "Racer"})
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case err == ErrSlotAlreadyBooked:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestSnapshotCopies(t *testing.T) {
	store := NewStore(Seed{"2025-08-20": {"10:00 AM"}})
	id := SlotID{Date: "2025-08-20", Time: "10:00 AM"}
	require.NoError(t, store.Book(id, Client{Name: "Acme Co"}))

	snapshot := store.Snapshot()
	require.NotNil(t, snapshot["2025-08-20"]["10:00 AM"])
	assert.Equal(t, "Acme Co", *snapshot["2025-08-20"]["10:00 AM"])

	// Mutating the snapshot must not leak into the store.
	snapshot["2025-08-20"]["10:00 AM"] = nil
	_, booked, err := store.Occupant(id)
	require.NoError(t, err)
	assert.True(t, booked)
}

func TestParseSeedJSON(t *testing.T) {
	seed, err := ParseSeedJSON([]byte(`{"2025-09-01": ["9:00 AM", "10:00 AM"]}`))
	require.NoError(t, err)
	store := NewStore(seed)
	assert.Len(t, store.ListAvailable(), 2)

	_, err = ParseSeedJSON([]byte(`{`))
	assert.Error(t, err)

	_, err = ParseSeedJSON([]byte(`{}`))
	assert.Error(t, err)
}
