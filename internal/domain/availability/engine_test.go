package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/roomdesk/roomdesk-api/internal/domain/booking"
	"github.com/roomdesk/roomdesk-api/internal/domain/inventory"
)

type fakeInventory struct {
	mu          sync.Mutex
	properties  []inventory.Property
	roomsByProp map[int64][]inventory.Room
	propErr     error
	roomErr     error
	propCalls   int
	roomCalls   int
}

func (f *fakeInventory) ListProperties(ctx context.Context) ([]inventory.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.propCalls++
	if f.propErr != nil {
		return nil, f.propErr
	}
	return f.properties, nil
}

func (f *fakeInventory) ListRoomsByProperty(ctx context.Context, propertyID int64) ([]inventory.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomCalls++
	if f.roomErr != nil {
		return nil, f.roomErr
	}
	return f.roomsByProp[propertyID], nil
}

type fakeBookings struct {
	mu     sync.Mutex
	rows   map[int64]booking.Booking
	nextID int64

	listErr   error
	createErr error
	deleteErr error

	listCalls   int
	createCalls int
	deleteCalls int

	lastListRooms []int64
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{rows: make(map[int64]booking.Booking), nextID: 100}
}

func (f *fakeBookings) ListForRoomsOn(ctx context.Context, roomIDs []int64, date booking.Date) ([]booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastListRooms = roomIDs
	if f.listErr != nil {
		return nil, f.listErr
	}
	wanted := make(map[int64]bool, len(roomIDs))
	for _, id := range roomIDs {
		wanted[id] = true
	}
	var out []booking.Booking
	for _, b := range f.rows {
		if wanted[b.RoomID] && b.BookingDate == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) Create(ctx context.Context, roomID int64, date booking.Date) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, b := range f.rows {
		if b.RoomID == roomID && b.BookingDate == date {
			return nil, fmt.Errorf("%w: room %d on %s", booking.ErrAlreadyBooked, roomID, date)
		}
	}
	f.nextID++
	b := booking.Booking{ID: f.nextID, RoomID: roomID, BookingDate: date, IsBooked: true}
	f.rows[b.ID] = b
	return &b, nil
}

func (f *fakeBookings) DeleteByID(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeBookings) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeBookings) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeInventory) propCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.propCalls
}

// testEngine builds an engine around the Main House fixture. Delays are long
// enough that no background reconcile fires during a test.
func testEngine(inv *fakeInventory, book *fakeBookings) (*Engine, *Store) {
	store := NewStore(booking.Date("2024-01-01"), true, true)
	engine := NewEngine(store, inv, book, nil, nil, Config{
		PollInterval:   time.Hour,
		ResumeDelay:    time.Hour,
		ReconcileDelay: time.Hour,
	})
	return engine, store
}

func mainHouseInventory() *fakeInventory {
	return &fakeInventory{
		properties: []inventory.Property{{ID: 1, Name: "Main House"}},
		roomsByProp: map[int64][]inventory.Room{
			1: {
				{ID: 10, PropertyID: 1, Category: "Suite", Name: "A"},
				{ID: 11, PropertyID: 1, Category: "Suite", Name: "B"},
			},
		},
	}
}

func TestRefreshLoadsEverything(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	engine, store := testEngine(inv, book)

	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := store.Snapshot()
	if !snap.Loaded {
		t.Fatal("store not marked loaded")
	}
	if len(snap.Properties) != 1 || snap.TotalCount() != 2 {
		t.Fatalf("unexpected session: %+v", snap)
	}
	if snap.AvailableCount() != 2 {
		t.Fatalf("expected 2 available, got %d", snap.AvailableCount())
	}
}

func TestToggleRoundTripRestoresMembership(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	engine, store := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := engine.Toggle(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Booked {
		t.Fatal("expected room booked")
	}
	snap := store.Snapshot()
	if !snap.IsBooked(10) || snap.AvailableCount() != 1 {
		t.Fatalf("unexpected session after booking: booked=%v available=%d", snap.IsBooked(10), snap.AvailableCount())
	}

	outcome, err = engine.Toggle(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Booked {
		t.Fatal("expected room released")
	}
	if book.rowCount() != 0 {
		t.Fatal("remote membership not restored after round trip")
	}
	if store.Snapshot().AvailableCount() != 2 {
		t.Fatal("local state not restored after round trip")
	}
}

func TestToggleRejectedOffline(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	engine, store := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.SetOnline(false)

	_, err := engine.Toggle(context.Background(), 10)
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
	if book.createCalls != 0 || book.deleteCalls != 0 {
		t.Fatal("offline toggle must not reach the network")
	}
	if store.Snapshot().IsBooked(10) {
		t.Fatal("offline toggle must not change state")
	}
}

func TestToggleUnknownRoom(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	engine, _ := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := engine.Toggle(context.Background(), 999); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestToggleConcurrentConflictTreatedAsBooked(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	engine, _ := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	book.createErr = fmt.Errorf("create booking: %w", booking.ErrAlreadyBooked)

	outcome, err := engine.Toggle(context.Background(), 10)
	if err != nil {
		t.Fatalf("conflict must not surface as a failure, got %v", err)
	}
	if !outcome.Booked {
		t.Fatal("conflict outcome should report the room booked")
	}
}

func TestSelectPropertyScopesBookingsToNewRoomSet(t *testing.T) {
	inv := mainHouseInventory()
	inv.properties = append(inv.properties, inventory.Property{ID: 2, Name: "Annex"})
	inv.roomsByProp[2] = []inventory.Room{{ID: 20, PropertyID: 2, Category: "Single", Name: "C"}}

	book := newFakeBookings()
	engine, store := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Book a Main House room, then switch to the Annex
	if _, err := engine.Toggle(context.Background(), 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.SelectProperty(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := store.Snapshot()
	if snap.TotalCount() != 1 || snap.Rooms[0].ID != 20 {
		t.Fatalf("unexpected room set: %+v", snap.Rooms)
	}
	if len(snap.Bookings) != 0 {
		t.Fatalf("old property bookings leaked: %+v", snap.Bookings)
	}
	if len(book.lastListRooms) != 1 || book.lastListRooms[0] != 20 {
		t.Fatalf("bookings fetched for wrong room set: %v", book.lastListRooms)
	}
}

func TestSelectPropertyOutOfRange(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	engine, _ := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := engine.SelectProperty(context.Background(), 5); !errors.Is(err, ErrPropertyOutOfRange) {
		t.Fatalf("expected ErrPropertyOutOfRange, got %v", err)
	}
}

func TestSelectDateRefetchesBookings(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	book.rows[500] = booking.Booking{ID: 500, RoomID: 10, BookingDate: "2024-01-02", IsBooked: true}

	engine, store := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Snapshot().IsBooked(10) {
		t.Fatal("booking for another date leaked into the session")
	}

	if err := engine.SelectDate(context.Background(), "2024-01-02"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.Snapshot().IsBooked(10) {
		t.Fatal("booking for the selected date missing")
	}
}

func TestFetchFailureKeepsStaleState(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	engine, store := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Toggle(context.Background(), 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	book.mu.Lock()
	book.listErr = errors.New("connection refused")
	book.mu.Unlock()

	if err := engine.RefreshBookings(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	snap := store.Snapshot()
	if !snap.IsBooked(10) {
		t.Fatal("failure wiped previously loaded state")
	}
	if snap.LastError == "" {
		t.Fatal("failure not surfaced")
	}
}

func TestInitialLoadFailureLeavesStoreUnloaded(t *testing.T) {
	inv := mainHouseInventory()
	inv.propErr = errors.New("connection refused")
	book := newFakeBookings()
	engine, store := testEngine(inv, book)

	if err := engine.Refresh(context.Background()); err == nil {
		t.Fatal("expected initial load error")
	}

	snap := store.Snapshot()
	if snap.Loaded {
		t.Fatal("store must not be marked loaded")
	}
	if snap.LastError == "" {
		t.Fatal("initial load error not surfaced")
	}
}

func TestOnlineTransitionTriggersFullRefetch(t *testing.T) {
	inv := mainHouseInventory()
	book := newFakeBookings()
	engine, store := testEngine(inv, book)
	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine.Signal(context.Background(), "offline")
	if store.Snapshot().Online {
		t.Fatal("offline signal ignored")
	}

	inv.mu.Lock()
	before := inv.propCalls
	inv.mu.Unlock()

	engine.Signal(context.Background(), "online")
	if !store.Snapshot().Online {
		t.Fatal("online signal ignored")
	}

	inv.mu.Lock()
	after := inv.propCalls
	inv.mu.Unlock()
	if after != before+1 {
		t.Fatalf("expected one full refetch after reconnect, got %d", after-before)
	}

	// A repeated online signal is not a transition and must not refetch
	engine.Signal(context.Background(), "online")
	inv.mu.Lock()
	again := inv.propCalls
	inv.mu.Unlock()
	if again != after {
		t.Fatal("non-transition signal must not refetch")
	}
}
