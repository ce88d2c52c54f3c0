package availability

import (
	"sync"

	"github.com/roomdesk/roomdesk-api/internal/domain/booking"
	"github.com/roomdesk/roomdesk-api/internal/domain/inventory"
)

// Scope identifies which slice of the session a fetch replaces. Fences are
// kept per scope so a rooms fetch never blocks a bookings fetch.
type Scope int

const (
	ScopeReference Scope = iota
	ScopeRooms
	ScopeBookings
)

// Store holds the session and serializes access to it. Fetches are fenced:
// every fetch takes a sequence number from NextSeq at dispatch, and an apply
// is discarded when a newer fetch for the same scope has already landed, so
// a slow superseded response can never overwrite fresher data.
type Store struct {
	mu sync.RWMutex
	s  Session

	nextSeq [3]uint64
	applied [3]uint64

	watchers map[chan struct{}]bool
}

// NewStore creates a store with the given initial selection
func NewStore(date booking.Date, online, autoRefresh bool) *Store {
	return &Store{
		s: Session{
			Date:        date,
			Online:      online,
			AutoRefresh: autoRefresh,
		},
		watchers: make(map[chan struct{}]bool),
	}
}

// Snapshot returns a copy of the current session
func (st *Store) Snapshot() Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.copySession()
}

func (st *Store) copySession() Session {
	s := st.s
	s.Properties = append([]inventory.Property(nil), st.s.Properties...)
	s.Rooms = append([]inventory.Room(nil), st.s.Rooms...)
	s.Bookings = append([]booking.Booking(nil), st.s.Bookings...)
	return s
}

// NextSeq hands out the fence for a fetch about to be dispatched
func (st *Store) NextSeq(scope Scope) uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nextSeq[scope]++
	return st.nextSeq[scope]
}

func (st *Store) fenced(scope Scope, seq uint64) bool {
	if seq <= st.applied[scope] {
		return true
	}
	st.applied[scope] = seq
	return false
}

// ApplyProperties installs a fetched property list. Returns false when the
// response was superseded and discarded.
func (st *Store) ApplyProperties(seq uint64, properties []inventory.Property) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.fenced(ScopeReference, seq) {
		return false
	}
	st.s.Properties = properties
	if st.s.PropertyIndex >= len(properties) {
		st.s.PropertyIndex = 0
	}
	st.s.LastError = ""
	st.notifyLocked()
	return true
}

// ApplyRooms installs a fetched room set. Discarded when superseded or when
// the selection moved to another property while the fetch was in flight.
func (st *Store) ApplyRooms(seq uint64, propertyID int64, rooms []inventory.Room) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.fenced(ScopeRooms, seq) {
		return false
	}
	if selected := st.s.SelectedProperty(); selected != nil && selected.ID != propertyID {
		return false
	}
	st.s.Rooms = rooms
	st.s.LastError = ""
	st.notifyLocked()
	return true
}

// ApplyBookings installs a fetched booking set. Discarded when superseded
// or when the selected date moved while the fetch was in flight. Bookings
// for rooms outside the current room set are dropped.
func (st *Store) ApplyBookings(seq uint64, date booking.Date, bookings []booking.Booking) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.fenced(ScopeBookings, seq) {
		return false
	}
	if date != st.s.Date {
		return false
	}
	ids := st.s.roomIDs()
	scoped := make([]booking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if ids[b.RoomID] {
			scoped = append(scoped, b)
		}
	}
	st.s.Bookings = scoped
	st.s.LastError = ""
	st.notifyLocked()
	return true
}

// AddBooking appends a booking confirmed by the remote store
func (st *Store) AddBooking(b booking.Booking) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if b.BookingDate != st.s.Date || !st.s.roomIDs()[b.RoomID] {
		return
	}
	if st.s.FindBooking(b.RoomID) != nil {
		return
	}
	st.s.Bookings = append(st.s.Bookings, b)
	st.notifyLocked()
}

// RemoveBooking drops a booking whose deletion the remote store confirmed
func (st *Store) RemoveBooking(id int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.s.Bookings {
		if st.s.Bookings[i].ID == id {
			st.s.Bookings = append(st.s.Bookings[:i], st.s.Bookings[i+1:]...)
			st.notifyLocked()
			return
		}
	}
}

// SetDate moves the selected date; the caller refetches bookings
func (st *Store) SetDate(date booking.Date) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Date = date
	st.notifyLocked()
}

// SelectProperty moves the selection; the caller refetches rooms and
// bookings
func (st *Store) SelectProperty(index int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.s.Properties) {
		return false
	}
	st.s.PropertyIndex = index
	st.notifyLocked()
	return true
}

// SetOnline flips the connectivity flag and reports whether the value
// changed
func (st *Store) SetOnline(online bool) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.Online == online {
		return false
	}
	st.s.Online = online
	st.notifyLocked()
	return true
}

// SetAutoRefresh flips the auto-refresh flag
func (st *Store) SetAutoRefresh(enabled bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.AutoRefresh = enabled
	st.notifyLocked()
}

// MarkLoaded records that the initial full load completed
func (st *Store) MarkLoaded() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Loaded = true
	st.notifyLocked()
}

// SetError records a fetch failure without touching the cached data
func (st *Store) SetError(msg string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.LastError = msg
	st.notifyLocked()
}

// Subscribe registers a watcher channel that receives a signal after every
// applied change. The returned func unsubscribes.
func (st *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	st.mu.Lock()
	st.watchers[ch] = true
	st.mu.Unlock()

	return ch, func() {
		st.mu.Lock()
		delete(st.watchers, ch)
		st.mu.Unlock()
	}
}

func (st *Store) notifyLocked() {
	for ch := range st.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
