package availability

import (
	"github.com/roomdesk/roomdesk-api/internal/domain/booking"
	"github.com/roomdesk/roomdesk-api/internal/domain/inventory"
)

// Session is the explicit application state for one dashboard: the loaded
// reference data, the current selection, and the booking set scoped to it.
// The remote store stays the source of truth; everything here is a cache
// that is replaced wholesale by the next applied fetch. All queries are
// pure functions of the session value.
type Session struct {
	Properties    []inventory.Property
	PropertyIndex int
	Rooms         []inventory.Room
	Bookings      []booking.Booking
	Date          booking.Date

	Loaded      bool
	Online      bool
	AutoRefresh bool
	LastError   string
}

// SelectedProperty returns the currently selected property, or nil before
// the first successful reference load
func (s Session) SelectedProperty() *inventory.Property {
	if s.PropertyIndex < 0 || s.PropertyIndex >= len(s.Properties) {
		return nil
	}
	p := s.Properties[s.PropertyIndex]
	return &p
}

// IsBooked reports whether a booking exists for the room on the selected
// date. Existence alone decides; the is_booked column is not consulted.
func (s Session) IsBooked(roomID int64) bool {
	return s.FindBooking(roomID) != nil
}

// FindBooking returns the booking row for the room on the selected date,
// or nil
func (s Session) FindBooking(roomID int64) *booking.Booking {
	for i := range s.Bookings {
		if s.Bookings[i].RoomID == roomID {
			b := s.Bookings[i]
			return &b
		}
	}
	return nil
}

// TotalCount returns the number of rooms in the current room set
func (s Session) TotalCount() int {
	return len(s.Rooms)
}

// BookedCount returns the number of rooms booked on the selected date
func (s Session) BookedCount() int {
	count := 0
	for _, r := range s.Rooms {
		if s.IsBooked(r.ID) {
			count++
		}
	}
	return count
}

// AvailableCount returns the number of rooms free on the selected date
func (s Session) AvailableCount() int {
	return s.TotalCount() - s.BookedCount()
}

// Categories returns the room categories in order of first occurrence
func (s Session) Categories() []string {
	seen := make(map[string]bool, len(s.Rooms))
	var categories []string
	for _, r := range s.Rooms {
		if !seen[r.Category] {
			seen[r.Category] = true
			categories = append(categories, r.Category)
		}
	}
	return categories
}

// RoomsByCategory returns the rooms of one category, preserving the order
// they were loaded in
func (s Session) RoomsByCategory(category string) []inventory.Room {
	var rooms []inventory.Room
	for _, r := range s.Rooms {
		if r.Category == category {
			rooms = append(rooms, r)
		}
	}
	return rooms
}

func (s Session) roomIDs() map[int64]bool {
	ids := make(map[int64]bool, len(s.Rooms))
	for _, r := range s.Rooms {
		ids[r.ID] = true
	}
	return ids
}
