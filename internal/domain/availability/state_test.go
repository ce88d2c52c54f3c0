package availability

import (
	"reflect"
	"testing"

	"github.com/roomdesk/roomdesk-api/internal/domain/booking"
	"github.com/roomdesk/roomdesk-api/internal/domain/inventory"
)

func mainHouseSession() Session {
	return Session{
		Properties: []inventory.Property{{ID: 1, Name: "Main House"}},
		Rooms: []inventory.Room{
			{ID: 10, PropertyID: 1, Name: "A", Category: "Suite"},
			{ID: 11, PropertyID: 1, Name: "B", Category: "Suite"},
		},
		Date: booking.Date("2024-01-01"),
	}
}

func TestEmptyBookingSetLeavesAllRoomsAvailable(t *testing.T) {
	s := mainHouseSession()

	if s.AvailableCount() != 2 {
		t.Fatalf("expected 2 available, got %d", s.AvailableCount())
	}
	if s.IsBooked(10) {
		t.Fatal("room 10 should not be booked")
	}
}

func TestIsBookedTracksBookingMembership(t *testing.T) {
	s := mainHouseSession()
	s.Bookings = []booking.Booking{
		{ID: 99, RoomID: 10, BookingDate: s.Date, IsBooked: true},
	}

	if !s.IsBooked(10) {
		t.Fatal("room 10 should be booked")
	}
	if s.IsBooked(11) {
		t.Fatal("room 11 should not be booked")
	}
	if s.AvailableCount() != 1 {
		t.Fatalf("expected 1 available, got %d", s.AvailableCount())
	}
}

func TestCountsAlwaysSumToTotal(t *testing.T) {
	s := mainHouseSession()

	bookingSets := [][]booking.Booking{
		nil,
		{{ID: 1, RoomID: 10, BookingDate: s.Date}},
		{{ID: 1, RoomID: 10, BookingDate: s.Date}, {ID: 2, RoomID: 11, BookingDate: s.Date}},
		// Booking for a room outside the room set must not skew counts
		{{ID: 3, RoomID: 999, BookingDate: s.Date}},
	}

	for _, bookings := range bookingSets {
		s.Bookings = bookings
		if s.AvailableCount()+s.BookedCount() != s.TotalCount() {
			t.Fatalf("counts do not sum to total for bookings %+v", bookings)
		}
	}
}

func TestCategoriesPreserveFirstOccurrenceOrder(t *testing.T) {
	s := Session{
		Rooms: []inventory.Room{
			{ID: 1, Category: "Suite", Name: "A"},
			{ID: 2, Category: "Double", Name: "B"},
			{ID: 3, Category: "Suite", Name: "C"},
			{ID: 4, Category: "Single", Name: "D"},
		},
	}

	want := []string{"Suite", "Double", "Single"}
	if got := s.Categories(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	suites := s.RoomsByCategory("Suite")
	if len(suites) != 2 || suites[0].ID != 1 || suites[1].ID != 3 {
		t.Fatalf("unexpected suite rooms: %+v", suites)
	}
}

func TestSelectedPropertyOutOfRangeIsNil(t *testing.T) {
	s := Session{PropertyIndex: 0}
	if s.SelectedProperty() != nil {
		t.Fatal("expected nil selection before properties load")
	}

	s = mainHouseSession()
	if p := s.SelectedProperty(); p == nil || p.Name != "Main House" {
		t.Fatalf("unexpected selection: %+v", p)
	}
}
