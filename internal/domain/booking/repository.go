package booking

import "context"

// Repository defines booking data access against the remote store
type Repository interface {
	// ListForRoomsOn returns the bookings for the given rooms on one date.
	ListForRoomsOn(ctx context.Context, roomIDs []int64, date Date) ([]Booking, error)
	// Create inserts a booking row and returns the stored representation.
	// A uniqueness violation on (room_id, booking_date) maps to
	// ErrAlreadyBooked.
	Create(ctx context.Context, roomID int64, date Date) (*Booking, error)
	// DeleteByID removes one booking row.
	DeleteByID(ctx context.Context, id int64) error
}
