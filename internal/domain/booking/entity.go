package booking

// Booking records that a room is reserved on a date. Rows are created and
// deleted, never updated. IsBooked is part of the provider's table contract;
// it is always written true and existence of the row alone drives the
// derived availability.
type Booking struct {
	ID          int64 `db:"id" json:"id"`
	RoomID      int64 `db:"room_id" json:"room_id"`
	BookingDate Date  `db:"booking_date" json:"booking_date"`
	IsBooked    bool  `db:"is_booked" json:"is_booked"`
}
