package booking

import "errors"

var (
	ErrAlreadyBooked = errors.New("room is already booked for this date")
)
