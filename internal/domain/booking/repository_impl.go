package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/roomdesk/roomdesk-api/internal/pkg/gateway"
)

type repository struct {
	gw gateway.Gateway
}

// NewRepository creates a booking repository over the table gateway
func NewRepository(gw gateway.Gateway) Repository {
	return &repository{gw: gw}
}

func (r *repository) ListForRoomsOn(ctx context.Context, roomIDs []int64, date Date) ([]Booking, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	ids := make([]interface{}, 0, len(roomIDs))
	for _, id := range roomIDs {
		ids = append(ids, id)
	}

	var bookings []Booking
	err := r.gw.Select(ctx, gateway.Query{
		Table: "bookings",
		Filters: []gateway.Filter{
			{Column: "room_id", Op: gateway.OpIn, Values: ids},
			gateway.Eq("booking_date", date),
		},
	}, &bookings)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (r *repository) Create(ctx context.Context, roomID int64, date Date) (*Booking, error) {
	var created Booking
	err := r.gw.Insert(ctx, "bookings", gateway.Row{
		"room_id":      roomID,
		"booking_date": date,
		"is_booked":    true,
	}, &created)
	if err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			return nil, fmt.Errorf("%w: room %d on %s", ErrAlreadyBooked, roomID, date)
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return &created, nil
}

func (r *repository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.gw.Delete(ctx, "bookings", gateway.Eq("id", id)); err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	return nil
}
