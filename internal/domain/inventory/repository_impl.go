package inventory

import (
	"context"

	"github.com/roomdesk/roomdesk-api/internal/pkg/gateway"
)

type repository struct {
	gw gateway.Gateway
}

// NewRepository creates an inventory repository over the table gateway
func NewRepository(gw gateway.Gateway) Repository {
	return &repository{gw: gw}
}

func (r *repository) ListProperties(ctx context.Context) ([]Property, error) {
	var properties []Property
	err := r.gw.Select(ctx, gateway.Query{
		Table:   "properties",
		OrderBy: []string{"id"},
	}, &properties)
	return properties, err
}

func (r *repository) ListRoomsByProperty(ctx context.Context, propertyID int64) ([]Room, error) {
	var rooms []Room
	err := r.gw.Select(ctx, gateway.Query{
		Table:   "rooms",
		Filters: []gateway.Filter{gateway.Eq("property_id", propertyID)},
		OrderBy: []string{"category", "name"},
	}, &rooms)
	return rooms, err
}
