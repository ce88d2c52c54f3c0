package inventory

import "context"

// Repository defines read-only access to reference data
type Repository interface {
	ListProperties(ctx context.Context) ([]Property, error)
	ListRoomsByProperty(ctx context.Context, propertyID int64) ([]Room, error)
}
