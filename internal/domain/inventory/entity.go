package inventory

// Property represents a managed site containing rooms. Reference data,
// never mutated by this service.
type Property struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Room represents a bookable unit belonging to one property
type Room struct {
	ID         int64  `db:"id" json:"id"`
	PropertyID int64  `db:"property_id" json:"property_id"`
	Name       string `db:"name" json:"name"`
	Category   string `db:"category" json:"category"`
}
