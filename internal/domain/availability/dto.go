package availability

import (
	"github.com/roomdesk/roomdesk-api/internal/domain/booking"
	"github.com/roomdesk/roomdesk-api/internal/domain/inventory"
)

// SelectPropertyRequest moves the property selection
type SelectPropertyRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

// SelectDateRequest moves the selected date
type SelectDateRequest struct {
	Date string `json:"date" validate:"required,civildate"`
}

// AutoRefreshRequest arms or disarms automatic refetching
type AutoRefreshRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SignalRequest relays a host lifecycle event from the presentation client
type SignalRequest struct {
	Type string `json:"type" validate:"required,signal"`
}

// RoomView is one room with its derived booked state
type RoomView struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Booked bool   `json:"booked"`
}

// CategoryView groups the rooms of one category
type CategoryView struct {
	Name  string     `json:"name"`
	Rooms []RoomView `json:"rooms"`
}

// BoardView is the full dashboard snapshot the presentation layer renders
type BoardView struct {
	Properties     []inventory.Property `json:"properties"`
	PropertyIndex  int                  `json:"property_index"`
	Property       *inventory.Property  `json:"property,omitempty"`
	Date           booking.Date         `json:"date"`
	Categories     []CategoryView       `json:"categories"`
	TotalCount     int                  `json:"total_count"`
	BookedCount    int                  `json:"booked_count"`
	AvailableCount int                  `json:"available_count"`
	Loaded         bool                 `json:"loaded"`
	Online         bool                 `json:"online"`
	AutoRefresh    bool                 `json:"auto_refresh"`
	LastError      string               `json:"last_error,omitempty"`
}

// NewBoardView derives the dashboard view from a session snapshot
func NewBoardView(s Session) BoardView {
	view := BoardView{
		Properties:     s.Properties,
		PropertyIndex:  s.PropertyIndex,
		Property:       s.SelectedProperty(),
		Date:           s.Date,
		Categories:     []CategoryView{},
		TotalCount:     s.TotalCount(),
		BookedCount:    s.BookedCount(),
		AvailableCount: s.AvailableCount(),
		Loaded:         s.Loaded,
		Online:         s.Online,
		AutoRefresh:    s.AutoRefresh,
		LastError:      s.LastError,
	}
	if view.Properties == nil {
		view.Properties = []inventory.Property{}
	}

	for _, category := range s.Categories() {
		cv := CategoryView{Name: category}
		for _, r := range s.RoomsByCategory(category) {
			cv.Rooms = append(cv.Rooms, RoomView{
				ID:     r.ID,
				Name:   r.Name,
				Booked: s.IsBooked(r.ID),
			})
		}
		view.Categories = append(view.Categories, cv)
	}
	return view
}
