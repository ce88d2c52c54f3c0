package booking

import (
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// NotifyChannel is the Postgres NOTIFY channel fired by the bookings
// trigger (see migrations).
const NotifyChannel = "bookings_changed"

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
)

// ListenerFeed surfaces bookings-table changes via Postgres LISTEN/NOTIFY.
// Available only when the service talks to the provider's database directly.
type ListenerFeed struct {
	listener *pq.Listener
	events   chan struct{}
	done     chan struct{}
}

// NewListenerFeed opens a LISTEN connection on the bookings channel
func NewListenerFeed(databaseURL string) (*ListenerFeed, error) {
	listener := pq.NewListener(databaseURL, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Error().Err(err).Int("event", int(ev)).Msg("Booking listener event")
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, err
	}

	f := &ListenerFeed{
		listener: listener,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go f.run()

	log.Info().Str("channel", NotifyChannel).Msg("Listening for booking changes")
	return f, nil
}

func (f *ListenerFeed) run() {
	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			// n is nil after a reconnect; treat it as a change so
			// missed notifications are caught up
			_ = n
			f.signal()
		}
	}
}

func (f *ListenerFeed) signal() {
	select {
	case f.events <- struct{}{}:
	default:
	}
}

func (f *ListenerFeed) Events() <-chan struct{} {
	return f.events
}

func (f *ListenerFeed) Close() error {
	close(f.done)
	return f.listener.Close()
}
