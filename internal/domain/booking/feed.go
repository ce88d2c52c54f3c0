package booking

// Feed delivers change signals for the bookings table. A signal carries no
// payload; consumers reconcile by refetching.
type Feed interface {
	// Events never blocks the producer; coincident changes may coalesce
	// into one signal.
	Events() <-chan struct{}
	Close() error
}

// Publisher announces local booking mutations to peer instances.
type Publisher interface {
	PublishChange()
}
