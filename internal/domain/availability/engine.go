package availability

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roomdesk/roomdesk-api/internal/domain/booking"
	"github.com/roomdesk/roomdesk-api/internal/domain/inventory"
)

const (
	probeInterval  = 10 * time.Second
	triggerTimeout = 10 * time.Second
)

// Pinger probes the remote store for reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config tunes the engine's refresh behaviour
type Config struct {
	PollInterval   time.Duration
	ResumeDelay    time.Duration
	ReconcileDelay time.Duration
	ProbeInterval  time.Duration // defaults to 10s when zero
}

// Engine is the refresh orchestrator: it owns every trigger that causes a
// refetch (startup, selection changes, poll ticks, connectivity and
// visibility transitions, change-feed events, manual refresh) and the
// booking toggle. Fetches run concurrently and unawaited; the store's
// fencing decides which responses land.
type Engine struct {
	store *Store
	inv   inventory.Repository
	book  booking.Repository
	feed  booking.Feed      // optional
	pub   booking.Publisher // optional
	cfg   Config
}

// NewEngine creates the refresh engine. feed and pub may be nil; polling
// then remains the only sync channel.
func NewEngine(store *Store, inv inventory.Repository, book booking.Repository, feed booking.Feed, pub booking.Publisher, cfg Config) *Engine {
	return &Engine{
		store: store,
		inv:   inv,
		book:  book,
		feed:  feed,
		pub:   pub,
		cfg:   cfg,
	}
}

// Run performs the initial load and services the poll ticker and the
// change feed until ctx is cancelled
func (e *Engine) Run(ctx context.Context) {
	if err := e.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("Initial load failed")
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	var feedCh <-chan struct{}
	if e.feed != nil {
		feedCh = e.feed.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := e.store.Snapshot()
			if snap.Online && snap.AutoRefresh {
				e.RefreshBookings(ctx)
			}
		case <-feedCh:
			snap := e.store.Snapshot()
			if snap.AutoRefresh {
				log.Debug().Msg("Booking change feed event, refetching")
				e.RefreshBookings(ctx)
			}
		}
	}
}

// WatchConnectivity keeps the online flag in sync with the remote store's
// reachability. Host-reported online/offline signals still apply between
// probes.
func (e *Engine) WatchConnectivity(ctx context.Context, pinger Pinger) {
	interval := e.cfg.ProbeInterval
	if interval <= 0 {
		interval = probeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, triggerTimeout)
			err := pinger.Ping(probeCtx)
			cancel()
			if err != nil {
				if e.store.SetOnline(false) {
					log.Warn().Err(err).Msg("Remote store unreachable, going offline")
				}
				continue
			}
			e.cameOnline(ctx)
		}
	}
}

// Refresh refetches everything: properties, rooms for the selected
// property, bookings for the selected date. Manual trigger; runs regardless
// of the auto-refresh flag.
func (e *Engine) Refresh(ctx context.Context) error {
	if err := e.refreshProperties(ctx); err != nil {
		return err
	}
	if err := e.refreshRooms(ctx); err != nil {
		return err
	}
	if err := e.RefreshBookings(ctx); err != nil {
		return err
	}
	e.store.MarkLoaded()
	return nil
}

// SelectProperty moves the selection and refetches rooms, then bookings
// scoped to the new room set
func (e *Engine) SelectProperty(ctx context.Context, index int) error {
	if !e.store.SelectProperty(index) {
		return ErrPropertyOutOfRange
	}
	if err := e.refreshRooms(ctx); err != nil {
		return err
	}
	return e.RefreshBookings(ctx)
}

// SelectDate moves the selected date and refetches bookings for the
// unchanged room set
func (e *Engine) SelectDate(ctx context.Context, date booking.Date) error {
	e.store.SetDate(date)
	return e.RefreshBookings(ctx)
}

// SetAutoRefresh arms or disarms the timed and feed-driven refetches
func (e *Engine) SetAutoRefresh(enabled bool) {
	e.store.SetAutoRefresh(enabled)
}

// Signal feeds a host lifecycle event into the engine
func (e *Engine) Signal(ctx context.Context, signal string) {
	switch signal {
	case "online":
		e.cameOnline(ctx)
	case "offline":
		if e.store.SetOnline(false) {
			log.Info().Msg("Host reported offline")
		}
	case "visible", "focus":
		e.resume()
	case "hidden":
		// Background transition needs no refetch; the next resume covers it
	}
}

func (e *Engine) cameOnline(ctx context.Context) {
	if !e.store.SetOnline(true) {
		return
	}
	log.Info().Msg("Connectivity regained")
	if e.store.Snapshot().AutoRefresh {
		if err := e.Refresh(ctx); err != nil {
			log.Error().Err(err).Msg("Refresh after reconnect failed")
		}
	}
}

// resume fires a full refetch shortly after the app returns to the
// foreground; the delay absorbs reconnection latency
func (e *Engine) resume() {
	time.AfterFunc(e.cfg.ResumeDelay, func() {
		snap := e.store.Snapshot()
		if !snap.Online || !snap.AutoRefresh {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()
		if err := e.Refresh(ctx); err != nil {
			log.Error().Err(err).Msg("Refresh after resume failed")
		}
	})
}

func (e *Engine) refreshProperties(ctx context.Context) error {
	seq := e.store.NextSeq(ScopeReference)
	properties, err := e.inv.ListProperties(ctx)
	if err != nil {
		return e.fail("fetch properties", err)
	}
	e.store.ApplyProperties(seq, properties)
	return nil
}

func (e *Engine) refreshRooms(ctx context.Context) error {
	selected := e.store.Snapshot().SelectedProperty()
	if selected == nil {
		return nil
	}
	seq := e.store.NextSeq(ScopeRooms)
	rooms, err := e.inv.ListRoomsByProperty(ctx, selected.ID)
	if err != nil {
		return e.fail("fetch rooms", err)
	}
	e.store.ApplyRooms(seq, selected.ID, rooms)
	return nil
}

// RefreshBookings refetches the bookings for the current room set and date
func (e *Engine) RefreshBookings(ctx context.Context) error {
	snap := e.store.Snapshot()
	roomIDs := make([]int64, 0, len(snap.Rooms))
	for _, r := range snap.Rooms {
		roomIDs = append(roomIDs, r.ID)
	}

	seq := e.store.NextSeq(ScopeBookings)
	bookings, err := e.book.ListForRoomsOn(ctx, roomIDs, snap.Date)
	if err != nil {
		return e.fail("fetch bookings", err)
	}
	e.store.ApplyBookings(seq, snap.Date, bookings)
	return nil
}

// ToggleOutcome reports the state a toggle left the room in
type ToggleOutcome struct {
	RoomID int64        `json:"room_id"`
	Date   booking.Date `json:"date"`
	Booked bool         `json:"booked"`
}

// Toggle flips a room between booked and available for the selected date.
// Rejected without a network call while offline. Whatever the outcome, a
// delayed reconcile refetch corrects any divergence caused by concurrent
// clients.
func (e *Engine) Toggle(ctx context.Context, roomID int64) (*ToggleOutcome, error) {
	snap := e.store.Snapshot()
	if !snap.Online {
		return nil, ErrOffline
	}
	if !snap.roomIDs()[roomID] {
		return nil, ErrRoomNotFound
	}

	defer e.scheduleReconcile()

	if existing := snap.FindBooking(roomID); existing != nil {
		if err := e.book.DeleteByID(ctx, existing.ID); err != nil {
			e.fail("toggle delete", err)
			e.asyncRefreshBookings()
			return nil, err
		}
		e.store.RemoveBooking(existing.ID)
		e.publish()
		log.Info().Int64("room_id", roomID).Str("date", snap.Date.String()).Msg("Booking released")
		return &ToggleOutcome{RoomID: roomID, Date: snap.Date, Booked: false}, nil
	}

	created, err := e.book.Create(ctx, roomID, snap.Date)
	if err != nil {
		if errors.Is(err, booking.ErrAlreadyBooked) {
			// Another client won the race; converge instead of failing
			log.Info().Int64("room_id", roomID).Str("date", snap.Date.String()).Msg("Room was booked concurrently")
			e.asyncRefreshBookings()
			return &ToggleOutcome{RoomID: roomID, Date: snap.Date, Booked: true}, nil
		}
		e.fail("toggle create", err)
		e.asyncRefreshBookings()
		return nil, err
	}

	e.store.AddBooking(*created)
	e.publish()
	log.Info().Int64("room_id", roomID).Str("date", snap.Date.String()).Msg("Booking created")
	return &ToggleOutcome{RoomID: roomID, Date: snap.Date, Booked: true}, nil
}

func (e *Engine) scheduleReconcile() {
	time.AfterFunc(e.cfg.ReconcileDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()
		e.RefreshBookings(ctx)
	})
}

func (e *Engine) asyncRefreshBookings() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()
		e.RefreshBookings(ctx)
	}()
}

func (e *Engine) publish() {
	if e.pub != nil {
		e.pub.PublishChange()
	}
}

func (e *Engine) fail(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("Remote fetch failed, keeping cached state")
	e.store.SetError(err.Error())
	return err
}
