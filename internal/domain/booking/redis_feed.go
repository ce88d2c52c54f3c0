package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisChannel carries booking change announcements between instances.
const RedisChannel = "bookings:changed"

// RedisFeed fans booking changes out over Redis pub/sub. Used when the
// gateway gives no LISTEN/NOTIFY path, or to bridge instances behind a REST
// gateway. Each instance publishes after its own mutations and ignores its
// own announcements.
type RedisFeed struct {
	client     *redis.Client
	pubsub     *redis.PubSub
	events     chan struct{}
	instanceID string
	cancel     context.CancelFunc
}

// NewRedisFeed subscribes to the booking change channel
func NewRedisFeed(client *redis.Client) *RedisFeed {
	ctx, cancel := context.WithCancel(context.Background())
	f := &RedisFeed{
		client:     client,
		pubsub:     client.Subscribe(ctx, RedisChannel),
		events:     make(chan struct{}, 1),
		instanceID: uuid.NewString(),
		cancel:     cancel,
	}
	go f.run(ctx)

	log.Info().Str("channel", RedisChannel).Str("instance_id", f.instanceID).Msg("Subscribed to booking changes")
	return f
}

func (f *RedisFeed) run(ctx context.Context) {
	ch := f.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Payload == f.instanceID {
				// Our own announcement; local state is already reconciled
				// by the toggle's follow-up refetch
				continue
			}
			select {
			case f.events <- struct{}{}:
			default:
			}
		}
	}
}

// PublishChange announces a local mutation to peer instances
func (f *RedisFeed) PublishChange() {
	ctx := context.Background()
	if err := f.client.Publish(ctx, RedisChannel, f.instanceID).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to publish booking change")
	}
}

func (f *RedisFeed) Events() <-chan struct{} {
	return f.events
}

func (f *RedisFeed) Close() error {
	f.cancel()
	return f.pubsub.Close()
}
