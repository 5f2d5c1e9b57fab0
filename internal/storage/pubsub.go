package storage

import (
	"babelchat/backend/internal/models"
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RoomChannelPrefix namespaces per-room Pub/Sub channels.
const RoomChannelPrefix = "room:"

// RedisBroker carries room events between server instances over Redis Pub/Sub.
// Each room has its own channel; one pattern subscription receives them all.
type RedisBroker struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{Redis: rdb, Prefix: RoomChannelPrefix}
}

// Publish sends one event to the room channel it belongs to.
func (b *RedisBroker) Publish(ctx context.Context, ev models.Event) error {
	data, err := models.EncodeEvent(ev)
	if err != nil {
		return err
	}
	return b.Redis.Publish(ctx, b.Prefix+ev.EventRoomID(), data).Err()
}

// Listen subscribes to every room channel and calls deliver for each event,
// in the order Redis delivers them. ready is called once the subscription is
// confirmed. Listen returns nil when ctx is cancelled and an error when the
// connection fails; it does not resubscribe on its own.
func (b *RedisBroker) Listen(ctx context.Context, ready func(), deliver func(models.Event)) error {
	pubsub := b.Redis.PSubscribe(ctx, b.Prefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	if ready != nil {
		ready()
	}

	// ReceiveMessage does not observe cancellation while blocked on the socket.
	stop := context.AfterFunc(ctx, func() { _ = pubsub.Close() })
	defer stop()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		ev, err := models.DecodeEvent([]byte(msg.Payload))
		if err != nil {
			slog.Warn("broker_decode_failed", "channel", msg.Channel, "error", err)
			continue
		}
		deliver(ev)
	}
}
