package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Channel carries every terminal event. Attached processes subscribe to the
// same channel name the terminal UI listens on.
const Channel = "cashier-update"

// Redis broadcasts events over a Redis pub/sub channel so processes beyond
// this one (customer display, second register window) see session changes.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("bus: failed to marshal event")
		return
	}
	if err := r.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("bus: publish failed")
	}
}

func (r *Redis) Subscribe(ctx context.Context) <-chan Event {
	out := make(chan Event, 16)
	sub := r.rdb.Subscribe(ctx, Channel)

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Error().Err(err).Msg("bus: bad event payload")
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out
}
