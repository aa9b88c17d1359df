package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/tabgo/internal/domain"
)

const checkChangedType = "check_changed"

// CheckFeed fans committed check changes out to every API instance.
type CheckFeed struct {
	rdb     *redis.Client
	channel string
}

func NewCheckFeed(rdb *redis.Client) *CheckFeed {
	return &CheckFeed{
		rdb:     rdb,
		channel: ChannelChecksChanged(),
	}
}

func (p *CheckFeed) PublishCheckChanged(ctx context.Context, ev domain.CheckChanged) error {
	ev.Type = checkChangedType
	if ev.TsUnix == 0 {
		ev.TsUnix = time.Now().Unix()
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks delivering changes to handler until ctx is done. ready,
// when set, runs once Redis has confirmed the subscription.
func (p *CheckFeed) Subscribe(
	ctx context.Context,
	ready func(),
	handler func(ctx context.Context, ev domain.CheckChanged),
) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		ready()
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.CheckChanged
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.CheckID != uuid.Nil {
				handler(ctx, ev)
			}
		}
	}
}
