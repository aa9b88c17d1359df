package redisx_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tabgo/internal/domain"
	redisx "github.com/kirinyoku/tabgo/internal/redis"
	"github.com/kirinyoku/tabgo/internal/redis/redistest"
)

func TestCheckFeed_RoundTrip(t *testing.T) {
	rdb := redistest.Client(t)
	feed := redisx.NewCheckFeed(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan domain.CheckChanged, 1)
	ready := make(chan struct{})
	go func() {
		_ = feed.Subscribe(ctx, func() { close(ready) }, func(_ context.Context, ev domain.CheckChanged) {
			got <- ev
		})
	}()

	select {
	case <-ready:
	case <-ctx.Done():
		t.Fatal("subscription not confirmed")
	}

	n, err := rdb.PubSubNumSub(ctx, redisx.ChannelChecksChanged()).Result()
	require.NoError(t, err)
	require.Positive(t, n[redisx.ChannelChecksChanged()])

	id := uuid.New()
	require.NoError(t, feed.PublishCheckChanged(ctx, domain.CheckChanged{
		CheckID:  id,
		Revision: 3,
		TableIDs: []string{"T1"},
	}))

	select {
	case ev := <-got:
		assert.Equal(t, id, ev.CheckID)
		assert.Equal(t, int64(3), ev.Revision)
		assert.Equal(t, "check_changed", ev.Type)
		assert.NotZero(t, ev.TsUnix)
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestCheckFeed_SubscribeFailsWhenRedisIsUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: time.Second,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ready := false
	err := redisx.NewCheckFeed(rdb).Subscribe(ctx, func() { ready = true }, func(context.Context, domain.CheckChanged) {})
	require.Error(t, err)
	assert.False(t, ready)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "tabgo:v1:menu:burger", redisx.KeyMenuItem("burger"))
	assert.Equal(t, "tabgo:v1:rl:device:tab-1", redisx.KeyRateLimit("device", "tab-1"))
	assert.Equal(t, "tabgo:v1:idem:lines:c1:k", redisx.KeyIdemLine("c1", "k"))
}
