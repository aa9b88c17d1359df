package redisrepo

import (
	"context"

	"github.com/redis/go-redis/v9"

	redisx "github.com/kirinyoku/tabgo/internal/redis"
)

// DeviceRegistry is the set of terminals allowed to mutate checks.
type DeviceRegistry struct {
	rdb *redis.Client
	key string
}

func NewDeviceRegistry(rdb *redis.Client) *DeviceRegistry {
	return &DeviceRegistry{rdb: rdb, key: redisx.KeyTrustedDevices()}
}

func (d *DeviceRegistry) Trusted(ctx context.Context, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, nil
	}

	return d.rdb.SIsMember(ctx, d.key, deviceID).Result()
}

func (d *DeviceRegistry) Trust(ctx context.Context, deviceIDs ...string) error {
	if len(deviceIDs) == 0 {
		return nil
	}

	members := make([]any, len(deviceIDs))
	for i, id := range deviceIDs {
		members[i] = id
	}

	return d.rdb.SAdd(ctx, d.key, members...).Err()
}

func (d *DeviceRegistry) Revoke(ctx context.Context, deviceID string) error {
	return d.rdb.SRem(ctx, d.key, deviceID).Err()
}
