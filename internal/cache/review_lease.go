package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const leasePrefix = "controlroom:lease:"

// releaseScript deletes the lease only when the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// claimAttempts bounds how often Claim retries when the lease expires
// between SETNX and GET.
const claimAttempts = 3

// leaseCmds is the subset of the Redis client the lease store uses.
type leaseCmds interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLeaseStore hands out advisory edit leases on review items.
type RedisLeaseStore struct {
	client leaseCmds
}

func NewRedisLeaseStore(client *redis.Client) *RedisLeaseStore {
	return &RedisLeaseStore{client: client}
}

// Claim takes the lease for holder, or extends it when holder already owns
// it. It returns the current holder and whether the claim succeeded.
func (s *RedisLeaseStore) Claim(ctx context.Context, key, holder string, ttl time.Duration) (string, bool, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		ok, err := s.client.SetNX(ctx, leasePrefix+key, holder, ttl).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return holder, true, nil
		}

		current, err := s.Holder(ctx, key)
		if err != nil {
			return "", false, err
		}
		switch current {
		case "":
			// expired after SETNX lost, try again
			continue
		case holder:
			return holder, true, s.client.Expire(ctx, leasePrefix+key, ttl).Err()
		default:
			return current, false, nil
		}
	}
	return "", false, fmt.Errorf("lease %s: holder kept changing", key)
}

func (s *RedisLeaseStore) Release(ctx context.Context, key, holder string) error {
	return releaseScript.Run(ctx, s.client, []string{leasePrefix + key}, holder).Err()
}

// Holder returns the current lease holder, or "" when the item is free.
func (s *RedisLeaseStore) Holder(ctx context.Context, key string) (string, error) {
	holder, err := s.client.Get(ctx, leasePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return holder, err
}
