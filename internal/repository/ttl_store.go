package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTTLStore exposes the three single-key operations the revocation
// ledger relies on.  Each maps to one atomic Redis command.
type RedisTTLStore struct{ RDB *redis.Client }

func NewRedisTTLStore(rdb *redis.Client) *RedisTTLStore { return &RedisTTLStore{RDB: rdb} }

// SetIfAbsent stores value under key with the given TTL unless key already
// exists (SET NX PX).  It reports whether the key was written.
func (s *RedisTTLStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.RDB.SetNX(ctx, key, value, ttl).Result()
}

// Exists reports whether key is present.
func (s *RedisTTLStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.RDB.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes key.  Missing keys are not an error.
func (s *RedisTTLStore) Delete(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}
