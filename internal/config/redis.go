package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//
//	REDIS_ADDR               host:port (default localhost:6379)
//	REDIS_HOST, REDIS_PORT   override REDIS_ADDR when both are set
//	REDIS_PASSWORD           optional password
//	REDIS_DB                 database number (default 0)
//	REDIS_TLS                enable TLS when true
func RedisOptions(lookup LookupFunc) *redis.Options {
	addr := envStr(lookup, "REDIS_ADDR", "localhost:6379")
	host, port := envStr(lookup, "REDIS_HOST", ""), envStr(lookup, "REDIS_PORT", "")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	db, _ := strconv.Atoi(envStr(lookup, "REDIS_DB", "0"))
	opts := &redis.Options{
		Addr:     addr,
		Password: envStr(lookup, "REDIS_PASSWORD", ""),
		DB:       db,
	}
	if envBool(lookup, "REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects and pings.  The revocation ledger cannot work
// without Redis, so a failed ping is returned rather than degraded.
func NewRedisClient(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
