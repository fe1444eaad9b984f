package config

import "time"

// RateLimitConfig drives the token bucket in front of the credential
// endpoints (login, refresh, register).
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // "ip" or "ip_route"
	Prefix         string
}

func ParseRateLimit(lookup LookupFunc) RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool(lookup, "RATE_LIMIT_ENABLED", true),
		Capacity:       envInt(lookup, "RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   envInt(lookup, "RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur(lookup, "RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:            envDur(lookup, "RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr(lookup, "RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr(lookup, "RATE_LIMIT_PREFIX", "rl:auth"),
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// a bucket must outlive a full refill
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
