package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Read traffic
// (availability and capacity lookups) and write traffic (holds and
// purchases) get separate buckets so that polling a seat map cannot starve
// checkout.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the read-traffic bucket from RATE_LIMIT_*.
func LoadRateLimitConfig() RateLimitConfig {
	return loadBucket("RATE_LIMIT", RateLimitConfig{
		Capacity:     60,
		RefillTokens: 1,
		KeyStrategy:  "ip_user_route",
		Prefix:       "rl",
	})
}

// LoadWriteRateLimitConfig reads the write-traffic bucket from
// RATE_LIMIT_WRITE_*.  Writes are keyed per holder by default.
func LoadWriteRateLimitConfig() RateLimitConfig {
	return loadBucket("RATE_LIMIT_WRITE", RateLimitConfig{
		Capacity:     10,
		RefillTokens: 1,
		KeyStrategy:  "user",
		Prefix:       "rlw",
	})
}

func loadBucket(p string, def RateLimitConfig) RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool(p+"_ENABLED", true),
		Capacity:       envInt(p+"_CAPACITY", def.Capacity),
		RefillTokens:   envInt(p+"_REFILL_TOKENS", def.RefillTokens),
		RefillInterval: envDur(p+"_REFILL_INTERVAL", time.Second),
		TTL:            envDur(p+"_TTL", 10*time.Minute),
		KeyStrategy:    envStr(p+"_KEY_STRATEGY", def.KeyStrategy),
		Prefix:         envStr(p+"_PREFIX", def.Prefix),
		Debug:          envBool(p+"_DEBUG", false),
	}
	if cfg.Capacity < 1 { cfg.Capacity = 1 }
	if cfg.RefillTokens < 1 { cfg.RefillTokens = 1 }
	if cfg.RefillInterval <= 0 { cfg.RefillInterval = time.Second }
	minTTL := 5 * cfg.RefillInterval
	if cfg.TTL < minTTL { cfg.TTL = minTTL }
	return cfg
}
