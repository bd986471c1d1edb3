package config

import "time"

// RateLimitConfig configures the Redis token bucket. Two buckets are used:
// a tight one in front of the login route and a general one for the
// authenticated API.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	LoginCapacity  int
	LoginInterval  time.Duration
	TTL            time.Duration
	Prefix         string
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 120),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 2),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		LoginCapacity:  envInt("RATE_LIMIT_LOGIN_CAPACITY", 5),
		LoginInterval:  envDur("RATE_LIMIT_LOGIN_INTERVAL", 12*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "admin:rl"),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if def.LoginCapacity < 1 {
		def.LoginCapacity = 1
	}
	if def.LoginInterval <= 0 {
		def.LoginInterval = 12 * time.Second
	}
	minTTL := 5 * def.LoginInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
