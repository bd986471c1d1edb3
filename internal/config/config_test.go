package config

import (
	"testing"
	"time"
)

func TestLoadMemoryStoreDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "8081")
	t.Setenv("ADMIN_JWT_SECRET", "secret")
	t.Setenv("APP_STORE", "memory")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "")
	t.Setenv("CORS_ORIGIN", "http://a.test, http://b.test")

	c := Load()
	if c.Store != StoreMemory {
		t.Fatalf("expected memory store, got %q", c.Store)
	}
	if c.AccessTTL != time.Hour {
		t.Errorf("expected one hour ttl, got %v", c.AccessTTL)
	}
	if c.BcryptCost != 12 {
		t.Errorf("expected bcrypt cost 12, got %d", c.BcryptCost)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "http://b.test" {
		t.Errorf("unexpected origins %v", c.CORSOrigins)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_LOGIN_INTERVAL", "1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	if c.Capacity != 1 {
		t.Errorf("expected capacity clamped to 1, got %d", c.Capacity)
	}
	if c.TTL != 5*time.Second {
		t.Errorf("expected ttl raised to 5s, got %v", c.TTL)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "ON")
	if !envBool("X_FLAG", false) {
		t.Errorf("expected ON to parse as true")
	}
	t.Setenv("X_FLAG", "maybe")
	if envBool("X_FLAG", false) {
		t.Errorf("expected unknown value to fall back to default")
	}
}
