package config

import (
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DATABASE_URL": "postgres://localhost/ttt",
		"JWT_SECRET":   "s",
	}))
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.AppPort != "8080" {
		t.Fatalf("port = %q; want 8080", cfg.AppPort)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Fatalf("driver = %q; want postgres", cfg.StoreDriver)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("jwt ttl = %v; want 24h", cfg.JWTTTL)
	}
	if cfg.WSRateLimit != 30 || cfg.WSRateWindow != 10*time.Second {
		t.Fatalf("ws limit = %d/%v; want 30/10s", cfg.WSRateLimit, cfg.WSRateWindow)
	}
	if cfg.ChatMaxLength != 500 || cfg.RematchTTL != 2*time.Minute {
		t.Fatalf("chat/rematch = %d/%v", cfg.ChatMaxLength, cfg.RematchTTL)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q; want info", cfg.LogLevel)
	}
}

func TestFromEnvSQLite(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DATABASE_URL": "sqlite:/tmp/ttt.db",
		"JWT_SECRET":   "s",
	}))
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLitePath != "/tmp/ttt.db" {
		t.Fatalf("driver=%q path=%q", cfg.StoreDriver, cfg.SQLitePath)
	}
}

func TestFromEnvRequired(t *testing.T) {
	cases := []map[string]string{
		{"JWT_SECRET": "s"},
		{"DATABASE_URL": "postgres://x"},
		{"DATABASE_URL": "sqlite:", "JWT_SECRET": "s"},
	}
	for i, c := range cases {
		if _, err := FromEnv(env(c)); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestFromEnvIgnoresBadNumbers(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DATABASE_URL":    "postgres://x",
		"JWT_SECRET":      "s",
		"GAME_RATE_LIMIT": "-5",
		"API_RATE_LIMIT":  "abc",
		"CHAT_MAX_LENGTH": "80",
	}))
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.GameRateLimit != 60 || cfg.APIRateLimit != 10 {
		t.Fatalf("limits = %d/%d; want defaults", cfg.GameRateLimit, cfg.APIRateLimit)
	}
	if cfg.ChatMaxLength != 80 {
		t.Fatalf("chat max = %d; want 80", cfg.ChatMaxLength)
	}
}
