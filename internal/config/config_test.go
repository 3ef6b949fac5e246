package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := lookupEnv
	lookupEnv = func(key string) string { return env[key] }
	t.Cleanup(func() { lookupEnv = prev })
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, map[string]string{"JWT_SECRET": "0123456789abcdef0123456789abcdef"})

	cfg := Load(newLogger(&bytes.Buffer{}, "error"))
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Errorf("JWTTTL = %s", cfg.JWTTTL)
	}
	if cfg.DashboardCacheTTL != 5*time.Minute {
		t.Errorf("DashboardCacheTTL = %s", cfg.DashboardCacheTTL)
	}
	if cfg.RedisAddress != "" {
		t.Errorf("RedisAddress = %q, want empty", cfg.RedisAddress)
	}
	if cfg.LoginRateBurst != 5 || cfg.LoginRatePerSecond != 1 {
		t.Errorf("login rate = %g/%d", cfg.LoginRatePerSecond, cfg.LoginRateBurst)
	}
}

func TestLoadOverridesAndBadValues(t *testing.T) {
	withEnv(t, map[string]string{
		"JWT_SECRET":           "0123456789abcdef0123456789abcdef",
		"HTTP_PORT":            "9000",
		"DASHBOARD_CACHE_TTL":  "90s",
		"LOGIN_RATE_BURST":     "not-a-number",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
	})

	cfg := Load(newLogger(&bytes.Buffer{}, "error"))
	if cfg.HTTPPort != "9000" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.DashboardCacheTTL != 90*time.Second {
		t.Errorf("DashboardCacheTTL = %s", cfg.DashboardCacheTTL)
	}
	if cfg.LoginRateBurst != 5 {
		t.Errorf("bad integer should fall back to default, got %d", cfg.LoginRateBurst)
	}
	origins := cfg.CORSOriginList()
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Errorf("CORSOriginList = %v", origins)
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info")
	logger.SetLevel(logrus.InfoLevel)

	LogError(logger, "kpi", "CreateEntry", "insert failed", map[string]int{"restaurant_id": 3}, errors.New("boom"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["module"] != "kpi" || rec["funcName"] != "CreateEntry" || rec["msg"] != "boom" {
		t.Fatalf("unexpected record %v", rec)
	}
	if _, ok := rec["data"]; !ok {
		t.Fatal("data field missing")
	}
}
