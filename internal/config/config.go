package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=restoran_kpi port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins string
	LogLevel    string

	// empty disables the dashboard cache
	RedisAddress      string
	DashboardCacheTTL time.Duration

	LoginRatePerSecond float64
	LoginRateBurst     int
}

// Load reads the environment (and a .env file when present). A missing or
// short JWT secret is fatal.
func Load(log *logrus.Logger) *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:        getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTL:             getDuration(log, "JWT_TTL", 24*time.Hour),
		CORSOrigins:        getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RedisAddress:       getEnv("REDIS_ADDRESS", ""),
		DashboardCacheTTL:  getDuration(log, "DASHBOARD_CACHE_TTL", 5*time.Minute),
		LoginRatePerSecond: getFloat(log, "LOGIN_RATE_PER_SECOND", 1),
		LoginRateBurst:     getInt(log, "LOGIN_RATE_BURST", 5),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Warn("DATABASE_DSN not set, using the local development database")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Warn("CORS_ALLOWED_ORIGINS not set, allowing only the local frontend")
	}
	if cfg.RedisAddress == "" {
		log.Info("REDIS_ADDRESS not set, dashboard cache disabled")
	}

	return cfg
}

// CORSOriginList splits the comma-separated origin setting.
func (c *Config) CORSOriginList() []string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func getEnv(key, def string) string {
	if v := lookupEnv(key); v != "" {
		return v
	}
	return def
}

func getDuration(log *logrus.Logger, key string, def time.Duration) time.Duration {
	v := lookupEnv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid duration %q, using %s", v, def)
		return def
	}
	return d
}

func getInt(log *logrus.Logger, key string, def int) int {
	v := lookupEnv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid integer %q, using %d", v, def)
		return def
	}
	return n
}

func getFloat(log *logrus.Logger, key string, def float64) float64 {
	v := lookupEnv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.WithField("key", key).Warnf("invalid number %q, using %g", v, def)
		return def
	}
	return f
}
