package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the mirror. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	DatabaseURL string
	Host        string
	Port        string
	LogLevel    string
	Environment string
	CORSOrigins string
	// RateLimit is the per-IP request budget per minute. Zero disables it.
	RateLimit int

	CSVPath           string
	CheckInterval     time.Duration
	FileCheckInterval time.Duration

	MetricsNamespace string

	OriginURL     string
	OriginTimeout time.Duration
	OriginRate    float64
	OriginBurst   int

	RedisURL       string
	OriginCacheTTL time.Duration
}

// Load reads the configuration. A missing DATABASE_URL is the only fatal
// condition; malformed numeric values fall back to their defaults.
func Load() (*Config, error) {
	// A missing .env file is normal in containers.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Host:        getEnv("SERVER_HOST", "0.0.0.0"),
		Port:        getEnv("SERVER_PORT", getEnv("PORT", "8001")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		RateLimit:   getInt("RATE_LIMIT_PER_MINUTE", 600),

		CSVPath:           getEnv("CSV_PATH", "mirror/sponsorTimes.csv"),
		CheckInterval:     getSeconds("CHECK_INTERVAL_SECONDS", 30),
		FileCheckInterval: getSeconds("FILE_CHECK_INTERVAL_SECONDS", 60),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "api"),

		OriginURL:     getEnv("ORIGIN_URL", "https://sponsor.ajay.app"),
		OriginTimeout: getSeconds("ORIGIN_TIMEOUT_SECONDS", 10),
		OriginRate:    getFloat("ORIGIN_RATE_PER_SECOND", 20),
		OriginBurst:   getInt("ORIGIN_BURST", 40),

		RedisURL:       os.Getenv("REDIS_URL"),
		OriginCacheTTL: getSeconds("ORIGIN_CACHE_TTL_SECONDS", 300),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable must be set")
	}
	return cfg, nil
}

// BindAddress returns host:port for the HTTP listener.
func (c *Config) BindAddress() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// getSeconds reads a positive number of seconds.
func getSeconds(key string, fallback int) time.Duration {
	v := getInt(key, fallback)
	if v == 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
