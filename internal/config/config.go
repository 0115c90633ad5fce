package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	DBPath         string
	HistoryBackend string
	RedisAddr      string
	EmailDomain    string
	LogLevel       string
	SeedDemo       bool
	SessionIdleTTL time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		DBPath:         getenv("DB_PATH", "library.db"),
		HistoryBackend: strings.ToLower(getenv("HISTORY_BACKEND", "sqlite")),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		EmailDomain:    getenv("ALLOWED_EMAIL_DOMAIN", "@limu.edu.ly"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		SeedDemo:       getbool("SEED_DEMO", true),
		SessionIdleTTL: getduration("SESSION_IDLE_TTL", 30*time.Minute),
	}
}

// Level maps LogLevel to a slog level; unknown names mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger returns a text logger on stderr at the configured level.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.Level()}))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
