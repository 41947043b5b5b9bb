package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"tictactoe/internal/logger"

	"github.com/joho/godotenv"
)

// StoreDriver selects the game store backend.
type StoreDriver string

const (
	DriverPostgres StoreDriver = "postgres"
	DriverSQLite   StoreDriver = "sqlite"
)

type Config struct {
	AppPort       string
	AppVersion    string
	DatabaseURL   string
	StoreDriver   StoreDriver
	SQLitePath    string
	JWTSecret     string
	JWTTTL        time.Duration
	AllowedOrigin string

	LogLevel string
	LogJSON  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limits
	APIRateLimit   int
	APIRateWindow  time.Duration
	GameRateLimit  int
	GameRateWindow time.Duration
	WSRateLimit    int
	WSRateWindow   time.Duration

	ChatMaxLength int
	RematchTTL    time.Duration
}

// Load reads .env (if present) and the environment. Missing required
// settings are fatal.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	jwtSecret := getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	port := getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := &Config{
		AppPort:       port,
		AppVersion:    getenv("APP_VERSION"),
		DatabaseURL:   dbURL,
		StoreDriver:   DriverPostgres,
		JWTSecret:     jwtSecret,
		JWTTTL:        time.Duration(positiveInt(getenv, "JWT_TTL_HOURS", 24)) * time.Hour,
		AllowedOrigin: getenv("ALLOWED_ORIGIN"),

		LogLevel: getenv("LOG_LEVEL"),
		LogJSON:  getenv("LOG_JSON") == "true",

		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		RedisDB:       nonNegativeInt(getenv, "REDIS_DB", 0),

		APIRateLimit:   positiveInt(getenv, "API_RATE_LIMIT", 10),
		APIRateWindow:  seconds(getenv, "API_RATE_WINDOW_SECONDS", 60),
		GameRateLimit:  positiveInt(getenv, "GAME_RATE_LIMIT", 60),
		GameRateWindow: seconds(getenv, "GAME_RATE_WINDOW", 60),
		WSRateLimit:    positiveInt(getenv, "WS_RATE_LIMIT", 30),
		WSRateWindow:   seconds(getenv, "WS_RATE_WINDOW_SECONDS", 10),

		ChatMaxLength: positiveInt(getenv, "CHAT_MAX_LENGTH", 500),
		RematchTTL:    seconds(getenv, "REMATCH_TTL_SECONDS", 120),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if path, ok := strings.CutPrefix(dbURL, "sqlite:"); ok {
		if path == "" {
			return nil, errors.New("DATABASE_URL sqlite path is empty")
		}
		cfg.StoreDriver = DriverSQLite
		cfg.SQLitePath = path
	}

	return cfg, nil
}

func positiveInt(getenv func(string) string, key string, def int) int {
	if v := getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func nonNegativeInt(getenv func(string) string, key string, def int) int {
	if v := getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func seconds(getenv func(string) string, key string, def int) time.Duration {
	return time.Duration(positiveInt(getenv, key, def)) * time.Second
}
