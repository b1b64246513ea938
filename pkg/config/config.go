package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string `validate:"required,numeric"`
	Env  string `validate:"oneof=development staging production"`

	Database DatabaseConfig
	Redis    RedisConfig

	// Selector defaults (overridden by strategy files)
	Selector SelectorConfig

	CalendarCacheTTL time.Duration `validate:"gte=0"`

	// Logging
	LogLevel  string
	LogFormat string `validate:"omitempty,oneof=json console pretty"`

	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int `validate:"gte=0"`
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool; zero keeps the pgx default
	MaxConns        int `validate:"gte=0"`
	MinConns        int `validate:"gte=0"`
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SelectorConfig holds the walk-forward selector defaults
type SelectorConfig struct {
	TrainLen int    `validate:"gt=0"`
	TestLen  int    `validate:"gt=0"`
	Mode     string `validate:"oneof=max min"`
	Metric   string `validate:"required"`
	Parallel bool
	Workers  int `validate:"gte=1,lte=256"`
}

// Load reads configuration from environment variables (.env is loaded first
// when present). Malformed numbers, booleans or durations are errors.
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	e := &envReader{}
	cfg := &Config{
		Port: e.str("PORT", "8089"),
		Env:  e.str("ENV", "development"),

		Database: DatabaseConfig{
			URL:             e.str("DATABASE_URL", ""),
			MaxConns:        e.int("DB_MAX_CONNS", 10),
			MinConns:        e.int("DB_MIN_CONNS", 2),
			MaxConnLifetime: e.duration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: e.duration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},

		Redis: RedisConfig{
			Host:     e.str("REDIS_HOST", "localhost"),
			Port:     e.str("REDIS_PORT", "6379"),
			Password: e.str("REDIS_PASSWORD", ""),
			DB:       e.int("REDIS_DB", 0),
			Enabled:  e.bool("REDIS_ENABLED", false),
		},

		Selector: SelectorConfig{
			TrainLen: e.int("SELECTOR_TRAIN_LEN", 30),
			TestLen:  e.int("SELECTOR_TEST_LEN", 20),
			Mode:     e.str("SELECTOR_MODE", "max"),
			Metric:   e.str("SELECTOR_METRIC", "ending_equity"),
			Parallel: e.bool("SELECTOR_PARALLEL", false),
			Workers:  e.int("SELECTOR_WORKERS", 4),
		},

		CalendarCacheTTL: e.duration("CALENDAR_CACHE_TTL", 24*time.Hour),

		LogLevel:  e.str("LOG_LEVEL", "info"),
		LogFormat: e.str("LOG_FORMAT", "json"),

		MetricsEnabled: e.bool("METRICS_ENABLED", true),
	}

	if err := errors.Join(e.errs...); err != nil {
		return nil, fmt.Errorf("config parse failed: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// RequireDatabase fails when DATABASE_URL is not configured.
// DB 연결이 필요한 명령어에서만 호출
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// loadEnvFile loads the first .env found next to the cwd or the binary
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(dir, ".env"), filepath.Join(dir, "..", ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// envReader reads typed variables and collects parse errors
type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e *envReader) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}
