package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/dreschagin/order-service/pkg/logger"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Retention RetentionConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	PoolSize        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AcquireTimeout  time.Duration
	DrainTimeout    time.Duration
}

type LogConfig struct {
	Level          logger.Level
	Dir            string
	File           string
	ConsoleEnabled bool
	FileEnabled    bool
	DBEnabled      bool
	SinkTimeout    time.Duration
	QueueSize      int
}

type RetentionConfig struct {
	Enabled    bool
	Schedule   string
	Threshold  logger.Level
	RunTimeout time.Duration
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

// Load reads the environment (and .env when present), applies defaults and
// validates every value. Failures are *ConfigError values matching
// ErrConfiguration.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	var p parser

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     p.duration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout:    p.duration("SERVER_WRITE_TIMEOUT", "10s"),
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: p.duration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "orders"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			PoolSize:        p.positiveInt("DB_POOL_SIZE", "10"),
			MaxIdleConns:    p.positiveInt("DB_MAX_IDLE_CONNS", "5"),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", "5m"),
			ConnMaxIdleTime: p.duration("DB_CONN_MAX_IDLE_TIME", "10m"),
			AcquireTimeout:  p.duration("DB_ACQUIRE_TIMEOUT", "5s"),
			DrainTimeout:    p.duration("DB_DRAIN_TIMEOUT", "10s"),
		},
		Log: LogConfig{
			Level:          p.level("LOG_LEVEL", "info"),
			Dir:            getEnv("LOG_DIR", "logs"),
			File:           getEnv("LOG_FILE", "app.log"),
			ConsoleEnabled: p.bool("LOG_CONSOLE_ENABLED", true),
			FileEnabled:    p.bool("LOG_FILE_ENABLED", true),
			DBEnabled:      p.bool("LOG_DB_ENABLED", true),
			SinkTimeout:    p.duration("LOG_SINK_TIMEOUT", "2s"),
			QueueSize:      p.positiveInt("LOG_QUEUE_SIZE", "256"),
		},
		Retention: RetentionConfig{
			Enabled:    p.bool("LOG_RETENTION_ENABLED", true),
			Schedule:   p.schedule("LOG_RETENTION_SCHEDULE", "0 0 * * *"),
			Threshold:  p.level("LOG_RETENTION_THRESHOLD", "info"),
			RunTimeout: p.duration("LOG_RETENTION_TIMEOUT", "5m"),
		},
		Redis: RedisConfig{
			Enabled:      p.bool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           p.nonNegativeInt("REDIS_DB", "0"),
			TTL:          p.duration("REDIS_TTL", "60s"),
			PoolSize:     p.positiveInt("REDIS_POOL_SIZE", "10"),
			MinIdleConns: p.nonNegativeInt("REDIS_MIN_IDLE_CONNS", "2"),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", "5s"),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", "3s"),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", "3s"),
		},
		NATS: NATSConfig{
			Enabled: p.bool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    p.bool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:           p.bool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: p.positiveInt("RATE_LIMIT_PER_MINUTE", "600"),
			Burst:             p.positiveInt("RATE_LIMIT_BURST", "50"),
		},
	}

	if err := p.err(); err != nil {
		return nil, err
	}

	if cfg.Database.URL != "" {
		if _, err := url.Parse(cfg.Database.URL); err != nil {
			return nil, invalid("DATABASE_URL", err)
		}
	}

	if cfg.Log.FileEnabled {
		if err := checkLogDir(cfg.Log.Dir); err != nil {
			return nil, invalid("LOG_DIR", err)
		}
		if strings.ContainsRune(cfg.Log.File, os.PathSeparator) || cfg.Log.File == "" {
			return nil, invalid("LOG_FILE", fmt.Errorf("must be a plain file name, got %q", cfg.Log.File))
		}
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, invalid("AUTH_BEARER_TOKEN", errors.New("required when AUTH_ENABLED=true"))
	}

	return cfg, nil
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the
// DB_* variables.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// checkLogDir rejects a path that exists and is not a directory. A missing
// directory is fine: the file sink creates it.
func checkLogDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("must not be empty")
	}
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", dir)
	}
	return nil
}

// parser collects the first validation error so Load reads top to bottom.
type parser struct {
	first error
}

func (p *parser) fail(key string, err error) {
	if p.first == nil {
		p.first = invalid(key, err)
	}
}

func (p *parser) err() error {
	return p.first
}

func (p *parser) duration(key, def string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if d <= 0 {
		p.fail(key, fmt.Errorf("must be positive, got %s", d))
	}
	return d
}

func (p *parser) positiveInt(key, def string) int {
	n, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if n <= 0 {
		p.fail(key, fmt.Errorf("must be positive, got %d", n))
	}
	return n
}

func (p *parser) nonNegativeInt(key, def string) int {
	n, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if n < 0 {
		p.fail(key, fmt.Errorf("must not be negative, got %d", n))
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}

func (p *parser) level(key, def string) logger.Level {
	l, err := logger.ParseLevel(getEnv(key, def))
	if err != nil {
		p.fail(key, err)
	}
	return l
}

func (p *parser) schedule(key, def string) string {
	spec := getEnv(key, def)
	if _, err := cron.ParseStandard(spec); err != nil {
		p.fail(key, err)
	}
	return spec
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
