package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Authorization policies understood by the lifecycle service.
const (
	PolicyAuthenticated = "authenticated"
	PolicySelf          = "self"
)

// Config is built once at process start and handed to every component that
// needs it. Nothing reads the environment after Load returns.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	SecretKey      string        `env:"SECRET_KEY,required"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1440m"`

	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080,http://localhost:3000"`
	EmailCaseInsensitive bool     `env:"EMAIL_CASE_INSENSITIVE" envDefault:"true"`
	AuthzPolicy          string   `env:"AUTHZ_POLICY" envDefault:"authenticated"`

	Database  Database
	Password  Password
	Jobs      Jobs
	Events    Events
	Telemetry Telemetry
}

// Database selects the SQL backend and tunes its pool.
type Database struct {
	Driver   string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"lungsense.db"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	QueryTimeout    time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
}

// Password holds argon2id cost parameters.
type Password struct {
	MemoryKB    uint32 `env:"ARGON2_MEMORY_KB" envDefault:"65536"`
	Time        uint32 `env:"ARGON2_TIME" envDefault:"1"`
	Parallelism uint8  `env:"ARGON2_PARALLELISM" envDefault:"2"`
}

// Jobs configures the Redis-backed background queue. An empty URL disables it.
type Jobs struct {
	RedisURL  string        `env:"REDIS_URL"`
	Queue     string        `env:"JOB_QUEUE" envDefault:"lungsense:jobs"`
	ResultTTL time.Duration `env:"JOB_RESULT_TTL" envDefault:"24h"`
}

// Events configures the lifecycle event publisher. An empty URL disables it.
type Events struct {
	AMQPURL  string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"lungsense.accounts"`
}

// Telemetry configures OTLP trace export. An empty endpoint disables it.
type Telemetry struct {
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"lungsense-auth"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SecretKey) == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be blank"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Name == "" {
			errs = append(errs, errors.New("postgres requires DATABASE_URL or DB_NAME"))
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			errs = append(errs, errors.New("sqlite requires SQLITE_PATH"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver))
	}
	if c.Database.QueryTimeout < 0 {
		errs = append(errs, errors.New("DB_QUERY_TIMEOUT must not be negative"))
	}
	switch c.AuthzPolicy {
	case PolicyAuthenticated, PolicySelf:
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTHZ_POLICY %q", c.AuthzPolicy))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
