package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	Timezone   string `envconfig:"APP_TIMEZONE" default:"Local"`  // used for "today", date filters and exports
	Log        LogConfig
	HttpServer ServerConfig
	Postgres   PostgresConfig
	Session    SessionConfig
	Auth       AuthConfig
	Uploads    UploadsConfig

	location *time.Location
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string `envconfig:"LOG_LEVEL" default:"info"`       // debug, info, warn, error
	Encoding string `envconfig:"LOG_ENCODING" default:"console"` // console or json
	File     string `envconfig:"LOG_FILE"`                       // optional rotating file sink
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"30s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// PostgresConfig holds PostgreSQL database connection details.
// URL wins over the discrete fields when set.
type PostgresConfig struct {
	URL             string        `envconfig:"DATABASE_URL"`
	Host            string        `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port            string        `envconfig:"POSTGRES_PORT" default:"5432"`
	User            string        `envconfig:"POSTGRES_USER" default:"postgres"`
	Password        string        `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	DBName          string        `envconfig:"POSTGRES_DBNAME" default:"inventario"`
	SSLMode         string        `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m"`
	MigrateOnStart  bool          `envconfig:"MIGRATE_ON_START" default:"true"`
}

// SessionConfig holds cookie session and CSRF settings.
type SessionConfig struct {
	Secret       string `envconfig:"SESSION_SECRET" default:"dev-session-secret-change-me-0123456789"`
	CSRFKey      string `envconfig:"CSRF_KEY" default:"dev-csrf-key-change-me-012345678"`
	CookieSecure bool   `envconfig:"COOKIE_SECURE" default:"false"`
	MaxAge       int    `envconfig:"SESSION_MAX_AGE" default:"28800"` // seconds
}

// AuthConfig holds the single demo credential.
type AuthConfig struct {
	Email    string `envconfig:"DEMO_EMAIL" default:"admin@demo.com"`
	Password string `envconfig:"DEMO_PASSWORD" default:"123456"`
	Name     string `envconfig:"DEMO_NAME" default:"Admin"`
}

// UploadsConfig controls where product images are written.
type UploadsConfig struct {
	Dir      string `envconfig:"UPLOADS_DIR" default:"web/uploads"`
	MaxBytes int64  `envconfig:"UPLOADS_MAX_BYTES" default:"5242880"`
}

// DSN returns the connection string for PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	if pc.URL != "" {
		return pc.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pc.User, pc.Password),
		Host:     pc.Host + ":" + pc.Port,
		Path:     "/" + pc.DBName,
		RawQuery: "sslmode=" + pc.SSLMode,
	}
	return u.String()
}

// Location returns the resolved APP_TIMEZONE.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if len(cfg.Session.CSRFKey) != 32 {
		return nil, fmt.Errorf("CSRF_KEY must be exactly 32 bytes, got %d", len(cfg.Session.CSRFKey))
	}
	return &cfg, nil
}
