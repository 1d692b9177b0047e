// Package config loads stateport settings from the environment.
// Defaults are applied for unset values and the result is validated once at
// startup so a misconfigured deployment fails before it accepts traffic.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Auth     AuthConfig
	Session  SessionConfig
	Logging  LoggingConfig
	Archive  ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading the request, including the uploaded workbook (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout bounds writing the response, including export downloads (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is how long shutdown waits for in-flight imports (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// MigrateOnStart applies the embedded schema when the server boots (default: true)
	MigrateOnStart bool `env:"DB_MIGRATE_ON_START" default:"true"`
}

// ImportConfig holds the limits and policy of the workbook import pipeline.
type ImportConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 20 MiB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	// MaxRows caps data rows summed across recognized sheets (default: 10000)
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"10000"`

	// ScanPrefixBytes is how much of the raw file the content scanner reads (default: 100 KB)
	ScanPrefixBytes int `env:"IMPORT_SCAN_PREFIX_BYTES" default:"102400"`

	// UnzipSizeLimit bounds total decompressed size of an xlsx container (default: 256 MiB)
	UnzipSizeLimit int64 `env:"IMPORT_UNZIP_SIZE_LIMIT" default:"268435456"`

	// QuotaMax is the number of imports an admin may run per QuotaWindow (default: 5)
	QuotaMax int `env:"IMPORT_QUOTA_MAX" default:"5"`

	QuotaWindow time.Duration `env:"IMPORT_QUOTA_WINDOW" default:"1h"`

	// MaxConcurrent is the number of imports processed at once (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long an import waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// AdminRowPolicy decides what happens to rows that grant the admin role
	// to an account that is not already an admin: allow, demote or reject.
	AdminRowPolicy string `env:"IMPORT_ADMIN_ROW_POLICY" default:"allow"`

	// AllowedOrigins lists Origin/Referer prefixes of the admin console
	AllowedOrigins []string `env:"IMPORT_ALLOWED_ORIGINS"`

	// AllowDevOrigins accepts http://localhost and loopback origins (default: true)
	AllowDevOrigins bool `env:"IMPORT_ALLOW_DEV_ORIGINS" default:"true"`
}

// RateLimitConfig holds per-IP HTTP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained per-IP rate (default: 60)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`

	// Burst is the per-IP burst size (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// AuthConfig configures verification of admin console tokens.
type AuthConfig struct {
	// JWTSecret is the HMAC key tokens are signed with. Required by the server.
	JWTSecret string `env:"AUTH_JWT_SECRET" envAlt:"JWT_SECRET"`

	// Issuer, when set, must match the token's iss claim
	Issuer string `env:"AUTH_JWT_ISSUER"`

	// CookieName is consulted when no Authorization header is sent
	CookieName string `env:"AUTH_COOKIE_NAME" default:"admin_token"`
}

// SessionConfig selects where per-admin import counters live.
type SessionConfig struct {
	// Backend is "memory" or "redis" (default: memory)
	Backend string `env:"SESSION_BACKEND" default:"memory"`

	RedisURL string `env:"REDIS_URL"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ArchiveConfig controls scheduled snapshot backups.
type ArchiveConfig struct {
	// Backend is "none", "s3" or "gcs" (default: none)
	Backend string `env:"ARCHIVE_BACKEND" default:"none"`

	Bucket string `env:"ARCHIVE_BUCKET"`
	Prefix string `env:"ARCHIVE_PREFIX" default:"stateport/"`

	// Region and Endpoint apply to the s3 backend only
	Region   string `env:"ARCHIVE_REGION" envAlt:"AWS_REGION"`
	Endpoint string `env:"ARCHIVE_ENDPOINT"`

	// Interval between scheduled snapshots; zero disables the scheduler
	Interval time.Duration `env:"ARCHIVE_INTERVAL" default:"0s"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
