package domain

// ServerConfig holds server-related settings
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// PostgresConfig holds PostgreSQL-specific settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"username"`
	Pass     string `mapstructure:"password"`
	SslMode  string `mapstructure:"ssl_mode"`
}

// DatabaseConfig holds general database settings and nested specific configs
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Path           string `mapstructure:"path"`
	Level          string `mapstructure:"level"`
	MaxFileSize    int    `mapstructure:"max_file_size"`
	MaxBackupCount int    `mapstructure:"max_backup_count"`
}

// ValkeyConfig holds Valkey-specific settings
type ValkeyConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds rate limiting settings for the sync endpoints
type RateLimitConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	WindowSeconds     int    `mapstructure:"window_seconds"`
	ExemptInternalIPs string `mapstructure:"exempt_internal_ips"`
}

// SyncConfig holds tunables of the sync protocol itself
type SyncConfig struct {
	// PageLimit is the change page size used when a pull request does not
	// set a limit, and the ceiling for requests that do.
	PageLimit int `mapstructure:"page_limit"`
	// SignatureBlockSize is the default block size for file signatures.
	SignatureBlockSize int `mapstructure:"signature_block_size"`
	// CursorRetries bounds the optimistic cursor allocation retry loop.
	CursorRetries int `mapstructure:"cursor_retries"`
}

// RetentionConfig holds settings for the scheduled retention sweep
type RetentionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	// HorizonDays is the age past which changes and resolved conflicts are
	// pruned. Pending conflicts are kept regardless of age.
	HorizonDays int `mapstructure:"horizon_days"`
}

// Config holds the application's configuration, mapped from config.toml
type Config struct {
	Version    string // No tag needed, not from config file
	ConfigPath string // No tag needed, internal use

	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	RateLimit RateLimitConfig `mapstructure:"rate_limits"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Retention RetentionConfig `mapstructure:"retention"`
}
