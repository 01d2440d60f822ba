package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	History   HistoryConfig   `mapstructure:"history" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// SchedulerConfig contains the admission-control settings.
type SchedulerConfig struct {
	// MaxConcurrent bounds the number of simultaneously running jobs.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"required,gte=1"`

	// ShutdownGraceSeconds bounds how long shutdown waits for running
	// workers to tear down.
	ShutdownGraceSeconds int `mapstructure:"shutdown_grace_seconds" validate:"gte=0"`
}

// StorageConfig contains filesystem layout settings.
type StorageConfig struct {
	// DownloadsDir is where job folders with downloaded images live.
	DownloadsDir string `mapstructure:"downloads_dir" validate:"required"`
}

// HistoryConfig selects and configures the history persistence backend.
type HistoryConfig struct {
	// Driver is "file" (single JSON document) or "postgres".
	Driver string `mapstructure:"driver" validate:"required,oneof=file postgres"`

	// FilePath is the history document location for the file driver.
	FilePath string `mapstructure:"file_path"`

	// DatabaseURL is the connection string for the postgres driver.
	DatabaseURL string `mapstructure:"database_url"`
}

// AuthConfig contains the optional operator-authentication settings.
// When Enabled is false the API is open, which is the default for
// local/desktop deployments.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// JWTSecret signs session tokens. Must be at least 32 characters
	// when auth is enabled.
	JWTSecret string `mapstructure:"jwt_secret"`

	// PasswordHash is the bcrypt hash of the operator password.
	PasswordHash string `mapstructure:"password_hash"`

	// TokenLifetimeMinutes is the session token validity period.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes"`
}

// WorkerConfig contains scrape-worker tunables.
type WorkerConfig struct {
	// HTTPTimeoutSeconds bounds each HTTP request made by a worker.
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds" validate:"gte=0"`

	// MaxImages caps how many images a single job downloads.
	MaxImages int `mapstructure:"max_images" validate:"gte=0"`

	// UserAgent is sent on every worker request.
	UserAgent string `mapstructure:"user_agent"`
}
