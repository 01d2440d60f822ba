package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional config file and environment
// variables. Environment variables use the PIXFETCH_ prefix with
// underscores for nesting (e.g. PIXFETCH_SERVER_PORT) and take
// precedence over file values. Returns a populated Config or an error
// if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults plus env cover everything.
	}

	v.SetEnvPrefix("PIXFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural constraints plus the cross-field rules the
// struct tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.History.Driver == "postgres" && cfg.History.DatabaseURL == "" {
		return fmt.Errorf("invalid configuration: history.database_url is required for the postgres driver")
	}
	if cfg.History.Driver == "file" && cfg.History.FilePath == "" {
		return fmt.Errorf("invalid configuration: history.file_path is required for the file driver")
	}
	if cfg.Auth.Enabled {
		if len(cfg.Auth.JWTSecret) < 32 {
			return fmt.Errorf("invalid configuration: auth.jwt_secret must be at least 32 characters")
		}
		if cfg.Auth.PasswordHash == "" {
			return fmt.Errorf("invalid configuration: auth.password_hash is required when auth is enabled")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("scheduler.max_concurrent", 2)
	v.SetDefault("scheduler.shutdown_grace_seconds", 10)

	v.SetDefault("storage.downloads_dir", "downloads")

	v.SetDefault("history.driver", "file")
	v.SetDefault("history.file_path", "history.json")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("worker.http_timeout_seconds", 30)
	v.SetDefault("worker.max_images", 200)
	v.SetDefault("worker.user_agent", "pixfetch/1.0")
}
