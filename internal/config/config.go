// Package config loads and validates application configuration from the
// environment and optional config files.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Review   ReviewConfig   `mapstructure:"review"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains token verification settings. Token issuance belongs
// to the platform's auth service; this engine only validates bearer tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// OracleConfig contains tutor-oracle integration settings. An empty API key
// disables the remote oracle entirely; the engine then runs on the local
// fallback.
type OracleConfig struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	ModelName      string `mapstructure:"model_name"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// ReviewConfig tunes the flashcard review session composition and the
// daily digest job.
type ReviewConfig struct {
	NewCardsPerSession int    `mapstructure:"new_cards_per_session" validate:"gte=0"`
	DigestTime         string `mapstructure:"digest_time"`
}
