package config

import (
	"fmt"

	sharedconfig "github.com/bharathbs2003/cinehack/shared/config"
)

// Aliases for shared configuration structures used throughout the API.
type DatabaseConfig = sharedconfig.DatabaseConfig
type MinIOConfig = sharedconfig.MinIOConfig
type RabbitMQConfig = sharedconfig.RabbitMQConfig

// Config holds all configuration for the API service.
type Config struct {
	sharedconfig.BaseConfig
	Server ServerConfig
	Upload UploadConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// UploadConfig bounds incoming video uploads.
type UploadConfig struct {
	MaxSizeMB int64
}

// Load loads the API configuration from environment variables.
func Load() (*Config, error) {
	loader := sharedconfig.NewLoader(
		sharedconfig.WithMinIOPublicFallback(),
	)

	v := loader.Viper()
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("MAX_UPLOAD_MB", 2048)

	baseCfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &Config{
		BaseConfig: *baseCfg,
		Server: ServerConfig{
			Host: v.GetString("API_HOST"),
			Port: v.GetInt("API_PORT"),
		},
		Upload: UploadConfig{
			MaxSizeMB: v.GetInt64("MAX_UPLOAD_MB"),
		},
	}, nil
}
