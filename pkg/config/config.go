// Package config assembles process-level configuration from environment
// variables, the way cmd/deepq's subcommands need it.
package config

import (
	"fmt"
	"os"

	"github.com/lichess-org/deepq/pkg/database"
)

// Config is the full set of settings any deepq subcommand might need.
// Subcommands only read the fields relevant to them.
type Config struct {
	DB database.Config

	// HTTPHost/HTTPPort are where "serve" binds the worker API.
	HTTPHost string
	HTTPPort string

	// StreamURL and StreamBearerKey locate and authenticate against the
	// upstream review-request feed, for "listen".
	StreamURL       string
	StreamBearerKey string

	// DownstreamURL is where completed reports are POSTed, for "serve"'s
	// aggregator.
	DownstreamURL string
}

// LoadFromEnv reads DEEPQ_DB_* (via database.LoadConfigFromEnv) plus the
// application-level DEEPQ_* variables, applying defaults to anything
// unset that has a sane one.
func LoadFromEnv() (Config, error) {
	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Config{
		DB:              dbCfg,
		HTTPHost:        getEnvOrDefault("DEEPQ_HTTP_HOST", "0.0.0.0"),
		HTTPPort:        getEnvOrDefault("DEEPQ_HTTP_PORT", "9665"),
		StreamURL:       os.Getenv("DEEPQ_STREAM_URL"),
		StreamBearerKey: os.Getenv("DEEPQ_STREAM_BEARER_KEY"),
		DownstreamURL:   os.Getenv("DEEPQ_DOWNSTREAM_URL"),
	}
	return cfg, nil
}

// Addr returns the host:port the worker API should bind.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.HTTPHost, c.HTTPPort)
}

// ValidateForServe checks the settings the "serve" subcommand needs
// beyond the database connection, which database.Config.Validate already
// covers.
func (c Config) ValidateForServe() error {
	if c.DownstreamURL == "" {
		return fmt.Errorf("DEEPQ_DOWNSTREAM_URL is required")
	}
	return nil
}

// ValidateForListen checks the settings the "listen" subcommand needs.
func (c Config) ValidateForListen() error {
	if c.StreamURL == "" {
		return fmt.Errorf("DEEPQ_STREAM_URL is required")
	}
	if c.StreamBearerKey == "" {
		return fmt.Errorf("DEEPQ_STREAM_BEARER_KEY is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
