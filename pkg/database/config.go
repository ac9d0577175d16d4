package database

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// PoolConfig holds connection-pool sizing, kept separate from the
// connection parameters in Config so a caller assembling a Config by
// hand (tests, alternate entrypoints) can't forget a pool knob and fall
// back to Go's zero-value pool (unlimited open connections).
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config holds PostgreSQL connection settings plus the pool and broker
// timing knobs deepq's components need.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	Pool PoolConfig

	// AcquireLockTimeout bounds how long a single /acquire request's
	// atomic claim statement (broker.Broker.Acquire, the find-one-and-
	// update over deepq_fishnetjobs) may wait on row-lock contention
	// before giving up. Zero disables the bound, which is what the test
	// harness wants when it builds a Store directly over a pool it
	// already controls.
	AcquireLockTimeout time.Duration
}

// LoadConfigFromEnv loads database configuration from environment variables,
// applying production-ready defaults to anything unset.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("DEEPQ_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEEPQ_DB_PORT: %w", err)
	}

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("DEEPQ_DB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("DEEPQ_DB_MAX_IDLE_CONNS", "10"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("DEEPQ_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEEPQ_DB_CONN_MAX_LIFETIME: %w", err)
	}

	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("DEEPQ_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEEPQ_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	acquireLockTimeout, err := time.ParseDuration(getEnvOrDefault("DEEPQ_DB_ACQUIRE_LOCK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEEPQ_DB_ACQUIRE_LOCK_TIMEOUT: %w", err)
	}

	cfg := Config{
		Host:     getEnvOrDefault("DEEPQ_DB_HOST", "localhost"),
		Port:     port,
		User:     getEnvOrDefault("DEEPQ_DB_USER", "deepq"),
		Password: os.Getenv("DEEPQ_DB_PASSWORD"),
		Database: getEnvOrDefault("DEEPQ_DB_NAME", "deepq"),
		SSLMode:  getEnvOrDefault("DEEPQ_DB_SSLMODE", "disable"),
		Pool: PoolConfig{
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: maxLifetime,
			ConnMaxIdleTime: maxIdleTime,
		},
		AcquireLockTimeout: acquireLockTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("DEEPQ_DB_PASSWORD is required")
	}
	if c.Pool.MaxIdleConns > c.Pool.MaxOpenConns {
		return fmt.Errorf("DEEPQ_DB_MAX_IDLE_CONNS (%d) cannot exceed DEEPQ_DB_MAX_OPEN_CONNS (%d)",
			c.Pool.MaxIdleConns, c.Pool.MaxOpenConns)
	}
	if c.Pool.MaxOpenConns < 1 {
		return fmt.Errorf("DEEPQ_DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.Pool.MaxIdleConns < 0 {
		return fmt.Errorf("DEEPQ_DB_MAX_IDLE_CONNS cannot be negative")
	}
	if c.AcquireLockTimeout < 0 {
		return fmt.Errorf("DEEPQ_DB_ACQUIRE_LOCK_TIMEOUT cannot be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
