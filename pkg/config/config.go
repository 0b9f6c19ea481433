// Package config provides the service configuration for nebula-ml.
//
// The configuration is organized into logical sections:
//   - Store: Snapshot backend, directory, codec and database DSN
//   - Cache: Resident model capacity
//   - Server: HTTP listener and timeouts
//   - Logging: Log level, encoding and the per-call debug log directory
//   - Observability: Metrics and tracing
//
// Example usage:
//
//	cfg := config.NewServiceConfig()
//	if err := config.Load("nebula-ml.yaml", cfg); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Store backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// ServiceConfig is the top-level configuration of a nebula-ml process
type ServiceConfig struct {
	// Name identifies the service instance in logs and traces
	Name string `yaml:"name" json:"name"`

	Store         StoreConfig         `yaml:"store" json:"store"`
	Cache         CacheConfig         `yaml:"cache" json:"cache"`
	Server        ServerConfig        `yaml:"server" json:"server"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// StoreConfig selects where model snapshots live
type StoreConfig struct {
	// Backend is file or postgres
	Backend string `yaml:"backend" json:"backend"`
	// Dir holds one <name>.model file per model for the file backend
	Dir string `yaml:"dir" json:"dir"`
	// Codec compresses snapshot bodies (gzip, zstd, lz4, s2, none)
	Codec string `yaml:"codec" json:"codec"`
	// PostgresDSN is the connection string for the postgres backend
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

// CacheConfig bounds the in-memory model cache
type CacheConfig struct {
	Capacity int `yaml:"capacity" json:"capacity"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Listen       string        `yaml:"listen" json:"listen"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// LoggingConfig contains process and debug logging settings
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
	// DebugDir receives nebula-ml-debug-<n>.log files for models with debug=true
	DebugDir string `yaml:"debug_dir" json:"debug_dir"`
}

// ObservabilityConfig contains monitoring settings
type ObservabilityConfig struct {
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// NewServiceConfig creates a ServiceConfig with defaults suitable for a
// single node running against a local model directory.
func NewServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Name: "nebula-ml",
		Store: StoreConfig{
			Backend: BackendFile,
			Dir:     "./models",
			Codec:   "gzip",
		},
		Cache: CacheConfig{
			Capacity: 3,
		},
		Server: ServerConfig{
			Listen:       ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
			DebugDir: "./logs",
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			TracingSampleRate: 1.0,
		},
	}
}

var validCodecs = map[string]bool{
	"gzip": true,
	"zstd": true,
	"lz4":  true,
	"s2":   true,
	"none": true,
}

// Validate validates the configuration for correctness.
// Returns an error if validation fails, nil otherwise.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if !validCodecs[c.Store.Codec] {
		return fmt.Errorf("unknown store codec %q", c.Store.Codec)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be at least 1")
	}
	if c.Logging.DebugDir == "" {
		return fmt.Errorf("logging.debug_dir is required")
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1")
	}
	return nil
}
