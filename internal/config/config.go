// Package config loads and validates the TOML application configuration,
// following the same Load/LoadWithFallback/Validate shape regardless of
// domain.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`         // HTTP server settings
	ReplayStore   ReplayStoreConfig   `toml:"replay_store"`    // Observed-track packet source
	HistoricStore HistoricStoreConfig `toml:"historic_store"`  // Flight-plan prediction source
	DocumentStore DocumentStoreConfig `toml:"document_store"`  // Fused per-flight document storage
	Pipeline      PipelineConfig      `toml:"pipeline"`        // Ingestion/analytics pipeline knobs
	Logging       LoggingConfig       `toml:"logging"`         // Application logging settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int `toml:"port"`                  // HTTP port for the REST API
	IdleTimeoutSecs int `toml:"idle_timeout_seconds"`   // Maximum duration to wait for the next request when keep-alives are enabled
}

// ReplayStoreConfig points at the external relational store of observed
// radar/ADS-B tracking packets, exposed to this service as an AMQP queue of
// opaque serialized payloads.
type ReplayStoreConfig struct {
	AMQPConnectionString string `toml:"amqp_connection_string"` // AMQP URI for the replay packet queue
	QueueName             string `toml:"queue_name"`            // Queue carrying replay packets
}

// HistoricStoreConfig points at the external relational store of
// flight-plan predictions, addressed by planId.
type HistoricStoreConfig struct {
	DSN string `toml:"dsn"` // Data source name for the historic store client
}

// DocumentStoreConfig configures the three sqlite-backed document
// collections the fused data lives in: flights, predicted flights, and the
// operation audit log.
type DocumentStoreConfig struct {
	FlightsDBPath           string `toml:"flights_db_path"`            // Path to the fused flight documents database
	PredictedFlightsDBPath  string `toml:"predicted_flights_db_path"`  // Path to the predicted flight documents database
	ProcessingHistoryDBPath string `toml:"processing_history_db_path"` // Path to the operation audit log database
}

// PipelineConfig controls the non-structural knobs of the ingestion and
// analytics pipelines.
type PipelineConfig struct {
	AuditRetentionDays int    `toml:"audit_retention_days"`  // Days of operation audit history to keep
	DefaultProcessDate string `toml:"default_process_date"`  // Date used by the oracle-process endpoint when none is supplied
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Legacy location in configs/ folder
		"config.toml",         // Root directory
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration, filling in defaults where the spec
// allows one.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.IdleTimeoutSecs <= 0 {
		c.Server.IdleTimeoutSecs = 120
	}

	if c.ReplayStore.AMQPConnectionString == "" {
		return fmt.Errorf("replay_store.amqp_connection_string is required")
	}
	if c.ReplayStore.QueueName == "" {
		c.ReplayStore.QueueName = "replay-packets"
	}

	if c.HistoricStore.DSN == "" {
		return fmt.Errorf("historic_store.dsn is required")
	}

	if c.DocumentStore.FlightsDBPath == "" {
		return fmt.Errorf("document_store.flights_db_path is required")
	}
	if c.DocumentStore.PredictedFlightsDBPath == "" {
		return fmt.Errorf("document_store.predicted_flights_db_path is required")
	}
	if c.DocumentStore.ProcessingHistoryDBPath == "" {
		return fmt.Errorf("document_store.processing_history_db_path is required")
	}

	if c.Pipeline.AuditRetentionDays <= 0 {
		c.Pipeline.AuditRetentionDays = 90
	}
	if c.Pipeline.DefaultProcessDate == "" {
		return fmt.Errorf("pipeline.default_process_date is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	case "":
		c.Logging.Level = "info"
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	case "":
		c.Logging.Format = "console"
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
