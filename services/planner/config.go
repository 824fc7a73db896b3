// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianStrips/pkg/logging"
	"github.com/AleutianAI/AleutianStrips/services/planner/search"
	"github.com/AleutianAI/AleutianStrips/services/planner/task"
	"github.com/AleutianAI/AleutianStrips/services/planner/telemetry"
)

// Config is the complete planner configuration.
type Config struct {
	// Capacity bounds the symbol table and fact store of each task.
	Capacity CapacityConfig `json:"capacity" yaml:"capacity"`

	// Search sets the default strategy and budgets.
	Search SearchConfig `json:"search" yaml:"search"`

	// Server configures the HTTP surface.
	Server ServerConfig `json:"server" yaml:"server"`

	// Archive configures the result archive.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// Observability configures logging, metrics and tracing.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// CapacityConfig bounds per-task storage. Zero means unbounded.
type CapacityConfig struct {
	MaxSymbols int `json:"max_symbols" yaml:"max_symbols"`
	MaxFacts   int `json:"max_facts" yaml:"max_facts"`
}

// SearchConfig holds search defaults that a request may override.
type SearchConfig struct {
	Strategy      string        `json:"strategy" yaml:"strategy"`
	MaxExpansions int           `json:"max_expansions" yaml:"max_expansions"`
	TimeLimit     time.Duration `json:"time_limit" yaml:"time_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr  string `json:"addr" yaml:"addr"`
	Debug bool   `json:"debug" yaml:"debug"`
}

// ArchiveConfig configures the badger-backed result archive.
type ArchiveConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Path     string `json:"path" yaml:"path"`
	InMemory bool   `json:"in_memory" yaml:"in_memory"`
}

// ObservabilityConfig configures logging, metrics and tracing.
type ObservabilityConfig struct {
	LogLevel       string `json:"log_level" yaml:"log_level"`
	JSON           bool   `json:"json" yaml:"json"`
	LogDir         string `json:"log_dir" yaml:"log_dir"`
	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`

	// TraceExporter is "none", "stdout" or "otlp".
	TraceExporter string `json:"trace_exporter" yaml:"trace_exporter"`

	// MetricExporter routes OTel instruments: "none", "stdout" or
	// "prometheus". Search counters always use the Prometheus registry.
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter"`

	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure bool   `json:"otlp_insecure" yaml:"otlp_insecure"`
}

// DefaultConfig returns the default configuration.
//
// Outputs:
//   - Config: Unbounded capacity, breadth-first search with a 30s time
//     limit, archive disabled.
func DefaultConfig() Config {
	return Config{
		Capacity: CapacityConfig{
			MaxSymbols: 1 << 16,
			MaxFacts:   1 << 20,
		},
		Search: SearchConfig{
			Strategy:      search.BreadthFirst.String(),
			MaxExpansions: 0,
			TimeLimit:     30 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":12230",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    "~/.aleutian/planner/archive",
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterPrometheus,
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
		},
	}
}

// LoadConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - configPath: Path to YAML/JSON config file (optional, can be empty).
//
// Outputs:
//   - Config: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or validation fails.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *Config) {
	// Capacity
	if v := os.Getenv("PLANNER_MAX_SYMBOLS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Capacity.MaxSymbols = i
		}
	}
	if v := os.Getenv("PLANNER_MAX_FACTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Capacity.MaxFacts = i
		}
	}

	// Search
	if v := os.Getenv("PLANNER_STRATEGY"); v != "" {
		config.Search.Strategy = v
	}
	if v := os.Getenv("PLANNER_MAX_EXPANSIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Search.MaxExpansions = i
		}
	}
	if v := os.Getenv("PLANNER_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Search.TimeLimit = d
		}
	}

	// Server
	if v := os.Getenv("PLANNER_ADDR"); v != "" {
		config.Server.Addr = v
	}

	// Archive
	if v := os.Getenv("PLANNER_ARCHIVE_ENABLED"); v != "" {
		config.Archive.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PLANNER_ARCHIVE_PATH"); v != "" {
		config.Archive.Path = v
	}

	// Observability
	if v := os.Getenv("PLANNER_LOG_LEVEL"); v != "" {
		config.Observability.LogLevel = v
	}
	if v := os.Getenv("PLANNER_LOG_JSON"); v != "" {
		config.Observability.JSON = v == "true" || v == "1"
	}
	if v := os.Getenv("PLANNER_TRACE_EXPORTER"); v != "" {
		config.Observability.TraceExporter = v
	}
	if v := os.Getenv("PLANNER_METRIC_EXPORTER"); v != "" {
		config.Observability.MetricExporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		config.Observability.OTLPEndpoint = v
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Capacity.MaxSymbols < 0 {
		return fmt.Errorf("max_symbols must be >= 0")
	}
	if c.Capacity.MaxFacts < 0 {
		return fmt.Errorf("max_facts must be >= 0")
	}
	if _, err := search.ParseStrategy(c.Search.Strategy); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if c.Search.MaxExpansions < 0 {
		return fmt.Errorf("max_expansions must be >= 0")
	}
	if c.Search.TimeLimit < 0 {
		return fmt.Errorf("time_limit must be >= 0")
	}
	if c.Archive.Enabled && !c.Archive.InMemory && c.Archive.Path == "" {
		return fmt.Errorf("archive path required when archive is enabled")
	}
	if _, err := logging.ParseLevel(c.Observability.LogLevel); err != nil {
		return err
	}
	switch c.Observability.TraceExporter {
	case "", telemetry.ExporterNone, telemetry.ExporterStdout:
	case telemetry.ExporterOTLP:
		if c.Observability.OTLPEndpoint == "" {
			return fmt.Errorf("otlp_endpoint required for otlp trace exporter")
		}
	default:
		return fmt.Errorf("trace_exporter: %w: %s", telemetry.ErrUnknownExporter, c.Observability.TraceExporter)
	}
	switch c.Observability.MetricExporter {
	case "", telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterPrometheus:
	default:
		return fmt.Errorf("metric_exporter: %w: %s", telemetry.ErrUnknownExporter, c.Observability.MetricExporter)
	}
	return nil
}

// Limits converts CapacityConfig to loader limits.
func (c CapacityConfig) Limits() task.Limits {
	return task.Limits{MaxSymbols: c.MaxSymbols, MaxFacts: c.MaxFacts}
}

// LoggingConfig converts ObservabilityConfig to a logging.Config for service.
func (c ObservabilityConfig) LoggingConfig(service string) logging.Config {
	level, _ := logging.ParseLevel(c.LogLevel)
	return logging.Config{
		Level:   level,
		LogDir:  c.LogDir,
		Service: service,
		JSON:    c.JSON,
	}
}

// TelemetryConfig converts ObservabilityConfig to a telemetry.Config.
func (c ObservabilityConfig) TelemetryConfig(service string) telemetry.Config {
	return telemetry.Config{
		ServiceName:    service,
		ServiceVersion: ServiceVersion,
		TraceExporter:  c.TraceExporter,
		MetricExporter: c.MetricExporter,
		OTLPEndpoint:   c.OTLPEndpoint,
		OTLPInsecure:   c.OTLPInsecure,
	}
}
