package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Sink      SinkConfig
	Engine    EngineConfig
	HTTP      HTTPConfig
	Producers ProducersConfig
	Logging   LoggingConfig
	Process   ProcessConfig
}

// SinkConfig holds event-sink related configuration.
type SinkConfig struct {
	Host string
	Port int
}

// Addr returns the sink's dial address as "host:port".
func (s SinkConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineConfig holds matching-engine related configuration.
type EngineConfig struct {
	ExpirySeconds int
	DepthTopN     int
}

// HTTPConfig holds depth HTTP server configuration.
type HTTPConfig struct {
	Port int
}

// ProducersConfig holds order-flow simulation configuration.
type ProducersConfig struct {
	WorkersPerInstrument int
	EnableWash           bool
	EnableRing           bool
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// ProcessConfig holds process-lifecycle configuration.
type ProcessConfig struct {
	PIDFile string
}

// LoadConfig loads configuration from environment variables, with a .env
// file loaded first if present (ignored if missing).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Sink:      loadSinkConfig(),
		Engine:    loadEngineConfig(),
		HTTP:      loadHTTPConfig(),
		Producers: loadProducersConfig(),
		Logging:   loadLoggingConfig(),
		Process:   loadProcessConfig(),
	}, nil
}

func loadSinkConfig() SinkConfig {
	return SinkConfig{
		Host: getEnvString("MATCHCORE_SINK_HOST", "127.0.0.1"),
		Port: getEnvInt("MATCHCORE_SINK_PORT", 9009),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		ExpirySeconds: getEnvInt("MATCHCORE_EXPIRY_SECONDS", 5),
		DepthTopN:     getEnvInt("MATCHCORE_DEPTH_TOPN", 5),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Port: getEnvInt("MATCHCORE_HTTP_PORT", 9100),
	}
}

func loadProducersConfig() ProducersConfig {
	return ProducersConfig{
		WorkersPerInstrument: getEnvInt("MATCHCORE_WORKERS_PER_INSTRUMENT", 20),
		EnableWash:           getEnvBool("MATCHCORE_ENABLE_WASH", true),
		EnableRing:           getEnvBool("MATCHCORE_ENABLE_RING", true),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  getEnvString("MATCHCORE_LOG_LEVEL", "info"),
		Format: getEnvString("MATCHCORE_LOG_FORMAT", "console"),
	}
}

func loadProcessConfig() ProcessConfig {
	return ProcessConfig{
		PIDFile: getEnvString("MATCHCORE_PID_FILE", "/tmp/matching_engine.pid"),
	}
}

// Helper functions for environment variable parsing.

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		switch strings.ToLower(value) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return defaultValue
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	if c.Sink.Port <= 0 || c.Sink.Port > 65535 {
		return fmt.Errorf("invalid sink port: %d", c.Sink.Port)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.Engine.ExpirySeconds <= 0 {
		return fmt.Errorf("invalid expiry seconds: %d", c.Engine.ExpirySeconds)
	}
	if c.Producers.WorkersPerInstrument <= 0 {
		return fmt.Errorf("invalid workers per instrument: %d", c.Producers.WorkersPerInstrument)
	}
	return nil
}

// String returns a safe string representation (without sensitive data).
func (c *Config) String() string {
	return fmt.Sprintf(
		"Sink{%s}, HTTP{:%d}, Engine{ExpirySeconds:%d}, Producers{PerInstrument:%d, Wash:%v, Ring:%v}",
		c.Sink.Addr(), c.HTTP.Port, c.Engine.ExpirySeconds,
		c.Producers.WorkersPerInstrument, c.Producers.EnableWash, c.Producers.EnableRing,
	)
}
