// Package config loads certscore settings from the environment and the
// optional scoring reference file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Pipeline PipelineConfig
	OCR      OCRConfig
	Audit    AuditConfig
	Database DatabaseConfig
	Log      LogConfig

	// ReferenceFile overrides the built-in scoring tables when set
	ReferenceFile string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Addr           string
	GRPCHealthAddr string // empty disables the gRPC health service
	MaxUpload      int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ShutdownGrace  time.Duration
}

// PipelineConfig holds page extraction settings
type PipelineConfig struct {
	Workers int
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Timeout   time.Duration
	Language  string
	DPI       int
	Pdftoppm  string
	Tesseract string
}

// AuditConfig selects where accepted tables are written
type AuditConfig struct {
	Dir    string // empty disables auditing
	Format string // csv or xlsx
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string // sqlite or postgres
	DSN             string // empty disables persistence
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// LogConfig configures the slog handler
type LogConfig struct {
	Level  string
	Format string // text or json
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           getEnv("CERTSCORE_ADDR", ":8000"),
			GRPCHealthAddr: getEnv("CERTSCORE_GRPC_HEALTH_ADDR", ""),
			MaxUpload:      getEnvAsInt64("CERTSCORE_MAX_UPLOAD", 20<<20),
			ReadTimeout:    getEnvAsDuration("CERTSCORE_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("CERTSCORE_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownGrace:  getEnvAsDuration("CERTSCORE_SHUTDOWN_GRACE", 10*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers: getEnvAsInt("CERTSCORE_WORKERS", runtime.NumCPU()),
		},
		OCR: OCRConfig{
			Timeout:   getEnvAsDuration("CERTSCORE_OCR_TIMEOUT", 60*time.Second),
			Language:  getEnv("CERTSCORE_OCR_LANG", "eng"),
			DPI:       getEnvAsInt("CERTSCORE_DPI", 300),
			Pdftoppm:  getEnv("CERTSCORE_PDFTOPPM", "pdftoppm"),
			Tesseract: getEnv("CERTSCORE_TESSERACT", "tesseract"),
		},
		Audit: AuditConfig{
			Dir:    getEnv("CERTSCORE_AUDIT_DIR", ""),
			Format: strings.ToLower(getEnv("CERTSCORE_AUDIT_FORMAT", "csv")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("CERTSCORE_DB_DRIVER", "sqlite")),
			DSN:             getEnv("CERTSCORE_DB_DSN", ""),
			MaxConns:        getEnvAsInt32("CERTSCORE_DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("CERTSCORE_DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("CERTSCORE_DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("CERTSCORE_DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("CERTSCORE_DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
		ReferenceFile: getEnv("CERTSCORE_REFERENCE_FILE", ""),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate rejects inconsistent settings
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("CERTSCORE_ADDR is required"))
	}
	if c.Server.MaxUpload <= 0 {
		errs = append(errs, errors.New("CERTSCORE_MAX_UPLOAD must be positive"))
	}
	if c.Pipeline.Workers < 1 {
		errs = append(errs, errors.New("CERTSCORE_WORKERS must be at least 1"))
	}
	if c.OCR.Timeout <= 0 {
		errs = append(errs, errors.New("CERTSCORE_OCR_TIMEOUT must be positive"))
	}
	if c.OCR.DPI < 72 || c.OCR.DPI > 1200 {
		errs = append(errs, fmt.Errorf("CERTSCORE_DPI %d outside [72, 1200]", c.OCR.DPI))
	}
	if c.Audit.Format != "csv" && c.Audit.Format != "xlsx" {
		errs = append(errs, fmt.Errorf("CERTSCORE_AUDIT_FORMAT %q must be csv or xlsx", c.Audit.Format))
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		errs = append(errs, fmt.Errorf("CERTSCORE_DB_DRIVER %q must be sqlite or postgres", c.Database.Driver))
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		errs = append(errs, errors.New("CERTSCORE_DB_DSN is required for postgres"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ParseLevel converts a LOG_LEVEL value to a slog level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds the slog logger described by c
func (c LogConfig) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
