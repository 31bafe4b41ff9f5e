package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level transactions.yaml configuration.
type Config struct {
	Server     ServerConfig         `yaml:"server"`
	Database   DatabaseConfig       `yaml:"database"`
	Logging    LoggingConfig        `yaml:"logging"`
	Auth       AuthConfig           `yaml:"auth"`
	ImportDir  string               `yaml:"import_dir"`
	CsvFormats map[string]CsvConfig `yaml:"csv_formats"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "postgres"
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig controls bearer-token authentication of the API.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Required  bool   `yaml:"required"`
}

// Drivers supported by the store package.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads a transactions.yaml file from disk. ${VAR} references are
// expanded from the environment before decoding. Unset keys keep their
// defaults; a file without csv_formats gets the built-in formats.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	cfg.CsvFormats = nil
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.CsvFormats == nil {
		cfg.CsvFormats = DefaultFormats()
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults and the built-in bank formats.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			DSN:      "transactions.db",
			MaxConns: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		ImportDir:  "import",
		CsvFormats: DefaultFormats(),
	}
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Sprintf("database.driver (%q) must be one of: sqlite, postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
	}

	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, "server.max_upload_bytes must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("logging.format (%q) must be one of: text, json", c.Logging.Format))
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.required is true but auth.jwt_secret is empty")
	}

	if len(c.CsvFormats) == 0 {
		errs = append(errs, "csv_formats must define at least one format")
	}
	for _, key := range sortedKeys(c.CsvFormats) {
		for _, p := range c.CsvFormats[key].problems() {
			errs = append(errs, fmt.Sprintf("csv_formats.%s: %s", key, p))
		}
	}

	if len(errs) > 0 {
		return errors.New("validation failed:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a loggable summary with secrets masked.
func (c *Config) String() string {
	secret := ""
	if c.Auth.JWTSecret != "" {
		secret = "[MASKED]"
	}
	return fmt.Sprintf("Config{Server: {Addr: %q}, Database: {Driver: %q, DSN: [MASKED], MaxConns: %d}, "+
		"Logging: {Level: %q, Format: %q}, Auth: {Required: %v, Secret: %q}, Formats: %d}",
		c.Server.Addr, c.Database.Driver, c.Database.MaxConns,
		c.Logging.Level, c.Logging.Format, c.Auth.Required, secret, len(c.CsvFormats))
}
