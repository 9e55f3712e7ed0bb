package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// DefaultTolerance is the coincidence tolerance in metres (1 mm).
const DefaultTolerance = 0.001

// Config represents the complete cedx configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Export  ExportConfig  `json:"export" mapstructure:"export"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ExportConfig controls export assembly
type ExportConfig struct {
	// Tolerance is the coincidence window in metres, applied per axis.
	Tolerance float64 `json:"tolerance" mapstructure:"tolerance"`
	// FirstID is the first id handed out in an export session.
	FirstID uint32 `json:"firstId" mapstructure:"firstId"`
	// ContinueIDs starts each export after the highest id previously exported
	// for the same document.
	ContinueIDs bool `json:"continueIds" mapstructure:"continueIds"`
	// DiagnosticLog writes a per-export diagnostic log under the logs directory.
	DiagnosticLog bool `json:"diagnosticLog" mapstructure:"diagnosticLog"`
	// Compress writes package dumps zstd-compressed.
	Compress bool `json:"compress" mapstructure:"compress"`
}

// StorageConfig contains document store settings
type StorageConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	MaxSize    string `json:"maxSize,omitempty" mapstructure:"maxSize"`       // e.g. "10MB"; empty disables rotation
	MaxBackups int    `json:"maxBackups,omitempty" mapstructure:"maxBackups"` // rotated files kept
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Export: ExportConfig{
			Tolerance:     DefaultTolerance,
			FirstID:       1,
			ContinueIDs:   false,
			DiagnosticLog: false,
			Compress:      false,
		},
		Storage: StorageConfig{
			Path: filepath.Join(".cedx", "cedx.db"),
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from <root>/.cedx/config.json.
// Environment variables prefixed CEDX_ override file values
// (CEDX_EXPORT_TOLERANCE, CEDX_LOGGING_LEVEL, ...).
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".cedx"))

	v.SetEnvPrefix("CEDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every field so that env overrides apply even when no
// config file exists.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("export.tolerance", d.Export.Tolerance)
	v.SetDefault("export.firstId", d.Export.FirstID)
	v.SetDefault("export.continueIds", d.Export.ContinueIDs)
	v.SetDefault("export.diagnosticLog", d.Export.DiagnosticLog)
	v.SetDefault("export.compress", d.Export.Compress)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Save writes the configuration to <root>/.cedx/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".cedx")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// StoragePath resolves the database path against root when it is relative.
func (c *Config) StoragePath(root string) string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(root, c.Storage.Path)
}

// ValidTolerance reports whether tol is a finite, non-negative distance.
func ValidTolerance(tol float64) bool {
	return !math.IsNaN(tol) && !math.IsInf(tol, 0) && tol >= 0
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if !ValidTolerance(c.Export.Tolerance) {
		return &ConfigError{Field: "export.tolerance", Message: "must be a finite, non-negative distance in metres"}
	}
	if c.Export.FirstID == 0 {
		return &ConfigError{Field: "export.firstId", Message: "must be at least 1"}
	}
	if c.Storage.Path == "" {
		return &ConfigError{Field: "storage.path", Message: "must not be empty"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be 'human' or 'json'"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
