// Package node wires the volrank application into a CometBFT ABCI server.
package node

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Transports accepted by the ABCI server.
const (
	TransportSocket = "socket"
	TransportGRPC   = "grpc"
)

// Store backends.
const (
	BackendGoLevelDB = "goleveldb"
	BackendMemDB     = "memdb"
)

// Log formats.
const (
	LogFormatPlain = "plain"
	LogFormatJSON  = "json"
)

// ConfigFileName is the config file read from the home directory (volrank.toml).
const ConfigFileName = "volrank"

// EnvPrefix prefixes environment overrides, e.g. VOLRANK_ABCI_ADDR.
const EnvPrefix = "VOLRANK"

// Config holds configuration for a volrank node.
type Config struct {
	Home string `mapstructure:"home"`

	// ABCI 서버
	ABCIAddr  string `mapstructure:"abci_addr"`
	Transport string `mapstructure:"transport"` // socket | grpc

	// 저장소
	DBBackend string `mapstructure:"db_backend"` // goleveldb | memdb
	DataDir   string `mapstructure:"data_dir"`   // home 기준 상대 경로 허용

	// Prometheus metrics
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsAddr    string `mapstructure:"metrics_addr"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Home:           ".volrank",
		ABCIAddr:       "tcp://127.0.0.1:26658",
		Transport:      TransportSocket,
		DBBackend:      BackendGoLevelDB,
		DataDir:        "data",
		MetricsEnabled: true,
		MetricsAddr:    "0.0.0.0:26660",
		LogLevel:       "info",
		LogFormat:      LogFormatPlain,
	}
}

// SetDefaults registers DefaultConfig values on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("home", d.Home)
	v.SetDefault("abci_addr", d.ABCIAddr)
	v.SetDefault("transport", d.Transport)
	v.SetDefault("db_backend", d.DBBackend)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("metrics_enabled", d.MetricsEnabled)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// LoadConfig reads defaults, then volrank.toml under home, then VOLRANK_* variables,
// then any flags already bound to v.
func LoadConfig(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(ConfigFileName)
	v.SetConfigType("toml")
	v.AddConfigPath(v.GetString("home"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ValidateOffline checks that state written by one offline command is visible
// to the next one.
func (c *Config) ValidateOffline() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DBBackend == BackendMemDB {
		return ErrEphemeralBackend
	}
	return nil
}

// DBPath returns the leveldb directory.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.DataDir) {
		return filepath.Join(c.DataDir, "state.db")
	}
	return filepath.Join(c.Home, c.DataDir, "state.db")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Home == "" {
		return ErrEmptyHome
	}
	if c.ABCIAddr == "" {
		return ErrEmptyABCIAddr
	}
	switch c.Transport {
	case TransportSocket, TransportGRPC:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
	switch c.DBBackend {
	case BackendGoLevelDB:
		if c.DataDir == "" {
			return ErrEmptyDataDir
		}
	case BackendMemDB:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.DBBackend)
	}
	if c.MetricsEnabled && c.MetricsAddr == "" {
		return ErrEmptyMetricsAddr
	}
	switch c.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogFormat, c.LogFormat)
	}
	return nil
}

// Custom errors
type configError string

func (e configError) Error() string {
	return string(e)
}

const (
	ErrEmptyHome        = configError("home directory is required")
	ErrEmptyABCIAddr    = configError("ABCI address is required")
	ErrUnknownTransport = configError("transport must be socket or grpc")
	ErrEmptyDataDir     = configError("data directory is required for goleveldb")
	ErrUnknownBackend   = configError("db backend must be goleveldb or memdb")
	ErrEmptyMetricsAddr = configError("metrics address is required when metrics are enabled")
	ErrUnknownLogFormat = configError("log format must be plain or json")
	ErrEphemeralBackend = configError("memdb state is lost when the process exits; offline commands need goleveldb")
)
