package node

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty home", func(c *Config) { c.Home = "" }, ErrEmptyHome},
		{"empty abci addr", func(c *Config) { c.ABCIAddr = "" }, ErrEmptyABCIAddr},
		{"bad transport", func(c *Config) { c.Transport = "http" }, ErrUnknownTransport},
		{"bad backend", func(c *Config) { c.DBBackend = "rocksdb" }, ErrUnknownBackend},
		{"leveldb without data dir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"metrics without addr", func(c *Config) { c.MetricsAddr = "" }, ErrEmptyMetricsAddr},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, ErrUnknownLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	// memdb 는 data dir 없이도 유효
	cfg := DefaultConfig()
	cfg.DBBackend = BackendMemDB
	cfg.DataDir = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("memdb without data dir should be valid: %v", err)
	}
}

func TestValidateOfflineRejectsMemDB(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateOffline(); err != nil {
		t.Fatalf("goleveldb should be valid offline: %v", err)
	}

	cfg.DBBackend = BackendMemDB
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memdb should be valid for a node: %v", err)
	}
	if err := cfg.ValidateOffline(); !errors.Is(err, ErrEphemeralBackend) {
		t.Errorf("Expected ErrEphemeralBackend, got %v", err)
	}
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	home := t.TempDir()
	content := []byte(`
transport = "grpc"
db_backend = "memdb"
metrics_enabled = false
log_level = "debug"
`)
	if err := os.WriteFile(filepath.Join(home, "volrank.toml"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOLRANK_LOG_FORMAT", "json")

	v := viper.New()
	v.Set("home", home)
	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Home != home {
		t.Errorf("Expected home %s, got %s", home, cfg.Home)
	}
	if cfg.Transport != TransportGRPC {
		t.Errorf("Expected grpc transport, got %s", cfg.Transport)
	}
	if cfg.DBBackend != BackendMemDB {
		t.Errorf("Expected memdb, got %s", cfg.DBBackend)
	}
	if cfg.MetricsEnabled {
		t.Error("Expected metrics disabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("Expected json log format from env, got %s", cfg.LogFormat)
	}
	// 파일에 없는 값은 기본값
	if cfg.ABCIAddr != DefaultConfig().ABCIAddr {
		t.Errorf("Expected default ABCI addr, got %s", cfg.ABCIAddr)
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	v := viper.New()
	v.Set("home", t.TempDir())
	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DBBackend != BackendGoLevelDB {
		t.Errorf("Expected goleveldb, got %s", cfg.DBBackend)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	v := viper.New()
	v.Set("home", t.TempDir())
	v.Set("transport", "carrier-pigeon")
	if _, err := LoadConfig(v); !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("Expected ErrUnknownTransport, got %v", err)
	}
}

func TestDBPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Home = "/var/volrank"
	if got := cfg.DBPath(); got != "/var/volrank/data/state.db" {
		t.Errorf("unexpected relative db path %s", got)
	}
	cfg.DataDir = "/mnt/state"
	if got := cfg.DBPath(); got != "/mnt/state/state.db" {
		t.Errorf("unexpected absolute db path %s", got)
	}
}
