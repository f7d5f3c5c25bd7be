package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the metaforge configuration
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Inspector InspectorConfig `mapstructure:"inspector"`
	Patterns  PatternsConfig  `mapstructure:"patterns"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Client    ClientConfig    `mapstructure:"client"`
}

// LogConfig controls daemon logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds daemon listener settings. Empty addresses disable
// the corresponding listener.
type ServerConfig struct {
	TCPAddr      string `mapstructure:"tcp_addr"`
	SocketPath   string `mapstructure:"socket_path"`
	HTTPAddr     string `mapstructure:"http_addr"`
	Workers      int    `mapstructure:"workers"`
	QueueDepth   int    `mapstructure:"queue_depth"`
	MaxLineBytes int    `mapstructure:"max_line_bytes"`
}

// ProviderConfig selects the metadata store backing the daemon
type ProviderConfig struct {
	// Driver is one of "memory", "postgres", "sqlite"
	Driver string `mapstructure:"driver"`
	// DSN is the connection string for sql drivers
	DSN string `mapstructure:"dsn"`
	// SeedFile optionally preloads the memory driver from a schema file
	SeedFile string `mapstructure:"seed_file"`
}

// CacheConfig selects the type catalog cache backend
type CacheConfig struct {
	// Backend is one of "memory", "redis"
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// InspectorConfig bounds object inspection output
type InspectorConfig struct {
	MaxItems       int `mapstructure:"max_items"`
	MaxIdentifiers int `mapstructure:"max_identifiers"`
	MaxDepth       int `mapstructure:"max_depth"`
}

// PatternsConfig locates the pattern library
type PatternsConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// AuthConfig enables token auth on the HTTP gateway
type AuthConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	AccessKeyHash string        `mapstructure:"access_key_hash"`
	TokenSecret   string        `mapstructure:"token_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

// ClientConfig holds settings for CLI commands that talk to the daemon
type ClientConfig struct {
	// Addr overrides the derived daemon address, e.g. "tcp://127.0.0.1:7171"
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads the configuration. With an explicit path the file must
// exist; otherwise metaforge.yml in the working directory is used when
// present and defaults apply when it is not. Environment variables with
// the METAFORGE_ prefix override file values, e.g. METAFORGE_SERVER_TCP_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults double as the key registry for AutomaticEnv.
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.tcp_addr", "127.0.0.1:7171")
	v.SetDefault("server.socket_path", "")
	v.SetDefault("server.http_addr", "")
	v.SetDefault("server.workers", 8)
	v.SetDefault("server.queue_depth", 64)
	v.SetDefault("server.max_line_bytes", 1<<20)
	v.SetDefault("provider.driver", "memory")
	v.SetDefault("provider.dsn", "")
	v.SetDefault("provider.seed_file", "")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("inspector.max_items", 1000)
	v.SetDefault("inspector.max_identifiers", 50)
	v.SetDefault("inspector.max_depth", 5)
	v.SetDefault("patterns.dir", "patterns")
	v.SetDefault("patterns.watch", false)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.access_key_hash", "")
	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("client.addr", "")
	v.SetDefault("client.timeout", "30s")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("metaforge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// No config file - defaults apply.
		}
	}

	v.SetEnvPrefix("METAFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DialAddr returns the address CLI commands should dial: the explicit
// client.addr when set, otherwise the daemon's own listeners, preferring
// the unix socket over TCP.
func (c *Config) DialAddr() string {
	if c.Client.Addr != "" {
		return c.Client.Addr
	}
	if c.Server.SocketPath != "" {
		return "unix://" + c.Server.SocketPath
	}
	return "tcp://" + c.Server.TCPAddr
}

// DSN returns the provider connection string, letting the conventional
// DATABASE_URL environment variable win over the config file.
func (c *Config) DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return c.Provider.DSN
}

// InProject checks if the current directory is a metaforge project
func InProject() bool {
	if _, err := os.Stat("metaforge.yml"); err == nil {
		return true
	}
	if _, err := os.Stat("metaforge.yaml"); err == nil {
		return true
	}
	return false
}

// ProjectRoot walks up from the working directory looking for
// metaforge.yml, falling back to a patterns directory.
func ProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "metaforge.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "metaforge.yaml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "patterns")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a metaforge project (no metaforge.yml found)")
		}
		dir = parent
	}
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func validateConfig(cfg *Config) error {
	if !logLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got: %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}

	switch cfg.Provider.Driver {
	case "memory":
	case "postgres", "sqlite":
		if cfg.DSN() == "" {
			return fmt.Errorf("provider.dsn is required for the %s driver", cfg.Provider.Driver)
		}
	default:
		return fmt.Errorf("provider.driver must be memory, postgres or sqlite, got: %s", cfg.Provider.Driver)
	}

	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got: %s", cfg.Cache.Backend)
	}

	if cfg.Inspector.MaxItems <= 0 {
		return fmt.Errorf("inspector.max_items must be positive, got: %d", cfg.Inspector.MaxItems)
	}
	if cfg.Inspector.MaxIdentifiers <= 0 {
		return fmt.Errorf("inspector.max_identifiers must be positive, got: %d", cfg.Inspector.MaxIdentifiers)
	}
	if cfg.Inspector.MaxDepth <= 0 {
		return fmt.Errorf("inspector.max_depth must be positive, got: %d", cfg.Inspector.MaxDepth)
	}

	if cfg.Server.TCPAddr == "" && cfg.Server.SocketPath == "" && cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server needs at least one of tcp_addr, socket_path, http_addr")
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.AccessKeyHash == "" {
			return fmt.Errorf("auth.access_key_hash is required when auth is enabled")
		}
		if cfg.Auth.TokenSecret == "" {
			return fmt.Errorf("auth.token_secret is required when auth is enabled")
		}
		if cfg.Auth.TokenTTL <= 0 {
			return fmt.Errorf("auth.token_ttl must be positive, got: %s", cfg.Auth.TokenTTL)
		}
	}

	return nil
}
