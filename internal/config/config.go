package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "TRADEDESK"

// DBFileName is the SQLite file created inside the data dir.
const DBFileName = "tradedesk.db"

type Config struct {
	Remote  RemoteConfig `mapstructure:"remote"`
	DataDir string       `mapstructure:"data_dir"`
	KV      KVConfig     `mapstructure:"kv"`
	Prices  PricesConfig `mapstructure:"prices"`
	Log     LogConfig    `mapstructure:"log"`
	Server  ServerConfig `mapstructure:"server"`
	AI      AIConfig     `mapstructure:"ai"`
}

// RemoteConfig selects the remote table strategy when both fields are set.
type RemoteConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

type KVConfig struct {
	Driver        string `mapstructure:"driver"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type PricesConfig struct {
	FeedURL         string        `mapstructure:"feed_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshDelay    time.Duration `mapstructure:"refresh_delay"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type AIConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

// KV drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Load reads configuration from TRADEDESK_* environment variables and, when
// path is not empty, from a YAML file. Environment values win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Hosted table services publish these names in their dashboards.
	_ = v.BindEnv("remote.url", envPrefix+"_REMOTE_URL", "SUPABASE_URL")
	_ = v.BindEnv("remote.key", envPrefix+"_REMOTE_KEY", "SUPABASE_ANON_KEY")

	v.SetDefault("remote.url", "")
	v.SetDefault("remote.key", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("kv.driver", DriverSQLite)
	v.SetDefault("kv.redis_addr", "127.0.0.1:6379")
	v.SetDefault("kv.redis_password", "")
	v.SetDefault("kv.redis_db", 0)
	v.SetDefault("prices.feed_url", "https://min-api.cryptocompare.com/data/pricemulti")
	v.SetDefault("prices.refresh_interval", "15s")
	v.SetDefault("prices.refresh_delay", "500ms")
	v.SetDefault("prices.http_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("ai.provider", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base_url", "")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Remote.URL = strings.TrimSpace(c.Remote.URL)
	c.Remote.Key = strings.TrimSpace(c.Remote.Key)
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.KV.Driver = strings.ToLower(strings.TrimSpace(c.KV.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.KV.Driver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("invalid kv.driver %q (want sqlite, redis or memory)", c.KV.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q (want text or json)", c.Log.Format)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Prices.RefreshInterval <= 0 || c.Prices.RefreshDelay <= 0 || c.Prices.HTTPTimeout <= 0 {
		return errors.New("prices durations must be positive")
	}
	// The schedule ticks in whole seconds.
	if c.Prices.RefreshInterval < time.Second || c.Prices.RefreshInterval%time.Second != 0 {
		return fmt.Errorf("invalid prices.refresh_interval %s (want whole seconds, at least 1s)", c.Prices.RefreshInterval)
	}
	return nil
}

// RemoteEnabled reports whether both remote settings are present.
func (c Config) RemoteEnabled() bool {
	return c.Remote.URL != "" && c.Remote.Key != ""
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ResolveDataDir returns the configured data dir, or the per-OS application
// directory, creating it if needed.
func (c Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		var err error
		dir, err = appDataDir()
		if err != nil {
			return "", err
		}
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func appDataDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "TradeDesk"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "TradeDesk"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "tradedesk"), nil
	}
	return filepath.Join(configDir, "tradedesk"), nil
}
