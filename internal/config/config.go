package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Steam    SteamConfig    `yaml:"steam"`
	Cache    CacheConfig    `yaml:"cache"`
	Resolver ResolverConfig `yaml:"resolver"`

	// Debug enables the /debug cache administration routes.
	Debug bool `yaml:"debug"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "json" for production or "text" for a colorized dev log.
	Format string `yaml:"format"`
}

// SteamConfig holds upstream Steam API configuration
type SteamConfig struct {
	// APIKey authenticates Web API calls; see https://steamcommunity.com/dev/apikey
	APIKey string `yaml:"api_key"`
	// APIBaseURL overrides the Web API endpoint (tests)
	APIBaseURL string `yaml:"api_base_url"`
	// StoreBaseURL overrides the storefront endpoint (tests)
	StoreBaseURL string `yaml:"store_base_url"`
	// RequestTimeout bounds each Web API call
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// CacheConfig holds cache store configuration
type CacheConfig struct {
	// Backend is "redis" (shared, multi-instance) or "memory" (single instance).
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ResolverConfig holds resolver tuning knobs and the kind-specific TTLs
type ResolverConfig struct {
	// ChunkSize is how many app ids one fan-out worker takes at a time.
	ChunkSize int `yaml:"chunk_size"`
	// FetchConcurrency bounds in-flight upstream metadata fetches during a fan-out.
	FetchConcurrency int `yaml:"fetch_concurrency"`
	// AppTimeout bounds each individual upstream app lookup.
	AppTimeout time.Duration `yaml:"app_timeout"`

	UserTTL        time.Duration `yaml:"user_ttl"`
	FriendsTTL     time.Duration `yaml:"friends_ttl"`
	GamesTTL       time.Duration `yaml:"games_ttl"`
	AppTTL         time.Duration `yaml:"app_ttl"`
	AppNegativeTTL time.Duration `yaml:"app_negative_ttl"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	// Steam defaults
	if c.Steam.RequestTimeout == 0 {
		c.Steam.RequestTimeout = 10 * time.Second
	}

	// Cache defaults
	if c.Cache.Backend == "" {
		c.Cache.Backend = "redis"
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.Cache.Redis.PoolSize == 0 {
		c.Cache.Redis.PoolSize = 100
	}
	if c.Cache.Redis.MinIdleConns == 0 {
		c.Cache.Redis.MinIdleConns = 10
	}
	if c.Cache.Redis.DialTimeout == 0 {
		c.Cache.Redis.DialTimeout = 5 * time.Second
	}
	if c.Cache.Redis.ReadTimeout == 0 {
		c.Cache.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Cache.Redis.WriteTimeout == 0 {
		c.Cache.Redis.WriteTimeout = 3 * time.Second
	}

	// Resolver defaults
	if c.Resolver.ChunkSize == 0 {
		c.Resolver.ChunkSize = 20
	}
	if c.Resolver.FetchConcurrency == 0 {
		c.Resolver.FetchConcurrency = 2
	}
	if c.Resolver.AppTimeout == 0 {
		c.Resolver.AppTimeout = 5 * time.Second
	}
	if c.Resolver.UserTTL == 0 {
		c.Resolver.UserTTL = 24 * time.Hour
	}
	if c.Resolver.FriendsTTL == 0 {
		c.Resolver.FriendsTTL = 72 * time.Hour
	}
	if c.Resolver.GamesTTL == 0 {
		c.Resolver.GamesTTL = 72 * time.Hour
	}
	if c.Resolver.AppTTL == 0 {
		c.Resolver.AppTTL = 30 * 24 * time.Hour
	}
	if c.Resolver.AppNegativeTTL == 0 {
		c.Resolver.AppNegativeTTL = 3 * time.Hour
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
