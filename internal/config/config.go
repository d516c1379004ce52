package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds lookup-session configuration loaded from YAML and env.
type Config struct {
	EndpointURL string

	RequestTimeout time.Duration

	AdaptiveTimeout  bool
	TimeoutMin       time.Duration
	TimeoutMax       time.Duration
	TimeoutInitial   time.Duration
	TimeoutIdleDecay time.Duration

	RetryMax       int
	RetryBaseDelay time.Duration

	CacheTTL     time.Duration
	CacheBackend string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	StateFile string
	DebugAddr string // "" disables the debug/metrics listener
}

type fileConfig struct {
	Endpoint struct {
		URL string `yaml:"url"`
	} `yaml:"endpoint"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	AdaptiveTimeout struct {
		Enabled   *bool  `yaml:"enabled"`
		Min       string `yaml:"min"`
		Max       string `yaml:"max"`
		Initial   string `yaml:"initial"`
		IdleDecay string `yaml:"idle_decay"`
	} `yaml:"adaptive_timeout"`

	Reliability struct {
		RetryMax       *int   `yaml:"retry_max"`
		RetryBaseDelay string `yaml:"retry_base_delay"`
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	State struct {
		File string `yaml:"file"`
	} `yaml:"state"`

	Debug struct {
		Addr string `yaml:"addr"`
	} `yaml:"debug"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev),
// overlaid with env vars. A missing config file is not an error: the
// defaults describe a working session against the public endpoint.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	var fc fileConfig
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.EndpointURL = strings.TrimSpace(os.Getenv("WEATHER_ENDPOINT_URL"))
	if cfg.EndpointURL == "" {
		cfg.EndpointURL = strings.TrimSpace(fc.Endpoint.URL)
	}
	if cfg.EndpointURL == "" {
		cfg.EndpointURL = "https://geometeo.onrender.com/get_weather"
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 3*time.Second)

	cfg.AdaptiveTimeout = true
	if fc.AdaptiveTimeout.Enabled != nil {
		cfg.AdaptiveTimeout = *fc.AdaptiveTimeout.Enabled
	}
	cfg.TimeoutMin = parseDuration(fc.AdaptiveTimeout.Min, time.Second)
	cfg.TimeoutMax = parseDuration(fc.AdaptiveTimeout.Max, 10*time.Second)
	cfg.TimeoutInitial = parseDuration(fc.AdaptiveTimeout.Initial, 3*time.Second)
	cfg.TimeoutIdleDecay = parseDuration(fc.AdaptiveTimeout.IdleDecay, 10*time.Minute)

	// retry_max: 0 is a valid setting (no retries); only an absent or
	// negative value falls back to the default.
	cfg.RetryMax = 2
	if fc.Reliability.RetryMax != nil && *fc.Reliability.RetryMax >= 0 {
		cfg.RetryMax = *fc.Reliability.RetryMax
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 500*time.Millisecond)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS
	}

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 2*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.StateFile = strings.TrimSpace(fc.State.File)
	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(cwd, ".geometeo-state.json")
	}
	cfg.DebugAddr = strings.TrimSpace(os.Getenv("DEBUG_ADDR"))
	if cfg.DebugAddr == "" {
		cfg.DebugAddr = strings.TrimSpace(fc.Debug.Addr)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request.timeout must be positive")
	}
	if cfg.TimeoutMin > cfg.TimeoutMax {
		return fmt.Errorf("adaptive_timeout.min must not exceed adaptive_timeout.max")
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	return nil
}
