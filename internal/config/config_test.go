package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdirTemp moves the test into a fresh directory and restores the original
// working directory on cleanup. Load resolves config/ relative to cwd.
func chdirTemp(t *testing.T) string {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	return dir
}

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "dev.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// TestLoad_DefaultsWithoutFile verifies a missing config file yields working
// defaults rather than an error.
func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EndpointURL == "" {
		t.Error("EndpointURL empty, want default endpoint")
	}
	if cfg.RetryMax != 2 {
		t.Errorf("RetryMax = %d, want 2", cfg.RetryMax)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 500ms", cfg.RetryBaseDelay)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m", cfg.CacheTTL)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want in_memory", cfg.CacheBackend)
	}
	if !cfg.AdaptiveTimeout {
		t.Error("AdaptiveTimeout = false, want enabled by default")
	}
}

// TestLoad_FileValues verifies YAML values override the defaults.
func TestLoad_FileValues(t *testing.T) {
	dir := chdirTemp(t)
	writeConfigFile(t, dir, `
endpoint:
  url: "http://localhost:9090/get_weather"
request:
  timeout: "7s"
adaptive_timeout:
  enabled: false
reliability:
  retry_max: 5
  retry_base_delay: "250ms"
cache:
  backend: "in_memory"
  ttl: "30s"
debug:
  addr: "127.0.0.1:6060"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EndpointURL != "http://localhost:9090/get_weather" {
		t.Errorf("EndpointURL = %q, want file value", cfg.EndpointURL)
	}
	if cfg.RequestTimeout != 7*time.Second {
		t.Errorf("RequestTimeout = %v, want 7s", cfg.RequestTimeout)
	}
	if cfg.AdaptiveTimeout {
		t.Error("AdaptiveTimeout = true, want disabled per file")
	}
	if cfg.RetryMax != 5 {
		t.Errorf("RetryMax = %d, want 5", cfg.RetryMax)
	}
	if cfg.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 250ms", cfg.RetryBaseDelay)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s", cfg.CacheTTL)
	}
	if cfg.DebugAddr != "127.0.0.1:6060" {
		t.Errorf("DebugAddr = %q, want file value", cfg.DebugAddr)
	}
}

// TestLoad_EnvOverridesFile verifies env vars take precedence over YAML.
func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	writeConfigFile(t, dir, `
endpoint:
  url: "http://file-value/get_weather"
cache:
  backend: "in_memory"
`)
	t.Setenv("WEATHER_ENDPOINT_URL", "http://env-value/get_weather")
	t.Setenv("CACHE_BACKEND", "memcached")
	t.Setenv("MEMCACHED_ADDRS", "cache1:11211,cache2:11211")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EndpointURL != "http://env-value/get_weather" {
		t.Errorf("EndpointURL = %q, want env value", cfg.EndpointURL)
	}
	if cfg.CacheBackend != "memcached" {
		t.Errorf("CacheBackend = %q, want memcached from env", cfg.CacheBackend)
	}
	if cfg.MemcachedAddrs != "cache1:11211,cache2:11211" {
		t.Errorf("MemcachedAddrs = %q, want env value", cfg.MemcachedAddrs)
	}
}

// TestLoad_InvalidBackendRejected verifies unknown cache backends fail
// validation.
func TestLoad_InvalidBackendRejected(t *testing.T) {
	dir := chdirTemp(t)
	writeConfigFile(t, dir, `
cache:
  backend: "redis"
`)

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want invalid backend rejected")
	}
}

// TestLoad_ZeroRetriesConfigurable verifies retry_max: 0 disables retries
// rather than falling back to the default, while negative values do fall back.
func TestLoad_ZeroRetriesConfigurable(t *testing.T) {
	dir := chdirTemp(t)
	writeConfigFile(t, dir, `
reliability:
  retry_max: 0
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RetryMax != 0 {
		t.Errorf("RetryMax = %d, want 0 (explicitly configured)", cfg.RetryMax)
	}

	writeConfigFile(t, dir, `
reliability:
  retry_max: -3
`)

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RetryMax != 2 {
		t.Errorf("RetryMax = %d, want 2 default for a negative value", cfg.RetryMax)
	}
}

// TestLoad_BadDurationFallsBack verifies unparseable durations fall back to
// defaults instead of erroring.
func TestLoad_BadDurationFallsBack(t *testing.T) {
	dir := chdirTemp(t)
	writeConfigFile(t, dir, `
request:
  timeout: "not-a-duration"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s default fallback", cfg.RequestTimeout)
	}
}
