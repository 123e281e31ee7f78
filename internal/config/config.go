package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/security"
)

// Config represents the mint configuration
type Config struct {
	Title    string         `yaml:"title"`
	Server   ServerConfig   `yaml:"server"`
	Editor   EditorConfig   `yaml:"editor"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Snack    SnackConfig    `yaml:"snack"`
	Store    StoreConfig    `yaml:"store"`
	API      APIConfig      `yaml:"api"`
	Features FeaturesConfig `yaml:"features"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// EditorConfig controls the preview sessions
type EditorConfig struct {
	Entry       string `yaml:"entry"`        // File previewed by default (default: App.js)
	Platform    string `yaml:"platform"`     // Initial profile: ios or android (default: ios)
	Debounce    string `yaml:"debounce"`     // Quiet interval before recompiling (default: 300ms)
	IdleTimeout string `yaml:"idle_timeout"` // Lifetime of a detached session (default: 1h)
}

// SandboxConfig locates the browser libraries loaded by preview documents
type SandboxConfig struct {
	ReactURL    string `yaml:"react_url,omitempty"`
	ReactDOMURL string `yaml:"react_dom_url,omitempty"`
	BabelURL    string `yaml:"babel_url,omitempty"`
	// RemoteChrome is a DevTools URL used by `mint check` instead of a
	// locally started browser (supports env var expansion).
	RemoteChrome string `yaml:"remote_chrome,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"` // Headless run limit (default: 20s)
}

// SnackConfig configures publishing to the hosted snack service
type SnackConfig struct {
	Enabled  bool         `yaml:"enabled"`
	Endpoint string       `yaml:"endpoint,omitempty"`  // supports env var expansion
	Timeout  string       `yaml:"timeout,omitempty"`   // Request timeout (default: 15s)
	CacheTTL string       `yaml:"cache_ttl,omitempty"` // Reuse identical snacks (default: 10m, "0" disables)
	Retry    *RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig configures retry behavior for outbound calls
type RetryConfig struct {
	MaxRetries int    `yaml:"max_retries,omitempty"` // Maximum retry attempts (default: 3)
	BaseDelay  string `yaml:"base_delay,omitempty"`  // Initial delay (default: 200ms)
	MaxDelay   string `yaml:"max_delay,omitempty"`   // Maximum delay (default: 5s)
}

// StoreConfig locates the project database
type StoreConfig struct {
	Path    string `yaml:"path"`    // SQLite file, relative to the project dir (default: .mint/mint.db)
	Project string `yaml:"project"` // Project key (default: default)
}

// APIConfig holds REST API configuration
type APIConfig struct {
	CORS      *CORSConfig      `yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// CORSConfig holds CORS configuration for the API
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty"` // Allowed origins (e.g., ["http://localhost:3000", "*"])
}

// RateLimitConfig holds rate limiting configuration for the API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // default: 2
	Burst             int     `yaml:"burst,omitempty"`               // default: 5
	MaxTrackedIPs     int     `yaml:"max_tracked_ips,omitempty"`
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	Watch bool `yaml:"watch"` // Push on-disk edits of the entry file to open editors
	Docs  bool `yaml:"docs"`  // Serve the primitives reference at /docs
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title: "Mint",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Editor: EditorConfig{
			Entry:       "App.js",
			Platform:    string(platform.Default),
			Debounce:    "300ms",
			IdleTimeout: "1h",
		},
		Snack: SnackConfig{
			Enabled: true,
		},
		Store: StoreConfig{
			Path:    filepath.Join(".mint", "mint.db"),
			Project: "default",
		},
		Features: FeaturesConfig{
			Watch: true,
			Docs:  true,
		},
	}
}

// GetPlatform returns the initial profile, falling back to the default.
func (c EditorConfig) GetPlatform() platform.Profile {
	p, err := platform.Parse(c.Platform)
	if err != nil {
		return platform.Default
	}
	return p
}

// GetDebounce returns the debounce interval (default: 300ms)
func (c EditorConfig) GetDebounce() time.Duration {
	return parseDuration(c.Debounce, 300*time.Millisecond)
}

// GetIdleTimeout returns the detached session lifetime (default: 1h)
func (c EditorConfig) GetIdleTimeout() time.Duration {
	return parseDuration(c.IdleTimeout, time.Hour)
}

// GetRemoteChrome returns the DevTools URL with environment variables expanded
func (c SandboxConfig) GetRemoteChrome() string {
	return os.ExpandEnv(c.RemoteChrome)
}

// GetTimeout returns the headless run limit (default: 20s)
func (c SandboxConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 20*time.Second)
}

// GetEndpoint returns the snack endpoint with environment variables expanded
func (c SnackConfig) GetEndpoint() string {
	return os.ExpandEnv(c.Endpoint)
}

// GetTimeout returns the snack request timeout (default: 15s)
func (c SnackConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

// GetCacheTTL returns how long identical snacks are reused (default: 10m)
func (c SnackConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 10*time.Minute)
}

// GetRetryMaxRetries returns the max retries (default: 3, set to 0 to disable retries)
func (c SnackConfig) GetRetryMaxRetries() int {
	if c.Retry == nil || c.Retry.MaxRetries < 0 {
		return 3
	}
	return c.Retry.MaxRetries
}

// GetRetryBaseDelay returns the base delay (default: 200ms)
func (c SnackConfig) GetRetryBaseDelay() time.Duration {
	if c.Retry == nil {
		return 200 * time.Millisecond
	}
	return parseDuration(c.Retry.BaseDelay, 200*time.Millisecond)
}

// GetRetryMaxDelay returns the max delay (default: 5s)
func (c SnackConfig) GetRetryMaxDelay() time.Duration {
	if c.Retry == nil {
		return 5 * time.Second
	}
	return parseDuration(c.Retry.MaxDelay, 5*time.Second)
}

// GetCORSOrigins returns the configured CORS origins, or nil if not configured
func (c APIConfig) GetCORSOrigins() []string {
	if c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 2)
func (c APIConfig) GetRateLimitRPS() float64 {
	if c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 2
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 5)
func (c APIConfig) GetRateLimitBurst() int {
	if c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 5
	}
	return c.RateLimit.Burst
}

// GetMaxTrackedIPs returns how many client IPs the limiter tracks (default: 10000)
func (c APIConfig) GetMaxTrackedIPs() int {
	if c.RateLimit == nil || c.RateLimit.MaxTrackedIPs <= 0 {
		return 10000
	}
	return c.RateLimit.MaxTrackedIPs
}

// StorePath resolves the store path against the project directory.
func (c *Config) StorePath(dir string) string {
	p := c.Store.Path
	if p == "" {
		p = DefaultConfig().Store.Path
	}
	if p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate reports settings that would otherwise silently fall back to
// their defaults.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Editor.Platform != "" {
		if _, err := platform.Parse(c.Editor.Platform); err != nil {
			return fmt.Errorf("editor.platform: %w", err)
		}
	}
	scripts := map[string]string{
		"sandbox.react_url":     c.Sandbox.ReactURL,
		"sandbox.react_dom_url": c.Sandbox.ReactDOMURL,
		"sandbox.babel_url":     c.Sandbox.BabelURL,
	}
	for key, value := range scripts {
		if value == "" {
			continue
		}
		if err := security.ValidateScriptURL(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.Snack.Endpoint != "" {
		if err := security.ValidateHTTPURL(c.Snack.GetEndpoint()); err != nil {
			return fmt.Errorf("snack.endpoint: %w", err)
		}
	}

	durations := map[string]string{
		"editor.debounce":     c.Editor.Debounce,
		"editor.idle_timeout": c.Editor.IdleTimeout,
		"sandbox.timeout":     c.Sandbox.Timeout,
		"snack.timeout":       c.Snack.Timeout,
		"snack.cache_ttl":     c.Snack.CacheTTL,
	}
	if c.Snack.Retry != nil {
		durations["snack.retry.base_delay"] = c.Snack.Retry.BaseDelay
		durations["snack.retry.max_delay"] = c.Snack.Retry.MaxDelay
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", key, value)
		}
	}
	return nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// LoadFromDir looks for mint.yaml, then mint.yml, in the given directory
// If neither is found, returns the default configuration
func LoadFromDir(dir string) (*Config, error) {
	yml := filepath.Join(dir, "mint.yml")
	if _, err := os.Stat(filepath.Join(dir, "mint.yaml")); os.IsNotExist(err) {
		if _, err := os.Stat(yml); err == nil {
			return Load(yml)
		}
	}
	return Load(filepath.Join(dir, "mint.yaml"))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
