package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/livetemplate/mint/internal/platform"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Editor.Entry != "App.js" {
		t.Errorf("Editor.Entry = %q, want App.js", cfg.Editor.Entry)
	}
	if got := cfg.Editor.GetPlatform(); got != platform.IOS {
		t.Errorf("GetPlatform() = %v, want ios", got)
	}
	if got := cfg.Editor.GetDebounce(); got != 300*time.Millisecond {
		t.Errorf("GetDebounce() = %v, want 300ms", got)
	}
	if !cfg.Features.Watch || !cfg.Features.Docs || !cfg.Snack.Enabled {
		t.Error("expected watch, docs and snack to be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEditorConfigGetters(t *testing.T) {
	tests := []struct {
		name     string
		editor   EditorConfig
		platform platform.Profile
		debounce time.Duration
		idle     time.Duration
	}{
		{"empty", EditorConfig{}, platform.IOS, 300 * time.Millisecond, time.Hour},
		{"android", EditorConfig{Platform: "Android"}, platform.Android, 300 * time.Millisecond, time.Hour},
		{"unknown platform", EditorConfig{Platform: "web"}, platform.IOS, 300 * time.Millisecond, time.Hour},
		{"custom", EditorConfig{Debounce: "1s", IdleTimeout: "10m"}, platform.IOS, time.Second, 10 * time.Minute},
		{"invalid durations", EditorConfig{Debounce: "soon", IdleTimeout: "-1m"}, platform.IOS, 300 * time.Millisecond, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.editor.GetPlatform(); got != tt.platform {
				t.Errorf("GetPlatform() = %v, want %v", got, tt.platform)
			}
			if got := tt.editor.GetDebounce(); got != tt.debounce {
				t.Errorf("GetDebounce() = %v, want %v", got, tt.debounce)
			}
			if got := tt.editor.GetIdleTimeout(); got != tt.idle {
				t.Errorf("GetIdleTimeout() = %v, want %v", got, tt.idle)
			}
		})
	}
}

func TestSnackConfigGetters(t *testing.T) {
	t.Setenv("SNACK_HOST", "snack.internal")

	cfg := SnackConfig{
		Endpoint: "https://${SNACK_HOST}/save",
		CacheTTL: "0s",
		Retry:    &RetryConfig{MaxRetries: 0, BaseDelay: "50ms"},
	}

	if got := cfg.GetEndpoint(); got != "https://snack.internal/save" {
		t.Errorf("GetEndpoint() = %q", got)
	}
	if got := cfg.GetCacheTTL(); got != 0 {
		t.Errorf("GetCacheTTL() = %v, want 0", got)
	}
	if got := cfg.GetTimeout(); got != 15*time.Second {
		t.Errorf("GetTimeout() = %v, want 15s", got)
	}
	if got := cfg.GetRetryMaxRetries(); got != 0 {
		t.Errorf("GetRetryMaxRetries() = %d, want 0", got)
	}
	if got := cfg.GetRetryBaseDelay(); got != 50*time.Millisecond {
		t.Errorf("GetRetryBaseDelay() = %v, want 50ms", got)
	}
	if got := cfg.GetRetryMaxDelay(); got != 5*time.Second {
		t.Errorf("GetRetryMaxDelay() = %v, want 5s", got)
	}

	if got := (SnackConfig{}).GetRetryMaxRetries(); got != 3 {
		t.Errorf("default GetRetryMaxRetries() = %d, want 3", got)
	}
}

func TestAPIConfigGetters(t *testing.T) {
	var empty APIConfig
	if empty.GetCORSOrigins() != nil {
		t.Error("expected no CORS origins by default")
	}
	if empty.GetRateLimitRPS() != 2 || empty.GetRateLimitBurst() != 5 {
		t.Errorf("default rate limit = %v/%d, want 2/5", empty.GetRateLimitRPS(), empty.GetRateLimitBurst())
	}
	if got := empty.GetMaxTrackedIPs(); got != 10000 {
		t.Errorf("default GetMaxTrackedIPs() = %d, want 10000", got)
	}

	cfg := APIConfig{
		CORS:      &CORSConfig{Origins: []string{"*"}},
		RateLimit: &RateLimitConfig{RequestsPerSecond: 10, Burst: 20, MaxTrackedIPs: 500},
	}
	if got := cfg.GetCORSOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("GetCORSOrigins() = %v", got)
	}
	if cfg.GetRateLimitRPS() != 10 || cfg.GetRateLimitBurst() != 20 {
		t.Errorf("rate limit = %v/%d, want 10/20", cfg.GetRateLimitRPS(), cfg.GetRateLimitBurst())
	}
	if got := cfg.GetMaxTrackedIPs(); got != 500 {
		t.Errorf("GetMaxTrackedIPs() = %d, want 500", got)
	}
}

func TestStorePath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.StorePath("/srv/app"); got != filepath.Join("/srv/app", ".mint", "mint.db") {
		t.Errorf("StorePath() = %q", got)
	}

	cfg.Store.Path = ":memory:"
	if got := cfg.StorePath("/srv/app"); got != ":memory:" {
		t.Errorf("StorePath() = %q, want :memory:", got)
	}

	cfg.Store.Path = "/var/lib/mint.db"
	if got := cfg.StorePath("/srv/app"); got != "/var/lib/mint.db" {
		t.Errorf("StorePath() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad platform", func(c *Config) { c.Editor.Platform = "web" }, "editor.platform"},
		{"bad debounce", func(c *Config) { c.Editor.Debounce = "fast" }, "editor.debounce"},
		{"script url with separator", func(c *Config) { c.Sandbox.BabelURL = "https://cdn.example.com/b.js;x" }, "sandbox.babel_url"},
		{"self hosted script", func(c *Config) { c.Sandbox.ReactURL = "http://localhost:9000/react.js" }, ""},
		{"internal snack endpoint", func(c *Config) { c.Snack.Endpoint = "http://169.254.169.254/save" }, "snack.endpoint"},
		{"bad retry delay", func(c *Config) { c.Snack.Retry = &RetryConfig{MaxDelay: "x"} }, "snack.retry.max_delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir() with no file: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults without a config file, got port %d", cfg.Server.Port)
	}

	yaml := `title: My App
server:
  port: 9000
editor:
  platform: android
  debounce: 500ms
api:
  cors:
    origins: ["http://localhost:3000"]
`
	if err := os.WriteFile(filepath.Join(dir, "mint.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir(): %v", err)
	}
	if cfg.Title != "My App" || cfg.Server.Port != 9000 {
		t.Errorf("got title %q port %d", cfg.Title, cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("unset fields should keep defaults, got host %q", cfg.Server.Host)
	}
	if cfg.Editor.GetPlatform() != platform.Android || cfg.Editor.GetDebounce() != 500*time.Millisecond {
		t.Errorf("editor = %+v", cfg.Editor)
	}
	if cfg.Editor.Entry != "App.js" {
		t.Errorf("Editor.Entry = %q, want default App.js", cfg.Editor.Entry)
	}
}

func TestLoadYmlFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mint.yml"), []byte("server:\n  port: 7000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Load(malformed) = %v", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("editor:\n  platform: windows\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(invalid); err == nil || !strings.Contains(err.Error(), "editor.platform") {
		t.Errorf("Load(invalid) = %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mint.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = 8181
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save(): %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if loaded.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", loaded.Server.Port)
	}
}
