package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/matzehuels/resolvekit/pkg/cache"
	"github.com/matzehuels/resolvekit/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaultConfig().Validate() error = %v", err)
	}
	if cfg.Mode != "auto" {
		t.Errorf("Mode = %q, want auto", cfg.Mode)
	}
	if got := cfg.Server.Address(); got != ":8080" {
		t.Errorf("Address() = %q, want :8080", got)
	}
	if got := cfg.Cache.TTLDuration(); got != cache.TTLResolution {
		t.Errorf("TTLDuration() = %v, want %v", got, cache.TTLResolution)
	}
}

func TestDecodeConfigFile(t *testing.T) {
	dir := t.TempDir()
	want := []string{"browser", "import"}

	tests := []struct {
		name    string
		content string
	}{
		{"resolvekit.toml", `
mode = "esm"
conditions = ["browser", "import"]

[cache]
ttl = "2h"

[cache.redis]
addr = "localhost:6379"

[server]
port = 9090
`},
		{"resolvekit.yaml", `
mode: esm
conditions: [browser, import]
cache:
  ttl: 2h
  redis:
    addr: localhost:6379
server:
  port: 9090
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name, tt.content)
			cfg := defaultConfig()
			if err := decodeConfigFile(path, cfg); err != nil {
				t.Fatalf("decodeConfigFile() error = %v", err)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if cfg.Mode != "esm" || !reflect.DeepEqual(cfg.Conditions, want) {
				t.Errorf("mode/conditions = %q %v", cfg.Mode, cfg.Conditions)
			}
			if cfg.Cache.TTLDuration() != 2*time.Hour {
				t.Errorf("TTLDuration() = %v, want 2h", cfg.Cache.TTLDuration())
			}
			if cfg.Cache.Redis.Addr != "localhost:6379" || cfg.Server.Port != 9090 {
				t.Errorf("redis/port = %q %d", cfg.Cache.Redis.Addr, cfg.Server.Port)
			}
		})
	}
}

func TestDecodeConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	bad := writeFile(t, dir, "bad.toml", "mode = ")
	if err := decodeConfigFile(bad, defaultConfig()); !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("bad toml error = %v, want PARSE_ERROR", err)
	}

	ini := writeFile(t, dir, "config.ini", "mode=esm")
	if err := decodeConfigFile(ini, defaultConfig()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ini error = %v, want INVALID_INPUT", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "amd" }},
		{"empty condition", func(c *Config) { c.Conditions = []string{"node", ""} }},
		{"extension without dot", func(c *Config) { c.Extensions = []string{"js"} }},
		{"ttl", func(c *Config) { c.Cache.TTL = "tomorrow" }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"redis db", func(c *Config) { c.Cache.Redis.DB = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Validate() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RESOLVEKIT_MODE":       "cjs",
		"RESOLVEKIT_CONDITIONS": "node, development,,",
		"RESOLVEKIT_EXTENSIONS": ".js,.ts",
		"RESOLVEKIT_CACHE_DIR":  "/tmp/rk",
		"RESOLVEKIT_REDIS_ADDR": "redis:6379",
		"RESOLVEKIT_PORT":       "3000",
		"RESOLVEKIT_CACHE_TTL":  "  ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := defaultConfig()
	cfg.Cache.TTL = "1h"
	if err := applyEnv(cfg, lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if cfg.Mode != "cjs" {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if !reflect.DeepEqual(cfg.Conditions, []string{"node", "development"}) {
		t.Errorf("Conditions = %v", cfg.Conditions)
	}
	if !reflect.DeepEqual(cfg.Extensions, []string{".js", ".ts"}) {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}
	if cfg.Cache.Dir != "/tmp/rk" || cfg.Cache.Redis.Addr != "redis:6379" || cfg.Server.Port != 3000 {
		t.Errorf("cache/redis/port = %q %q %d", cfg.Cache.Dir, cfg.Cache.Redis.Addr, cfg.Server.Port)
	}
	// Blank values do not override.
	if cfg.Cache.TTL != "1h" {
		t.Errorf("TTL = %q, want 1h", cfg.Cache.TTL)
	}

	env = map[string]string{"RESOLVEKIT_PORT": "http"}
	if err := applyEnv(defaultConfig(), lookup); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("applyEnv(bad port) error = %v, want INVALID_INPUT", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "mode: esm\nextensions: [.mjs]\n")
	t.Setenv("RESOLVEKIT_MODE", "cjs")

	cfg, used, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if used != path {
		t.Errorf("loadConfig() path = %q, want %q", used, path)
	}
	// The environment wins over the file.
	if cfg.Mode != "cjs" {
		t.Errorf("Mode = %q, want cjs", cfg.Mode)
	}
	if !reflect.DeepEqual(cfg.Extensions, []string{".mjs"}) {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}

	writeFile(t, dir, "resolvekit.toml", `mode = "esm"`)
	if got := findConfig(dir); got != filepath.Join(dir, "resolvekit.toml") {
		t.Errorf("findConfig() = %q", got)
	}
	if got := findConfig(t.TempDir()); got != "" {
		t.Errorf("findConfig(empty) = %q, want none", got)
	}
}
