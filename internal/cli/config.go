package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/resolvekit/pkg/cache"
	"github.com/matzehuels/resolvekit/pkg/errors"
)

// configNames are searched, in order, in the working directory when no
// --config flag is given.
var configNames = []string{"resolvekit.toml", "resolvekit.yaml", "resolvekit.yml", ".resolvekit.yaml"}

// envPrefix prefixes every environment override.
const envPrefix = "RESOLVEKIT_"

// Config holds settings shared by all commands. Flags override it.
type Config struct {
	Mode       string       `toml:"mode" yaml:"mode"`
	Conditions []string     `toml:"conditions" yaml:"conditions"`
	Extensions []string     `toml:"extensions" yaml:"extensions"`
	Cache      CacheConfig  `toml:"cache" yaml:"cache"`
	Server     ServerConfig `toml:"server" yaml:"server"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	// Dir overrides the file cache directory.
	Dir string `toml:"dir" yaml:"dir"`

	// TTL is how long results are reused, e.g. "12h".
	TTL string `toml:"ttl" yaml:"ttl"`

	// Redis, when Addr is set, replaces the file cache for "serve" and
	// "cache clear".
	Redis RedisConfig `toml:"redis" yaml:"redis"`
}

// RedisConfig configures the shared server cache.
type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
}

// ServerConfig configures "serve".
type ServerConfig struct {
	Port int `toml:"port" yaml:"port"`
}

// Address returns the HTTP listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// defaultConfig returns the settings used when nothing is configured.
func defaultConfig() *Config {
	return &Config{
		Mode:   "auto",
		Server: ServerConfig{Port: 8080},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In("auto", "cjs", "esm")),
		validation.Field(&c.Conditions, validation.Each(validation.Required)),
		validation.Field(&c.Extensions, validation.Each(validation.Required, validation.By(startsWithDot))),
		validation.Field(&c.Cache),
		validation.Field(&c.Server),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid configuration")
	}
	return nil
}

// Validate checks the cache configuration.
func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.By(isDuration)),
		validation.Field(&c.Redis),
	)
}

// Validate checks the Redis configuration.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DB, validation.Min(0)),
	)
}

// Validate checks the server configuration.
func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// TTLDuration returns the cache TTL, or the package default.
func (c *CacheConfig) TTLDuration() time.Duration {
	if d, err := time.ParseDuration(c.TTL); err == nil && d > 0 {
		return d
	}
	return cache.TTLResolution
}

func startsWithDot(v any) error {
	if s, _ := v.(string); !strings.HasPrefix(s, ".") {
		return fmt.Errorf("must start with \".\"")
	}
	return nil
}

func isDuration(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a duration such as \"12h\"")
	}
	return nil
}

// loadConfig reads .env, then the config file at path (or the first of
// configNames found in the working directory), then applies RESOLVEKIT_*
// environment overrides.
func loadConfig(path string) (*Config, string, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path == "" {
		path = findConfig(".")
	}
	if path != "" {
		if err := decodeConfigFile(path, cfg); err != nil {
			return nil, "", err
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func findConfig(dir string) string {
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func decodeConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return errors.Wrap(errors.ErrCodeParse, err, "parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(errors.ErrCodeParse, err, "parse %s", path)
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "config %s: unsupported format (want .toml or .yaml)", path)
	}
	return nil
}

// applyEnv overrides cfg from RESOLVEKIT_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("MODE"); ok {
		cfg.Mode = v
	}
	if v, ok := get("CONDITIONS"); ok {
		cfg.Conditions = splitList(v)
	}
	if v, ok := get("EXTENSIONS"); ok {
		cfg.Extensions = splitList(v)
	}
	if v, ok := get("CACHE_DIR"); ok {
		cfg.Cache.Dir = v
	}
	if v, ok := get("CACHE_TTL"); ok {
		cfg.Cache.TTL = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		cfg.Cache.Redis.Addr = v
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		cfg.Cache.Redis.Password = v
	}
	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "%sPORT", envPrefix)
		}
		cfg.Server.Port = port
	}
	return nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
