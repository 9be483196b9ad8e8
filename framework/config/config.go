package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config is the central typed configuration struct. Every field can be set
// from a YAML settings file or overridden by an environment variable named
// after its key (app.port → APP_PORT).
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Registry RegistryConfig `mapstructure:"registry"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Auth     AuthConfig     `mapstructure:"auth"`

	settings *Settings
}

type AppConfig struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"` // local | production | testing
	Debug bool   `mapstructure:"debug"`
	URL   string `mapstructure:"url"`
	Port  string `mapstructure:"port"`
	Key   string `mapstructure:"key"`
}

// RegistryConfig lists the manifest directories scanned at boot.
type RegistryConfig struct {
	Roots []string `mapstructure:"roots"`
	Watch bool     `mapstructure:"watch"`
}

// RoutingConfig lists route files loaded at boot.
type RoutingConfig struct {
	Files      []string      `mapstructure:"files"`
	MatchCache time.Duration `mapstructure:"match_cache"` // 0 disables
}

// ThrottleConfig configures the "throttle" middleware.
type ThrottleConfig struct {
	Rate  float64 `mapstructure:"rate"` // requests per second
	Burst int     `mapstructure:"burst"`
}

// AuthConfig configures the "auth" middleware. An empty token list rejects
// every request unless AllowAny is set.
type AuthConfig struct {
	Tokens   []string `mapstructure:"tokens"`
	AllowAny bool     `mapstructure:"allow_any"`
}

// Options controls where Load reads from.
type Options struct {
	File     string   // YAML settings file, optional
	EnvFiles []string // default: .env
}

// defaults is the single source of default values; every key here is also
// reachable through its environment variable.
var defaults = map[string]any{
	"app.name":            "GoMicro",
	"app.env":             "local",
	"app.debug":           true,
	"app.url":             "http://localhost",
	"app.port":            "8000",
	"app.key":             "",
	"registry.roots":      []string{},
	"registry.watch":      false,
	"routing.files":       []string{},
	"routing.match_cache": time.Duration(0),
	"throttle.rate":       10.0,
	"throttle.burst":      20,
	"auth.tokens":         []string{},
	"auth.allow_any":      false,
}

// New reads .env files (missing ones are ignored), then the settings file
// when one is named, then the environment.
func New(opts Options) (*Config, error) {
	files := opts.EnvFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	v := withDefaults()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", opts.File, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.settings = &Settings{v: v}
	return cfg, nil
}

// Load reads .env (if present) and the environment. Call once at bootstrap:
//
//	cfg := config.Load()
//
// When the environment holds a value that cannot be decoded, the defaults are
// returned instead.
func Load(envFiles ...string) *Config {
	cfg, err := New(Options{EnvFiles: envFiles})
	if err != nil {
		return Defaults()
	}
	return cfg
}

// Defaults returns the configuration with no file or environment applied.
func Defaults() *Config {
	v := withDefaults()
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.settings = &Settings{v: v}
	return cfg
}

// Settings returns the raw key/value view behind the typed struct.
func (c *Config) Settings() *Settings {
	if c.settings == nil {
		c.settings = &Settings{v: withDefaults()}
	}
	return c.settings
}

// ── Settings ──────────────────────────────────────────────────────────────────

// Settings exposes configuration by dotted key, including keys the typed
// struct does not know about.
type Settings struct {
	v *viper.Viper
}

// Get returns the value stored under key, or fallback when it is unset.
func (s *Settings) Get(key string, fallback any) any {
	if !s.v.IsSet(key) {
		return fallback
	}
	return s.v.Get(key)
}

// String returns a string value.
func (s *Settings) String(key, fallback string) string {
	if !s.v.IsSet(key) {
		return fallback
	}
	return s.v.GetString(key)
}

// Int returns an int value, or fallback when the value is unset or not a number.
func (s *Settings) Int(key string, fallback int) int {
	if !s.v.IsSet(key) {
		return fallback
	}
	n, err := cast.ToIntE(s.v.Get(key))
	if err != nil {
		return fallback
	}
	return n
}

// Bool returns a bool value, or fallback when the value is unset or not a bool.
func (s *Settings) Bool(key string, fallback bool) bool {
	if !s.v.IsSet(key) {
		return fallback
	}
	b, err := cast.ToBoolE(s.v.Get(key))
	if err != nil {
		return fallback
	}
	return b
}

// Set overrides a value for the lifetime of the process.
func (s *Settings) Set(key string, value any) { s.v.Set(key, value) }

// Keys returns every known key, sorted.
func (s *Settings) Keys() []string {
	keys := s.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// ── helpers ─────────────────────────────────────────────────────────────────

func withDefaults() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}
