package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-micro/framework/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func missingEnv(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load(missingEnv(t))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"App.Name", cfg.App.Name, "GoMicro"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"App.Debug", cfg.App.Debug, true},
		{"Registry.Watch", cfg.Registry.Watch, false},
		{"Routing.MatchCache", cfg.Routing.MatchCache, time.Duration(0)},
		{"Throttle.Rate", cfg.Throttle.Rate, 10.0},
		{"Throttle.Burst", cfg.Throttle.Burst, 20},
		{"Auth.AllowAny", cfg.Auth.AllowAny, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.Empty(t, cfg.Registry.Roots)
	assert.Empty(t, cfg.Auth.Tokens)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("REGISTRY_ROOTS", "services,controllers")
	t.Setenv("ROUTING_MATCH_CACHE", "5m")
	t.Setenv("THROTTLE_RATE", "2.5")
	t.Setenv("AUTH_TOKENS", "alpha,beta")
	t.Setenv("AUTH_ALLOW_ANY", "true")

	cfg := config.Load(missingEnv(t))

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, []string{"services", "controllers"}, cfg.Registry.Roots)
	assert.Equal(t, 5*time.Minute, cfg.Routing.MatchCache)
	assert.Equal(t, 2.5, cfg.Throttle.Rate)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Auth.Tokens)
	assert.True(t, cfg.Auth.AllowAny)
}

func TestLoad_AppDebug(t *testing.T) {
	t.Setenv("APP_DEBUG", "false")
	assert.False(t, config.Load(missingEnv(t)).App.Debug)

	t.Setenv("APP_DEBUG", "true")
	assert.True(t, config.Load(missingEnv(t)).App.Debug)
}

func TestLoad_UndecodableFallsBackToDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "Ignored")
	t.Setenv("THROTTLE_BURST", "lots")

	_, err := config.New(config.Options{EnvFiles: []string{missingEnv(t)}})
	assert.Error(t, err)

	cfg := config.Load(missingEnv(t))
	require.NotNil(t, cfg)
	assert.Equal(t, "GoMicro", cfg.App.Name)
	assert.Equal(t, 20, cfg.Throttle.Burst)
}

func TestLoad_DotEnv(t *testing.T) {
	const key = "GOMICRO_DOTENV_PROBE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	env := writeFile(t, ".env", key+"=from-dotenv\n")

	cfg := config.Load(env)
	assert.Equal(t, "from-dotenv", cfg.Settings().String("gomicro.dotenv.probe", ""))
}

// ── Settings file ─────────────────────────────────────────────────────────────

func TestNew_File(t *testing.T) {
	path := writeFile(t, "settings.yaml", `
app:
  name: FromFile
  port: "8080"
routing:
  files: [routes/web.yaml, routes/api.yaml]
features:
  beta: true
  limit: 3
`)
	t.Setenv("APP_PORT", "7000")

	cfg, err := config.New(config.Options{File: path, EnvFiles: []string{missingEnv(t)}})
	require.NoError(t, err)

	assert.Equal(t, "FromFile", cfg.App.Name)
	assert.Equal(t, "7000", cfg.App.Port, "environment wins over the file")
	assert.Equal(t, []string{"routes/web.yaml", "routes/api.yaml"}, cfg.Routing.Files)

	s := cfg.Settings()
	assert.Equal(t, true, s.Get("features.beta", false))
	assert.Equal(t, 3, s.Int("features.limit", 0))
	assert.Contains(t, s.Keys(), "features.beta")
}

func TestNew_MissingFile(t *testing.T) {
	_, err := config.New(config.Options{File: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

// ── Settings ─────────────────────────────────────────────────────────────────

func TestSettings_Get(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "hello")
	s := config.Load(missingEnv(t)).Settings()

	assert.Equal(t, "hello", s.Get("custom.key", "default"))
	assert.Equal(t, "fallback", s.Get("missing.key", "fallback"))
	assert.Equal(t, "GoMicro", s.String("app.name", ""))
}

func TestSettings_Int(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	t.Setenv("BAD_INT", "notanint")
	s := config.Load(missingEnv(t)).Settings()

	assert.Equal(t, 42, s.Int("some.int", 0))
	assert.Equal(t, 99, s.Int("bad.int", 99))
	assert.Equal(t, 7, s.Int("missing.int", 7))
	assert.Equal(t, 20, s.Int("throttle.burst", 0))
}

func TestSettings_Bool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		t.Setenv("BOOL_KEY", val)
		assert.True(t, config.Load(missingEnv(t)).Settings().Bool("bool.key", false), val)
	}

	t.Setenv("BOOL_KEY", "false")
	assert.False(t, config.Load(missingEnv(t)).Settings().Bool("bool.key", true))

	t.Setenv("BOOL_KEY", "notabool")
	assert.True(t, config.Load(missingEnv(t)).Settings().Bool("bool.key", true))
}

func TestSettings_Set(t *testing.T) {
	s := config.Defaults().Settings()
	s.Set("feature.flag", "on")
	assert.Equal(t, "on", s.Get("feature.flag", "off"))
}
