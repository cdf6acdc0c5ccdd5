package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/guardrail/internal/review"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 80.0, cfg.Threshold)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, review.DefaultWeights(), cfg.Weights)
	assert.Equal(t, AllGates, cfg.Gates.Names())
	assert.Equal(t, "coverage.xml", cfg.CoverageReport)
	assert.Equal(t, 50, cfg.MaxAnnotations)
	assert.True(t, cfg.Privacy.RedactSecrets)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above 100", func(c *Config) { c.Threshold = 100.5 }},
		{"threshold below 0", func(c *Config) { c.Threshold = -1 }},
		{"negative weight", func(c *Config) { c.Weights.Info = -0.1 }},
		{"unknown format", func(c *Config) { c.Format = "html" }},
		{"negative timeout", func(c *Config) { c.ToolTimeoutSeconds = -5 }},
		{"negative tool budget", func(c *Config) { c.ToolBudgetSeconds = -0.5 }},
		{"negative annotation cap", func(c *Config) { c.MaxAnnotations = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_Boundaries(t *testing.T) {
	cfg := Default()
	cfg.Threshold = 0
	assert.NoError(t, cfg.Validate())
	cfg.Threshold = 100
	assert.NoError(t, cfg.Validate())
}

func TestParseGates(t *testing.T) {
	g, err := ParseGates("lint, Coverage")
	require.NoError(t, err)
	assert.Equal(t, []string{GateLint, GateCoverage}, g.Names())

	g, err = ParseGates("all")
	require.NoError(t, err)
	assert.Equal(t, AllGates, g.Names())

	g, err = ParseGates("")
	require.NoError(t, err)
	assert.Empty(t, g.Names())

	_, err = ParseGates("lint,tests")
	assert.Error(t, err)
}

func TestGatesEnabled(t *testing.T) {
	g := GatesConfig{Security: true}
	assert.True(t, g.Enabled(GateSecurity))
	assert.False(t, g.Enabled(GateLint))
	assert.False(t, g.Enabled("bogus"))
}

func TestLoadFrom_Layers(t *testing.T) {
	t.Setenv("GUARDRAIL_FORMAT", "")
	t.Setenv("GUARDRAIL_THRESHOLD", "")
	dir := t.TempDir()

	user := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(user, []byte(`{"threshold": 70, "format": "json"}`), 0o644))

	project := filepath.Join(dir, ".guardrail.yml")
	yml := "threshold: 90\ngates:\n  lint: true\n  typecheck: false\n  security: true\n  coverage: true\nweights:\n  error: 1\n  warning: 0.5\n  info: 0.1\n"
	require.NoError(t, os.WriteFile(project, []byte(yml), 0o644))

	cfg, err := LoadFrom(user, project, nil)
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.Threshold)
	assert.Equal(t, "json", cfg.Format)
	assert.False(t, cfg.Gates.TypeCheck)
	assert.True(t, cfg.Gates.Lint)
	assert.Equal(t, review.Weights{Error: 1, Warning: 0.5, Info: 0.1}, cfg.Weights)
	// untouched keys keep defaults
	assert.Equal(t, "coverage.xml", cfg.CoverageReport)
}

func TestLoadFrom_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "nope.json"), filepath.Join(dir, "nope.yml"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Threshold, cfg.Threshold)
}

func TestLoadFrom_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
	_, err := LoadFrom(path, "", nil)
	assert.Error(t, err)
}

func TestLoadFrom_EnvThenOverrides(t *testing.T) {
	t.Setenv("GUARDRAIL_THRESHOLD", "65")
	t.Setenv("GUARDRAIL_GATES", "lint,security")
	t.Setenv("GUARDRAIL_WEIGHT_WARNING", "0.25")

	cfg, err := LoadFrom("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 65.0, cfg.Threshold)
	assert.Equal(t, []string{GateLint, GateSecurity}, cfg.Gates.Names())
	assert.Equal(t, 0.25, cfg.Weights.Warning)

	cfg, err = LoadFrom("", "", map[string]string{"threshold": "75", "format": ""})
	require.NoError(t, err)
	assert.Equal(t, 75.0, cfg.Threshold)
	assert.Equal(t, "text", cfg.Format)
}

func TestLoadFrom_BadEnv(t *testing.T) {
	t.Setenv("GUARDRAIL_THRESHOLD", "high")
	_, err := LoadFrom("", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GUARDRAIL_THRESHOLD")
}

func TestLoadFrom_Invalid(t *testing.T) {
	_, err := LoadFrom("", "", map[string]string{"threshold": "150"})
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("GUARDRAIL_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("GUARDRAIL_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("GUARDRAIL_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("GUARDRAIL_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestSetField(t *testing.T) {
	cfg := Default()
	tests := []struct {
		key   string
		value string
	}{
		{"threshold", "85.5"},
		{"gates", "coverage"},
		{"format", "sarif"},
		{"rulesFile", "rules.yml"},
		{"paths", "pkg, app"},
		{"weights.error", "1"},
		{"tools.lint", "ruff check --output-format concise"},
		{"toolTimeoutSeconds", "60"},
		{"toolBudgetSeconds", "2.5"},
		{"testReport", "junit.xml"},
		{"maxAnnotations", "10"},
		{"cache.enabled", "false"},
		{"privacy.redactSecrets", "false"},
	}
	for _, tt := range tests {
		require.NoError(t, SetField(&cfg, tt.key, tt.value), tt.key)
	}

	assert.Equal(t, 85.5, cfg.Threshold)
	assert.Equal(t, []string{GateCoverage}, cfg.Gates.Names())
	assert.Equal(t, "sarif", cfg.Format)
	assert.Equal(t, []string{"pkg", "app"}, cfg.Paths)
	assert.Equal(t, 1.0, cfg.Weights.Error)
	assert.Equal(t, []string{"ruff", "check", "--output-format", "concise"}, cfg.Tools.Lint)
	assert.Equal(t, 60, cfg.ToolTimeoutSeconds)
	assert.Equal(t, 2.5, cfg.ToolBudgetSeconds)
	assert.Equal(t, "junit.xml", cfg.TestReport)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Privacy.RedactSecrets)
}

func TestSetField_Errors(t *testing.T) {
	cfg := Default()
	assert.Error(t, SetField(&cfg, "nonexistent", "value"))
	assert.Error(t, SetField(&cfg, "maxAnnotations", "many"))
	assert.Error(t, SetField(&cfg, "cache.enabled", "maybe"))
	assert.Error(t, SetField(&cfg, "toolBudgetSeconds", "soon"))
	assert.Error(t, SetField(&cfg, "gates", "tests"))
}

func TestSetField_CoversKeys(t *testing.T) {
	values := map[string]string{
		"threshold": "1", "gates": "lint", "weights.error": "1", "weights.warning": "1",
		"weights.info": "1", "toolTimeoutSeconds": "1", "toolBudgetSeconds": "1", "maxAnnotations": "1",
		"cache.enabled": "true", "cache.ttlSeconds": "1", "privacy.redactSecrets": "true",
	}
	for _, key := range Keys {
		cfg := Default()
		v, ok := values[key]
		if !ok {
			v = "x"
		}
		assert.NoError(t, SetField(&cfg, key, v), key)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.json", "guardrail.yaml"} {
		path := filepath.Join(dir, name)
		cfg := Default()
		cfg.Threshold = 42
		require.NoError(t, SaveTo(cfg, path))

		got := Default()
		require.NoError(t, LoadFile(&got, path))
		assert.Equal(t, 42.0, got.Threshold, name)
		assert.Equal(t, cfg.Tools, got.Tools, name)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "guardrail"), dir)
}
