package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dshills/guardrail/internal/review"
)

// ProjectFile is the per-repository config file read from the working directory.
const ProjectFile = ".guardrail.yml"

// Gate names.
const (
	GateLint      = "lint"
	GateTypeCheck = "typecheck"
	GateSecurity  = "security"
	GateCoverage  = "coverage"
)

// AllGates lists the gates in the order their results are merged.
var AllGates = []string{GateLint, GateTypeCheck, GateSecurity, GateCoverage}

// Formats accepted for Config.Format.
var Formats = []string{"text", "json", "markdown", "sarif", "github"}

// Config represents the guardrail configuration. A zero ToolBudgetSeconds
// disables the per-tool performance annotations.
type Config struct {
	Threshold          float64        `json:"threshold" yaml:"threshold"`
	Gates              GatesConfig    `json:"gates" yaml:"gates"`
	Format             string         `json:"format" yaml:"format"`
	Weights            review.Weights `json:"weights" yaml:"weights"`
	RulesFile          string         `json:"rulesFile,omitempty" yaml:"rulesFile,omitempty"`
	Paths              []string       `json:"paths" yaml:"paths"`
	Extensions         []string       `json:"extensions" yaml:"extensions"`
	Exclude            []string       `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Tools              ToolsConfig    `json:"tools" yaml:"tools"`
	CoverageReport     string         `json:"coverageReport" yaml:"coverageReport"`
	TestReport         string         `json:"testReport,omitempty" yaml:"testReport,omitempty"`
	ToolTimeoutSeconds int            `json:"toolTimeoutSeconds" yaml:"toolTimeoutSeconds"`
	ToolBudgetSeconds  float64        `json:"toolBudgetSeconds,omitempty" yaml:"toolBudgetSeconds,omitempty"`
	MaxAnnotations     int            `json:"maxAnnotations" yaml:"maxAnnotations"`
	LogLevel           string         `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Cache              CacheConfig    `json:"cache" yaml:"cache"`
	Privacy            PrivacyConfig  `json:"privacy" yaml:"privacy"`
}

// GatesConfig selects which gates run.
type GatesConfig struct {
	Lint      bool `json:"lint" yaml:"lint"`
	TypeCheck bool `json:"typecheck" yaml:"typecheck"`
	Security  bool `json:"security" yaml:"security"`
	Coverage  bool `json:"coverage" yaml:"coverage"`
}

// Enabled reports whether the named gate is on.
func (g GatesConfig) Enabled(name string) bool {
	switch name {
	case GateLint:
		return g.Lint
	case GateTypeCheck:
		return g.TypeCheck
	case GateSecurity:
		return g.Security
	case GateCoverage:
		return g.Coverage
	default:
		return false
	}
}

// Names returns the enabled gates in merge order.
func (g GatesConfig) Names() []string {
	var out []string
	for _, name := range AllGates {
		if g.Enabled(name) {
			out = append(out, name)
		}
	}
	return out
}

// ParseGates parses a comma-separated gate list such as "lint,coverage".
func ParseGates(s string) (GatesConfig, error) {
	var g GatesConfig
	for _, name := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
		case GateLint:
			g.Lint = true
		case GateTypeCheck:
			g.TypeCheck = true
		case GateSecurity:
			g.Security = true
		case GateCoverage:
			g.Coverage = true
		case "all":
			g = GatesConfig{Lint: true, TypeCheck: true, Security: true, Coverage: true}
		default:
			return GatesConfig{}, fmt.Errorf("unknown gate %q (valid: %s)", name, strings.Join(AllGates, ", "))
		}
	}
	return g, nil
}

// ToolsConfig holds the command line of each analysis tool.
type ToolsConfig struct {
	Lint      []string `json:"lint" yaml:"lint"`
	TypeCheck []string `json:"typecheck" yaml:"typecheck"`
	Security  []string `json:"security" yaml:"security"`
}

// CacheConfig controls caching of tool output.
type CacheConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Dir        string `json:"dir,omitempty" yaml:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds" yaml:"ttlSeconds"`
}

// PrivacyConfig controls redaction of published messages.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets" yaml:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty" yaml:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Threshold:  80.0,
		Gates:      GatesConfig{Lint: true, TypeCheck: true, Security: true, Coverage: true},
		Format:     "text",
		Weights:    review.DefaultWeights(),
		Paths:      []string{"src", "tests"},
		Extensions: []string{".py"},
		Tools: ToolsConfig{
			Lint:      []string{"flake8"},
			TypeCheck: []string{"mypy"},
			Security:  []string{"bandit", "-r", "src", "-x", "tests", "-s", "B101", "-f", "json", "-q"},
		},
		CoverageReport:     "coverage.xml",
		ToolTimeoutSeconds: 300,
		MaxAnnotations:     50,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 3600,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*.pem", "**/*secret*"},
		},
	}
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Threshold < 0 || c.Threshold > 100 {
		errs = append(errs, fmt.Errorf("threshold %.2f must be within [0, 100]", c.Threshold))
	}
	if c.Weights.Error < 0 || c.Weights.Warning < 0 || c.Weights.Info < 0 {
		errs = append(errs, errors.New("weights must not be negative"))
	}
	if !validFormat(c.Format) {
		errs = append(errs, fmt.Errorf("format %q must be one of %s", c.Format, strings.Join(Formats, ", ")))
	}
	if c.ToolTimeoutSeconds < 0 {
		errs = append(errs, errors.New("toolTimeoutSeconds must not be negative"))
	}
	if c.ToolBudgetSeconds < 0 {
		errs = append(errs, errors.New("toolBudgetSeconds must not be negative"))
	}
	if c.MaxAnnotations < 0 {
		errs = append(errs, errors.New("maxAnnotations must not be negative"))
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, errors.New("cache.ttlSeconds must not be negative"))
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, fmt.Errorf("logLevel: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func validFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}

// ConfigDir returns the platform-appropriate config directory for guardrail.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "guardrail"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "guardrail"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "guardrail"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "guardrail"), nil
	default:
		return filepath.Join(home, ".config", "guardrail"), nil
	}
}

// ConfigPath returns the full path to the user config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile reads a config file on top of cfg. Files ending in .yml or .yaml
// are YAML, anything else JSON. Keys absent from the file keep their current
// value. A missing file is not an error.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes the config to the user config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config as JSON or YAML depending on the path extension.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overridden and a missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load builds the effective config by merging:
// defaults <- user file <- project file <- .env/env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	userPath, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return LoadFrom(userPath, ProjectFile, overrides)
}

// LoadFrom is Load with explicit file locations. Either path may be empty.
func LoadFrom(userPath, projectPath string, overrides map[string]string) (Config, error) {
	cfg := Default()
	for _, p := range []string{userPath, projectPath} {
		if p == "" {
			continue
		}
		if err := LoadFile(&cfg, p); err != nil {
			return Config{}, err
		}
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to SetField keys.
var envKeys = []struct {
	env string
	key string
}{
	{"GUARDRAIL_THRESHOLD", "threshold"},
	{"GUARDRAIL_GATES", "gates"},
	{"GUARDRAIL_FORMAT", "format"},
	{"GUARDRAIL_RULES_FILE", "rulesFile"},
	{"GUARDRAIL_COVERAGE_REPORT", "coverageReport"},
	{"GUARDRAIL_WEIGHT_ERROR", "weights.error"},
	{"GUARDRAIL_WEIGHT_WARNING", "weights.warning"},
	{"GUARDRAIL_WEIGHT_INFO", "weights.info"},
	{"GUARDRAIL_TEST_REPORT", "testReport"},
	{"GUARDRAIL_TOOL_TIMEOUT", "toolTimeoutSeconds"},
	{"GUARDRAIL_TOOL_BUDGET", "toolBudgetSeconds"},
	{"GUARDRAIL_MAX_ANNOTATIONS", "maxAnnotations"},
	{"GUARDRAIL_LOG_LEVEL", "logLevel"},
	{"GUARDRAIL_CACHE_DIR", "cache.dir"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("flag %s: %w", key, err)
		}
	}
	return nil
}

// Keys lists the keys accepted by SetField.
var Keys = []string{
	"threshold", "gates", "format", "rulesFile", "paths", "extensions", "exclude", "coverageReport", "testReport",
	"weights.error", "weights.warning", "weights.info",
	"tools.lint", "tools.typecheck", "tools.security",
	"toolTimeoutSeconds", "toolBudgetSeconds", "maxAnnotations", "logLevel",
	"cache.enabled", "cache.dir", "cache.ttlSeconds", "privacy.redactSecrets", "privacy.redactPaths",
}

// SetField sets a single config field by key name. Returns error if key is unknown
// or the value does not parse.
func SetField(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "threshold":
		cfg.Threshold, err = parseFloat(key, value)
	case "gates":
		cfg.Gates, err = ParseGates(value)
	case "format":
		cfg.Format = value
	case "rulesFile":
		cfg.RulesFile = value
	case "paths":
		cfg.Paths = splitList(value)
	case "extensions":
		cfg.Extensions = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "coverageReport":
		cfg.CoverageReport = value
	case "testReport":
		cfg.TestReport = value
	case "weights.error":
		cfg.Weights.Error, err = parseFloat(key, value)
	case "weights.warning":
		cfg.Weights.Warning, err = parseFloat(key, value)
	case "weights.info":
		cfg.Weights.Info, err = parseFloat(key, value)
	case "tools.lint":
		cfg.Tools.Lint = strings.Fields(value)
	case "tools.typecheck":
		cfg.Tools.TypeCheck = strings.Fields(value)
	case "tools.security":
		cfg.Tools.Security = strings.Fields(value)
	case "toolTimeoutSeconds":
		cfg.ToolTimeoutSeconds, err = parseInt(key, value)
	case "toolBudgetSeconds":
		cfg.ToolBudgetSeconds, err = parseFloat(key, value)
	case "maxAnnotations":
		cfg.MaxAnnotations, err = parseInt(key, value)
	case "logLevel":
		cfg.LogLevel = value
	case "cache.enabled":
		cfg.Cache.Enabled, err = parseBool(key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		cfg.Cache.TTLSeconds, err = parseInt(key, value)
	case "privacy.redactSecrets":
		cfg.Privacy.RedactSecrets, err = parseBool(key, value)
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return err
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
