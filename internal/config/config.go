// Package config loads writingflow's configuration from
// ~/.config/writingflow/config.yaml and WRITINGFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/writingflow/internal/session"
)

// EnvPrefix prefixes environment overrides, e.g.
// WRITINGFLOW_SESSION_DEFAULT_DURATION=20m.
const EnvPrefix = "WRITINGFLOW"

const (
	ProviderHeuristic = "heuristic"
	ProviderOllama    = "ollama"
)

type Config struct {
	DBPath   string         `mapstructure:"db_path"`
	Session  SessionConfig  `mapstructure:"session"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type SessionConfig struct {
	DefaultDuration     time.Duration `mapstructure:"default_duration"`
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold"`
}

type AnalysisConfig struct {
	Provider string       `mapstructure:"provider"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type OllamaConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File, when set, receives log output in addition to (or, while the TUI
	// owns the terminal, instead of) stderr.
	File string `mapstructure:"file"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBPath: "~/.config/writingflow/writingflow.db",
		Session: SessionConfig{
			DefaultDuration:     session.DefaultDuration,
			InactivityThreshold: 30 * time.Second,
		},
		Analysis: AnalysisConfig{
			Provider: ProviderHeuristic,
			Ollama: OllamaConfig{
				Endpoint: "http://127.0.0.1:11434",
				Model:    "llama3",
				Timeout:  60 * time.Second,
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.config/writingflow/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "writingflow", "config.yaml"), nil
}

// Load reads the configuration at path, or at DefaultPath when path is
// empty. A missing file is created with the defaults first. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefaults(path); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if err := session.ValidateDuration(c.Session.DefaultDuration); err != nil {
		return fmt.Errorf("session.default_duration: %w", err)
	}
	if c.Session.InactivityThreshold <= 0 {
		return fmt.Errorf("session.inactivity_threshold must be positive, got %s", c.Session.InactivityThreshold)
	}
	switch c.Analysis.Provider {
	case ProviderHeuristic:
	case ProviderOllama:
		if c.Analysis.Ollama.Endpoint == "" {
			return errors.New("analysis.ollama.endpoint is required for the ollama provider")
		}
	default:
		return fmt.Errorf("invalid analysis.provider %q (must be %s or %s)",
			c.Analysis.Provider, ProviderHeuristic, ProviderOllama)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("session.default_duration", d.Session.DefaultDuration)
	v.SetDefault("session.inactivity_threshold", d.Session.InactivityThreshold)
	v.SetDefault("analysis.provider", d.Analysis.Provider)
	v.SetDefault("analysis.ollama.endpoint", d.Analysis.Ollama.Endpoint)
	v.SetDefault("analysis.ollama.model", d.Analysis.Ollama.Model)
	v.SetDefault("analysis.ollama.timeout", d.Analysis.Ollama.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// fileConfig is the on-disk shape. Durations are written as strings such
// as "15m0s" so the file stays readable.
type fileConfig struct {
	DBPath  string `yaml:"db_path"`
	Session struct {
		DefaultDuration     string `yaml:"default_duration"`
		InactivityThreshold string `yaml:"inactivity_threshold"`
	} `yaml:"session"`
	Analysis struct {
		Provider string `yaml:"provider"`
		Ollama   struct {
			Endpoint string `yaml:"endpoint"`
			Model    string `yaml:"model"`
			Timeout  string `yaml:"timeout"`
		} `yaml:"ollama"`
	} `yaml:"analysis"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// WriteDefaults writes the default configuration to path, creating the
// directory if needed.
func WriteDefaults(path string) error {
	return Default().WriteFile(path)
}

// WriteFile writes c to path as YAML.
func (c *Config) WriteFile(path string) error {
	var fc fileConfig
	fc.DBPath = c.DBPath
	fc.Session.DefaultDuration = c.Session.DefaultDuration.String()
	fc.Session.InactivityThreshold = c.Session.InactivityThreshold.String()
	fc.Analysis.Provider = c.Analysis.Provider
	fc.Analysis.Ollama.Endpoint = c.Analysis.Ollama.Endpoint
	fc.Analysis.Ollama.Model = c.Analysis.Ollama.Model
	fc.Analysis.Ollama.Timeout = c.Analysis.Ollama.Timeout.String()
	fc.Log.Level = c.Log.Level
	fc.Log.File = c.Log.File
	fc.Metrics.Addr = c.Metrics.Addr

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
