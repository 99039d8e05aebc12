// Package config provides configuration for the case tutor service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend kinds selectable at startup. Exactly one strategy is active
// per deployment; call sites never branch on the kind.
const (
	BackendGemini   = "gemini"
	BackendRelay    = "relay"
	BackendMedGemma = "medgemma"
	BackendMock     = "mock"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds the service configuration. Values are read by viper from
// an optional yaml file and from ESMERALDA_* environment variables.
type Config struct {
	HTTPPort int           `mapstructure:"http_port"`
	Log      LogConfig     `mapstructure:"log"`
	Store    StoreConfig   `mapstructure:"store"`
	Backend  BackendConfig `mapstructure:"backend"`
}

// LogConfig stores logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig stores persistence settings.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// BackendConfig selects and parameterizes the active backend strategy.
type BackendConfig struct {
	Kind    string        `mapstructure:"kind"`
	Timeout time.Duration `mapstructure:"timeout"`

	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Relay    RelayConfig    `mapstructure:"relay"`
	MedGemma MedGemmaConfig `mapstructure:"medgemma"`
}

// GeminiConfig configures the direct multimodal strategy.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// RelayConfig configures the self-hosted relay strategy.
type RelayConfig struct {
	BaseURL string `mapstructure:"base_url"`
	UserID  string `mapstructure:"user_id"`
}

// MedGemmaConfig configures the captioner-plus-text-model strategy.
type MedGemmaConfig struct {
	Token      string `mapstructure:"token"`
	CaptionURL string `mapstructure:"caption_url"`
	ChatURL    string `mapstructure:"chat_url"`
	Model      string `mapstructure:"model"`
}

// Load reads configuration from the given file (optional) and the
// environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("esmeralda")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("ESMERALDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env and defaults carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("log.level", "info")

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.dsn", "file:esmeralda.db?cache=shared&mode=rwc")

	v.SetDefault("backend.kind", BackendMock)
	v.SetDefault("backend.timeout", "90s")

	// Secrets default to empty so viper binds their env keys.
	v.SetDefault("backend.gemini.api_key", "")
	v.SetDefault("backend.medgemma.token", "")

	v.SetDefault("backend.gemini.model", "gemini-2.5-flash-image")

	v.SetDefault("backend.relay.base_url", "http://localhost:8000")
	v.SetDefault("backend.relay.user_id", "medico_01")

	v.SetDefault("backend.medgemma.caption_url",
		"https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-large")
	v.SetDefault("backend.medgemma.chat_url", "https://router.huggingface.co/v1/chat/completions")
	v.SetDefault("backend.medgemma.model", "google/medgemma-4b-it")
}

func (c *Config) validate() error {
	switch c.Backend.Kind {
	case BackendGemini, BackendRelay, BackendMedGemma, BackendMock:
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
