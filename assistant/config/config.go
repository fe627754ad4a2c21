// Package config provides configuration for the assistant.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/xiaot623/gogo/assistant/internal/dialogue"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config holds the assistant configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	LLM       LLMConfig       `koanf:"llm"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Location  LocationConfig  `koanf:"location"`
	Dialogue  DialogueConfig  `koanf:"dialogue"`
	Ranking   RankingConfig   `koanf:"ranking"`
	Policy    PolicyConfig    `koanf:"policy"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP and websocket settings. ListenTimeout replaces the
// capture window for websocket clients when positive.
type ServerConfig struct {
	HTTPPort        int           `koanf:"http_port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	SessionTimeout  time.Duration `koanf:"session_timeout" validate:"gte=0"`
	ListenTimeout   time.Duration `koanf:"listen_timeout" validate:"gte=0"`
	VoiceAPIKey     string        `koanf:"voice_api_key"`
}

// StorageConfig locates the persisted state.
type StorageConfig struct {
	DatabaseURL     string `koanf:"database_url" validate:"required"`
	PreferencesPath string `koanf:"preferences_path" validate:"required"`
	FeedbackPath    string `koanf:"feedback_path" validate:"required"`
}

// LLMConfig configures the chat-completions provider.
type LLMConfig struct {
	Mode        string        `koanf:"mode" validate:"oneof=mock openai"`
	BaseURL     string        `koanf:"base_url" validate:"omitempty,url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model" validate:"required"`
	IntentModel string        `koanf:"intent_model"`
	Temperature float64       `koanf:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `koanf:"max_tokens" validate:"gt=0"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SourceConfig is one point-of-interest provider.
type SourceConfig struct {
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	APIKey  string `koanf:"api_key"`
}

// RetrievalConfig configures candidate retrieval.
type RetrievalConfig struct {
	Mode              string        `koanf:"mode" validate:"oneof=live static"`
	StaticPath        string        `koanf:"static_path" validate:"required_if=Mode static"`
	RadiusKm          float64       `koanf:"radius_km" validate:"gt=0"`
	Limit             int           `koanf:"limit" validate:"gt=0"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"gt=0"`
	FailureThreshold  uint32        `koanf:"failure_threshold" validate:"gt=0"`
	OpenTimeout       time.Duration `koanf:"open_timeout" validate:"gt=0"`
	OpenChargeMap     SourceConfig  `koanf:"openchargemap"`
	TomTom            SourceConfig  `koanf:"tomtom"`
	Places            SourceConfig  `koanf:"places"`
}

// LocationConfig selects how the vehicle position is found.
type LocationConfig struct {
	Mode         string        `koanf:"mode" validate:"oneof=static ipinfo address"`
	Latitude     float64       `koanf:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64       `koanf:"longitude" validate:"gte=-180,lte=180"`
	Address      string        `koanf:"address" validate:"required_if=Mode address"`
	IPInfoURL    string        `koanf:"ipinfo_url" validate:"omitempty,url"`
	NominatimURL string        `koanf:"nominatim_url" validate:"omitempty,url"`
	UserAgent    string        `koanf:"user_agent"`
	CacheTTL     time.Duration `koanf:"cache_ttl" validate:"gt=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
}

// DialogueConfig tunes the conversation controller.
type DialogueConfig struct {
	CaptureDuration time.Duration    `koanf:"capture_duration" validate:"gt=0"`
	RatingAttempts  int              `koanf:"rating_attempts" validate:"gt=0"`
	UseFeedback     bool             `koanf:"use_feedback"`
	MaxWords        int              `koanf:"max_words" validate:"gt=0"`
	Aliases         dialogue.Aliases `koanf:"aliases"`
}

// RankingConfig tunes the scoring strategies.
type RankingConfig struct {
	HistoryBonus float64 `koanf:"history_bonus" validate:"gte=0"`
}

// PolicyConfig configures the admission policy.
type PolicyConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	Format     string `koanf:"format" validate:"oneof=json console"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ShutdownTimeout: 10 * time.Second,
			SessionTimeout:  30 * time.Minute,
			ListenTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			DatabaseURL:     "file:assistant.db?cache=shared&mode=rwc",
			PreferencesPath: "data/user_preferences.json",
			FeedbackPath:    "data/feedback_log.json",
		},
		LLM: LLMConfig{
			Mode:        "mock",
			BaseURL:     "https://openrouter.ai/api",
			Model:       "openai/gpt-4o-mini",
			Temperature: 0.6,
			MaxTokens:   150,
			Timeout:     30 * time.Second,
		},
		Retrieval: RetrievalConfig{
			Mode:              "live",
			RadiusKm:          10,
			Limit:             10,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			FailureThreshold:  3,
			OpenTimeout:       30 * time.Second,
		},
		Location: LocationConfig{
			Mode:      "ipinfo",
			UserAgent: "gogo-assistant",
			CacheTTL:  10 * time.Minute,
			Timeout:   5 * time.Second,
		},
		Dialogue: DialogueConfig{
			CaptureDuration: 5 * time.Second,
			RatingAttempts:  3,
			MaxWords:        60,
			Aliases:         dialogue.DefaultAliases(),
		},
		Policy: PolicyConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load reads the configuration from path, or from the default search paths
// when path is empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.LLM.Mode == "openai" && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required in openai mode")
	}
	if len(c.Dialogue.Aliases.Ordinals) == 0 {
		return fmt.Errorf("dialogue.aliases.ordinals must name at least one position")
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps flat environment variable names onto config keys.
var envMappings = map[string]string{
	"http_port":             "server.http_port",
	"database_url":          "storage.database_url",
	"preferences_path":      "storage.preferences_path",
	"feedback_path":         "storage.feedback_path",
	"llm_mode":              "llm.mode",
	"llm_base_url":          "llm.base_url",
	"llm_api_key":           "llm.api_key",
	"openrouter_api_key":    "llm.api_key",
	"llm_model":             "llm.model",
	"retrieval_mode":        "retrieval.mode",
	"openchargemap_api_key": "retrieval.openchargemap.api_key",
	"tomtom_api_key":        "retrieval.tomtom.api_key",
	"google_places_api_key": "retrieval.places.api_key",
	"location_mode":         "location.mode",
	"use_feedback":          "dialogue.use_feedback",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
	"log_file":              "logging.file",
	"voice_api_key":         "server.voice_api_key",
}

// envTransformFunc maps known variables and drops everything else, so
// unrelated process environment never reaches the config tree.
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
