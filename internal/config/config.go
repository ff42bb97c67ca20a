package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Store drivers
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	AI        AIConfig        `mapstructure:"ai"`
	Store     StoreConfig     `mapstructure:"store"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Tenant    TenantConfig    `mapstructure:"tenant"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Lark      LarkConfig      `mapstructure:"lark"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig holds the generative AI endpoint configuration. Any
// OpenAI-compatible endpoint works; the default is Gemini's.
type AIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PromptsPath string        `mapstructure:"prompts_path"`
}

// StoreConfig selects the invoice store
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// UploadConfig limits uploaded documents
type UploadConfig struct {
	MaxBytes     int64 `mapstructure:"max_bytes"`
	MaxDimension int   `mapstructure:"max_dimension"`
	JPEGQuality  int   `mapstructure:"jpeg_quality"`
}

// TenantConfig describes the organisation using the dashboard
type TenantConfig struct {
	Name string `mapstructure:"name"`
}

// AssistantConfig holds the fixed transcript texts
type AssistantConfig struct {
	Welcome string `mapstructure:"welcome"`
	Apology string `mapstructure:"apology"`
}

// DashboardConfig holds dashboard data settings
type DashboardConfig struct {
	DueSoonDays int    `mapstructure:"due_soon_days"`
	DatasetPath string `mapstructure:"dataset_path"` // empty uses the built-in dataset
}

// LarkConfig holds Lark notification configuration
type LarkConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	ChatID    string `mapstructure:"chat_id"`
	BaseURL   string `mapstructure:"base_url"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string][]string{
	"ai.api_key":      {"AI_API_KEY", "API_KEY"},
	"ai.base_url":     {"AI_BASE_URL"},
	"ai.model":        {"AI_MODEL"},
	"lark.enabled":    {"LARK_ENABLED"},
	"lark.app_id":     {"LARK_APP_ID"},
	"lark.app_secret": {"LARK_APP_SECRET"},
	"lark.chat_id":    {"LARK_CHAT_ID"},
	"server.port":     {"PORT"},
	"logger.level":    {"LOG_LEVEL"},
}

// Load loads configuration from file, a .env file in the working directory
// and environment variables
func Load(configPath string) (*Config, error) {
	return load(configPath, ".env")
}

func load(configPath, envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	dotenv, err := readDotEnv(envFile)
	if err != nil {
		return nil, err
	}
	applyDotEnv(v, dotenv)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)

	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", 60*time.Second)

	v.SetDefault("store.driver", StoreMemory)

	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("upload.max_dimension", 2048)
	v.SetDefault("upload.jpeg_quality", 85)

	v.SetDefault("tenant.name", "FinNexus Tech")

	v.SetDefault("dashboard.due_soon_days", 7)

	v.SetDefault("lark.enabled", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// readDotEnv parses envFile. A missing file is not an error.
func readDotEnv(envFile string) (gotenv.Env, error) {
	if envFile == "" {
		return nil, nil
	}
	env, err := gotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	return env, nil
}

// applyDotEnv fills bound keys from .env values; the real environment wins
func applyDotEnv(v *viper.Viper, env gotenv.Env) {
	for key, names := range envBindings {
		if fromEnvironment(names) {
			continue
		}
		for _, name := range names {
			if val, ok := env[name]; ok {
				v.Set(key, val)
				break
			}
		}
	}
}

func fromEnvironment(names []string) bool {
	for _, name := range names {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if strings.TrimSpace(c.AI.APIKey) == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}

	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", StoreMemory, StoreSQLite, c.Store.Driver)
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.Upload.MaxDimension <= 0 {
		return fmt.Errorf("upload.max_dimension must be positive")
	}
	if c.Upload.JPEGQuality < 1 || c.Upload.JPEGQuality > 100 {
		return fmt.Errorf("upload.jpeg_quality must be within 1..100")
	}

	if c.Dashboard.DueSoonDays < 0 {
		return fmt.Errorf("dashboard.due_soon_days must not be negative")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark is enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark is enabled")
		}
		if c.Lark.ChatID == "" {
			return fmt.Errorf("lark.chat_id is required when lark is enabled")
		}
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	return nil
}
