package config

// Package config handles configuration loading for Indeks AI.
// It supports YAML config files, an optional .env file and environment
// variable overrides.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment overrides, e.g. INDEKSAI_LLM_MODEL.
const EnvPrefix = "INDEKSAI"

// Config represents the complete application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Market  MarketConfig  `mapstructure:"market"  yaml:"market"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	Chat    ChatConfig    `mapstructure:"chat"    yaml:"chat"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig holds language model provider configuration.
type LLMConfig struct {
	Primary      string        `mapstructure:"primary"       yaml:"primary"       validate:"oneof=gemini openai anthropic ollama"`
	Fallbacks    []string      `mapstructure:"fallbacks"     yaml:"fallbacks"     validate:"dive,oneof=gemini openai anthropic ollama"`
	GeminiKey    string        `mapstructure:"gemini_key"    yaml:"gemini_key"`
	OpenAIKey    string        `mapstructure:"openai_key"    yaml:"openai_key"`
	AnthropicKey string        `mapstructure:"anthropic_key" yaml:"anthropic_key"`
	OllamaURL    string        `mapstructure:"ollama_url"    yaml:"ollama_url"    validate:"omitempty,url"`
	Model        string        `mapstructure:"model"         yaml:"model"         validate:"required"`
	Temperature  float64       `mapstructure:"temperature"   yaml:"temperature"   validate:"gte=0,lte=2"`
	MaxTokens    int           `mapstructure:"max_tokens"    yaml:"max_tokens"    validate:"gt=0"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"       validate:"gt=0"`
	MaxRetries   int           `mapstructure:"max_retries"   yaml:"max_retries"   validate:"gte=0,lte=5"`
}

// MarketConfig holds index data source settings.
type MarketConfig struct {
	Symbol          string        `mapstructure:"symbol"           yaml:"symbol"           validate:"required"`
	BaseURL         string        `mapstructure:"base_url"         yaml:"base_url"         validate:"required,url"`
	LatestRange     string        `mapstructure:"latest_range"     yaml:"latest_range"     validate:"required"`
	WeeklyRange     string        `mapstructure:"weekly_range"     yaml:"weekly_range"     validate:"required"`
	WeeklyBars      int           `mapstructure:"weekly_bars"      yaml:"weekly_bars"      validate:"gte=2"`
	CacheTTL        int           `mapstructure:"cache_ttl"        yaml:"cache_ttl"        validate:"gte=0"` // seconds
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"    yaml:"fetch_timeout"    validate:"gt=0"`
	RateLimit       float64       `mapstructure:"rate_limit"       yaml:"rate_limit"       validate:"gt=0"` // requests per second
	PrewarmSchedule string        `mapstructure:"prewarm_schedule" yaml:"prewarm_schedule"` // cron spec, empty disables
}

// NewsConfig holds the optional headline enrichment for the latest-quote answer.
type NewsConfig struct {
	Enabled      bool       `mapstructure:"enabled"       yaml:"enabled"`
	MaxHeadlines int        `mapstructure:"max_headlines" yaml:"max_headlines" validate:"gte=0,lte=10"`
	Keywords     []string   `mapstructure:"keywords"      yaml:"keywords"`
	Feeds        []FeedSpec `mapstructure:"feeds"         yaml:"feeds"         validate:"dive"`
}

// FeedSpec names one RSS feed.
type FeedSpec struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
	URL  string `mapstructure:"url"  yaml:"url"  validate:"required,url"`
}

// ChatConfig holds conversation behaviour.
type ChatConfig struct {
	HistoryWindow       int  `mapstructure:"history_window"        yaml:"history_window"        validate:"gte=0"`
	TruncateAt          int  `mapstructure:"truncate_at"           yaml:"truncate_at"           validate:"gte=0"`
	PoliteErrorFallback bool `mapstructure:"polite_error_fallback" yaml:"polite_error_fallback"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string        `mapstructure:"host"         yaml:"host"`
	Port        int           `mapstructure:"port"         yaml:"port"         validate:"gt=0,lte=65535"`
	CORSOrigins []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"  yaml:"session_ttl"  validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.indeksai/config.yaml (home directory)
//  3. /etc/indeksai/config.yaml (system)
//
// A .env file is loaded first (see LoadDotenvOnce). Environment variables
// override config file values. Format: INDEKSAI_<SECTION>_<KEY>, e.g.
// INDEKSAI_LLM_GEMINI_KEY.
func Load() (*Config, error) {
	LoadDotenvOnce()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".indeksai"))
	v.AddConfigPath("/etc/indeksai")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	LoadDotenvOnce()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static; a decode failure here is a programming error.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

// SaveToFile writes cfg as YAML, creating parent directories as needed.
func SaveToFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// DefaultConfigPath is where `indeksai config init` writes by default.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".indeksai", "config.yaml")
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr returns the API listen address.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "gemini")
	v.SetDefault("llm.fallbacks", []string{})
	v.SetDefault("llm.gemini_key", "")
	v.SetDefault("llm.openai_key", "")
	v.SetDefault("llm.anthropic_key", "")
	v.SetDefault("llm.ollama_url", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", 1)

	// Market defaults
	v.SetDefault("market.symbol", "^JKSE")
	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.latest_range", "5d")
	v.SetDefault("market.weekly_range", "1mo")
	v.SetDefault("market.weekly_bars", 7)
	v.SetDefault("market.cache_ttl", 300) // 5 minutes
	v.SetDefault("market.fetch_timeout", 10*time.Second)
	v.SetDefault("market.rate_limit", 5.0)
	v.SetDefault("market.prewarm_schedule", "")

	// News defaults
	v.SetDefault("news.enabled", false)
	v.SetDefault("news.max_headlines", 3)
	v.SetDefault("news.keywords", []string{"ihsg", "idx", "bursa", "saham", "indeks"})
	v.SetDefault("news.feeds", []map[string]string{
		{"name": "CNBC Indonesia", "url": "https://www.cnbcindonesia.com/market/rss"},
		{"name": "Antara", "url": "https://www.antaranews.com/rss/ekonomi-bursa.xml"},
		{"name": "Kontan", "url": "https://rss.kontan.co.id/news/investasi"},
	})

	// Chat defaults
	v.SetDefault("chat.history_window", 8)
	v.SetDefault("chat.truncate_at", 500)
	v.SetDefault("chat.polite_error_fallback", true)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.session_ttl", 30*time.Minute)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// GEMINI_API_KEY is honoured as well since most Gemini tooling exports it.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv(EnvPrefix + "_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv(EnvPrefix + "_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv(EnvPrefix + "_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
