package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/watanabekazunori/tonarino/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Sheets    SheetsConfig    `yaml:"sheets" mapstructure:"sheets"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Circuit   CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds Places API settings.
type GoogleConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Language    string  `yaml:"language" mapstructure:"language"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-request HTTP timeout.
func (c GoogleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnthropicConfig holds text generation settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ReportConfig configures report generation pacing and AI retries.
type ReportConfig struct {
	CallDelaySecs int         `yaml:"call_delay_secs" mapstructure:"call_delay_secs"`
	Retry         RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// CallDelay returns the pause before each AI call after the first.
func (c ReportConfig) CallDelay() time.Duration {
	return time.Duration(c.CallDelaySecs) * time.Second
}

// RetryConfig is the file form of resilience.RetryConfig.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Resilience converts to a resilience.RetryConfig.
func (c RetryConfig) Resilience() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    c.MaxAttempts,
		InitialBackoff: time.Duration(c.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(c.MaxBackoffMs) * time.Millisecond,
		Multiplier:     c.Multiplier,
		JitterFraction: c.JitterFraction,
	}
}

// DiscoveryConfig is informational; the search radius is fixed.
type DiscoveryConfig struct {
	RadiusM int `yaml:"radius_m" mapstructure:"radius_m"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RedisConfig configures the place-details cache. An empty Addr disables it.
type RedisConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr"`
	Password       string `yaml:"password" mapstructure:"password"`
	DB             int    `yaml:"db" mapstructure:"db"`
	DetailsTTLMins int    `yaml:"details_ttl_mins" mapstructure:"details_ttl_mins"`
}

// DetailsTTL returns how long cached details stay valid.
func (c RedisConfig) DetailsTTL() time.Duration {
	return time.Duration(c.DetailsTTLMins) * time.Minute
}

// SheetsConfig holds the spreadsheet webhook.
type SheetsConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// AuthConfig verifies API bearer tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
	Audience  string `yaml:"audience" mapstructure:"audience"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// CircuitConfig configures the Places circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// Breaker converts to a resilience.CircuitBreakerConfig.
func (c CircuitConfig) Breaker() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		FailureThreshold: c.FailureThreshold,
		ResetTimeout:     time.Duration(c.ResetTimeoutSecs) * time.Second,
	}
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TONARINO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("google.language", "ja")
	v.SetDefault("google.rate_limit", 10)
	v.SetDefault("google.timeout_secs", 15)
	v.SetDefault("google.api_key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("report.call_delay_secs", 15)
	v.SetDefault("report.retry.max_attempts", 5)
	v.SetDefault("report.retry.initial_backoff_ms", 20000)
	v.SetDefault("report.retry.max_backoff_ms", 60000)
	v.SetDefault("report.retry.multiplier", 2)
	v.SetDefault("report.retry.jitter_fraction", 0)
	v.SetDefault("discovery.radius_m", 2000)
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.details_ttl_mins", 60)
	v.SetDefault("sheets.webhook_url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validation modes.
const (
	ModeServe    = "serve"
	ModeDiscover = "discover"
	ModeReport   = "report"
	ModeMigrate  = "migrate"
)

// Validate checks the settings the given mode depends on.
func (c *Config) Validate(mode string) error {
	var missing []string
	needStore := func() {
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url")
		}
	}

	switch mode {
	case ModeServe:
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			return eris.Errorf("config: server.port %d out of range", c.Server.Port)
		}
		if c.Google.APIKey == "" {
			missing = append(missing, "google.api_key")
		}
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key")
		}
		if c.Auth.JWTSecret == "" {
			missing = append(missing, "auth.jwt_secret")
		}
		needStore()
	case ModeDiscover:
		if c.Google.APIKey == "" {
			missing = append(missing, "google.api_key")
		}
	case ModeReport:
		if c.Google.APIKey == "" {
			missing = append(missing, "google.api_key")
		}
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key")
		}
		needStore()
	case ModeMigrate:
		needStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if !slices.Contains([]string{"postgres", "sqlite"}, c.Store.Driver) {
		return eris.Errorf("config: store.driver must be postgres or sqlite, got %q", c.Store.Driver)
	}
	if c.Report.CallDelaySecs < 0 {
		return eris.New("config: report.call_delay_secs must not be negative")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings for %s: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
