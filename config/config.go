package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/* Config is read once at startup and passed by value
 * Components receive only the fields they need
 */

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverFile     = "file"

	ProviderRules     = "rules"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port             string `mapstructure:"PORT"`
	WebhookSecret    string `mapstructure:"WEBHOOK_SECRET"`
	RequireSignature bool   `mapstructure:"REQUIRE_SIGNATURE"`

	StoreDriver           string `mapstructure:"STORE_DRIVER"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns        int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns        int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMins int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	RedisAddr             string `mapstructure:"REDIS_ADDR"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int    `mapstructure:"REDIS_DB"`
	DataDir               string `mapstructure:"DATA_DIR"`

	EnableAIAnalysis bool   `mapstructure:"ENABLE_AI_ANALYSIS"`
	AIProvider       string `mapstructure:"AI_PROVIDER"`
	AIAPIKey         string `mapstructure:"AI_API_KEY"`
	AIEndpoint       string `mapstructure:"AI_ENDPOINT"`
	AIModel          string `mapstructure:"AI_MODEL"`
	AITimeoutSeconds int    `mapstructure:"AI_TIMEOUT_SECONDS"`

	EnableForward         bool   `mapstructure:"ENABLE_FORWARD"`
	ForwardURL            string `mapstructure:"FORWARD_URL"`
	ForwardTimeoutSeconds int    `mapstructure:"FORWARD_TIMEOUT_SECONDS"`

	RequestTimeoutSeconds int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	RoutesFile            string `mapstructure:"ROUTES_FILE"`
	MaxBodyBytes          int64  `mapstructure:"MAX_BODY_BYTES"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	LogJSON               bool   `mapstructure:"LOG_JSON"`
}

var defaults = map[string]any{
	"PORT":                         "5000",
	"WEBHOOK_SECRET":               "",
	"REQUIRE_SIGNATURE":            false,
	"STORE_DRIVER":                 DriverSQLite,
	"DATABASE_URL":                 "webhooks.db",
	"DB_MAX_OPEN_CONNS":            25,
	"DB_MAX_IDLE_CONNS":            5,
	"DB_CONN_MAX_LIFETIME_MINUTES": 5,
	"REDIS_ADDR":                   "localhost:6379",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"DATA_DIR":                     "webhooks_data",
	"ENABLE_AI_ANALYSIS":           true,
	"AI_PROVIDER":                  ProviderRules,
	"AI_API_KEY":                   "",
	"AI_ENDPOINT":                  "",
	"AI_MODEL":                     "",
	"AI_TIMEOUT_SECONDS":           15,
	"ENABLE_FORWARD":               false,
	"FORWARD_URL":                  "",
	"FORWARD_TIMEOUT_SECONDS":      10,
	"REQUEST_TIMEOUT_SECONDS":      30,
	"ROUTES_FILE":                  "",
	"MAX_BODY_BYTES":               1 << 20,
	"LOG_LEVEL":                    "info",
	"LOG_JSON":                     true,
}

// GetConfig reads .env (TOML) from the working directory, overlaid by the environment
func GetConfig() (Config, error) {
	return Load(viper.New(), ".")
}

// Load reads the optional .env file from dir; a missing file is not an error
func Load(v *viper.Viper, dir string) (Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("parsing config data: %w", err)
	}
	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	config.AIProvider = strings.ToLower(strings.TrimSpace(config.AIProvider))

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks enums, required values and URLs
func (c Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT cannot be empty"))
	}
	switch c.StoreDriver {
	case DriverSQLite, DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", c.StoreDriver))
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for STORE_DRIVER=redis"))
		}
	case DriverFile:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR cannot be empty"))
	}

	switch c.AIProvider {
	case ProviderRules:
	case ProviderOpenAI, ProviderAnthropic:
		if c.AIAPIKey == "" {
			errs = append(errs, fmt.Errorf("AI_API_KEY is required for AI_PROVIDER=%s", c.AIProvider))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider))
	}
	if c.AIEndpoint != "" {
		if err := validateURL(c.AIEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("AI_ENDPOINT: %w", err))
		}
	}
	if c.AITimeoutSeconds <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT_SECONDS must be positive"))
	}

	if c.ForwardURL != "" {
		if err := validateURL(c.ForwardURL); err != nil {
			errs = append(errs, fmt.Errorf("FORWARD_URL: %w", err))
		}
	}
	if c.ForwardTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("FORWARD_TIMEOUT_SECONDS must be positive"))
	}
	// a model call and a forward both happen inside one request
	if c.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_SECONDS must be positive"))
	} else if c.AITimeoutSeconds+c.ForwardTimeoutSeconds >= c.RequestTimeoutSeconds {
		errs = append(errs, fmt.Errorf("AI_TIMEOUT_SECONDS + FORWARD_TIMEOUT_SECONDS (%d) must be below REQUEST_TIMEOUT_SECONDS (%d)",
			c.AITimeoutSeconds+c.ForwardTimeoutSeconds, c.RequestTimeoutSeconds))
	}
	if c.RequireSignature && c.WebhookSecret == "" {
		errs = append(errs, errors.New("REQUIRE_SIGNATURE needs WEBHOOK_SECRET"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

func (c Config) ForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeoutSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// UsesAI reports whether a remote model is configured
func (c Config) UsesAI() bool {
	return c.EnableAIAnalysis && c.AIProvider != ProviderRules
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}
