package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ashwinrao/railswitch/internal/circuitbreaker"
	"github.com/ashwinrao/railswitch/internal/health"
	"github.com/ashwinrao/railswitch/internal/rail"
	"github.com/ashwinrao/railswitch/internal/retry"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type HealthCheckConfig struct {
	Interval         string `mapstructure:"interval"`
	ProbeTimeout     string `mapstructure:"probe_timeout"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	AutoDeregister   bool   `mapstructure:"auto_deregister"`
	Strategy         string `mapstructure:"strategy"`
}

type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
	CallTimeout      string `mapstructure:"call_timeout"`
	MonitoringPeriod string `mapstructure:"monitoring_period"`
}

type RetryConfig struct {
	BaseDelay         string  `mapstructure:"base_delay"`
	MaxDelay          string  `mapstructure:"max_delay"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	MaxRetries        int     `mapstructure:"max_retries"`
}

type FXConfig struct {
	RefreshInterval string `mapstructure:"refresh_interval"`
}

type RailConfig struct {
	MinAmount          float64  `mapstructure:"min_amount"`
	MaxAmount          float64  `mapstructure:"max_amount"`
	Currencies         []string `mapstructure:"currencies"`
	FeeBase            float64  `mapstructure:"fee_base"`
	FeePercent         float64  `mapstructure:"fee_percent"`
	OpenHour           int      `mapstructure:"open_hour"`
	CloseHour          int      `mapstructure:"close_hour"`
	ProcessingEstimate string   `mapstructure:"processing_estimate"`
}

type Config struct {
	Server         ServerConfig          `mapstructure:"server"`
	Logging        LoggingConfig         `mapstructure:"logging"`
	HealthCheck    HealthCheckConfig     `mapstructure:"health_check"`
	CircuitBreaker BreakerConfig         `mapstructure:"circuit_breaker"`
	Retry          RetryConfig           `mapstructure:"retry"`
	FX             FXConfig              `mapstructure:"fx"`
	Rails          map[string]RailConfig `mapstructure:"rails"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetDefault("health_check.interval", "10s")
	viper.SetDefault("health_check.probe_timeout", "5s")
	viper.SetDefault("health_check.failure_threshold", 5)
	viper.SetDefault("health_check.auto_deregister", false)
	viper.SetDefault("health_check.strategy", "round-robin")

	viper.SetDefault("circuit_breaker.failure_threshold", 5)
	viper.SetDefault("circuit_breaker.recovery_timeout", "30s")
	viper.SetDefault("circuit_breaker.call_timeout", "15s")
	viper.SetDefault("circuit_breaker.monitoring_period", "60s")

	viper.SetDefault("retry.base_delay", "500ms")
	viper.SetDefault("retry.max_delay", "30s")
	viper.SetDefault("retry.backoff_multiplier", 2.0)
	viper.SetDefault("retry.max_retries", 3)

	viper.SetDefault("fx.refresh_interval", "5m")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&hc.ProbeTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&hc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&hc.Strategy,
						validation.Required,
						validation.In("round-robin", "random", "fastest"),
					),
				)
			}),
		),
		validation.Field(&c.CircuitBreaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&bc.RecoveryTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&bc.CallTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&bc.MonitoringPeriod,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Retry,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RetryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RetryConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.BaseDelay,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&rc.MaxDelay,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&rc.BackoffMultiplier,
						validation.Required,
						validation.Min(1.0),
					),
					validation.Field(&rc.MaxRetries,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Rails,
			validation.Each(validation.By(validateRailConfig)),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateRailConfig(value interface{}) error {
	rc, ok := value.(RailConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RailConfig")
	}

	if rc.MinAmount < 0 {
		return validation.NewError("validation_invalid_amount", "min_amount cannot be negative")
	}

	if rc.MaxAmount > 0 && rc.MaxAmount < rc.MinAmount {
		return validation.NewError("validation_invalid_amount", "max_amount must be at least min_amount")
	}

	if rc.FeePercent < 0 || rc.FeeBase < 0 {
		return validation.NewError("validation_invalid_fee", "fee values cannot be negative")
	}

	if rc.OpenHour < 0 || rc.OpenHour > 23 || rc.CloseHour < 0 || rc.CloseHour > 23 {
		return validation.NewError("validation_invalid_hours", "operating hours must be within 0-23")
	}

	if rc.ProcessingEstimate != "" {
		return validateDuration(rc.ProcessingEstimate)
	}

	return nil
}

// BreakerSettings maps the config section onto the breaker package's own
// config type. Durations were validated, so parse errors cannot occur here.
func (c *Config) BreakerSettings() circuitbreaker.Config {
	return circuitbreaker.Config{
		FailureThreshold: c.CircuitBreaker.FailureThreshold,
		RecoveryTimeout:  mustDuration(c.CircuitBreaker.RecoveryTimeout),
		CallTimeout:      mustDuration(c.CircuitBreaker.CallTimeout),
		MonitoringPeriod: mustDuration(c.CircuitBreaker.MonitoringPeriod),
	}
}

func (c *Config) HealthSettings() health.Config {
	return health.Config{
		ProbeInterval:    mustDuration(c.HealthCheck.Interval),
		ProbeTimeout:     mustDuration(c.HealthCheck.ProbeTimeout),
		FailureThreshold: c.HealthCheck.FailureThreshold,
		AutoDeregister:   c.HealthCheck.AutoDeregister,
	}
}

func (c *Config) RetrySettings() retry.Config {
	return retry.Config{
		BaseDelay:         mustDuration(c.Retry.BaseDelay),
		MaxDelay:          mustDuration(c.Retry.MaxDelay),
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		MaxRetries:        c.Retry.MaxRetries,
	}
}

// RailDescriptors builds the rail set: package defaults overlaid with any
// configured overrides, keyed by rail name.
func (c *Config) RailDescriptors() []rail.Descriptor {
	defaults := []rail.Descriptor{
		rail.DefaultWireDescriptor(),
		rail.DefaultRTGSDescriptor(),
		rail.DefaultNEFTDescriptor(),
		rail.DefaultUPIDescriptor(),
	}

	out := make([]rail.Descriptor, 0, len(defaults))
	for _, desc := range defaults {
		rc, ok := c.Rails[desc.Name]
		if !ok {
			rc, ok = c.Rails[strings.ToLower(desc.Name)]
		}
		if ok {
			applyRailOverrides(&desc, rc)
		}
		out = append(out, desc)
	}
	return out
}

func applyRailOverrides(desc *rail.Descriptor, rc RailConfig) {
	if rc.MinAmount > 0 {
		desc.MinAmount = decimal.NewFromFloat(rc.MinAmount)
	}
	if rc.MaxAmount > 0 {
		desc.MaxAmount = decimal.NewFromFloat(rc.MaxAmount)
	}
	if len(rc.Currencies) > 0 {
		desc.Currencies = rc.Currencies
	}
	if rc.FeeBase > 0 {
		desc.FeeBase = decimal.NewFromFloat(rc.FeeBase)
	}
	if rc.FeePercent > 0 {
		desc.FeePercent = decimal.NewFromFloat(rc.FeePercent)
	}
	if rc.OpenHour != 0 || rc.CloseHour != 0 {
		desc.OpenHour = rc.OpenHour
		desc.CloseHour = rc.CloseHour
	}
	if rc.ProcessingEstimate != "" {
		desc.ProcessingEstimate = mustDuration(rc.ProcessingEstimate)
	}
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
