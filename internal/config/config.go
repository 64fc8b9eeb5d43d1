package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "POSTHOG"

	DefaultTimeout  = 10 * time.Second
	MinTimeout      = time.Millisecond
	DefaultLogLevel = "info"
)

// Config contains the values every capture request needs. It is loaded once
// at start-up and passed by value; nothing mutates it afterwards.
type Config struct {
	APIHost      string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	IgnoreStatus bool
	LogLevel     string
}

// ConfigurationError reports a required value that is missing or blank.
type ConfigurationError struct {
	Name string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Name)
}

// EnvName returns the environment variable backing a config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// Load reads configuration from an optional YAML file, a .env file in the
// working directory and the environment. Environment variables win over the
// file; an existing variable is never overwritten by .env.
//
// POSTHOG_API_HOST and POSTHOG_API_KEY are required.
func Load(configFile string) (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetDefault("max_retries", 0)
	v.SetDefault("ignore_status", false)
	v.SetDefault("log_level", DefaultLogLevel)

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", configFile)
		}
	}

	timeout, err := ParseTimeout(v.GetString("timeout"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIHost:      strings.TrimRight(strings.TrimSpace(v.GetString("api_host")), "/"),
		APIKey:       strings.TrimSpace(v.GetString("api_key")),
		Timeout:      timeout,
		MaxRetries:   v.GetInt("max_retries"),
		IgnoreStatus: v.GetBool("ignore_status"),
		LogLevel:     v.GetString("log_level"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseTimeout reads a timeout as either a bare number of seconds ("10") or
// a Go duration ("2s", "500ms"). Anything under a millisecond is rejected.
func ParseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTimeout, nil
	}

	var d time.Duration
	if secs, err := strconv.Atoi(raw); err == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(raw); err != nil {
		return 0, errors.Errorf("%s must be seconds or a duration such as 10s, got %q", EnvName("timeout"), raw)
	}

	if d < MinTimeout {
		return 0, errors.Errorf("%s must be at least %s, got %q", EnvName("timeout"), MinTimeout, raw)
	}
	return d, nil
}

// Validate checks the required values and normalises the optional ones.
func (c *Config) Validate() error {
	if c.APIHost == "" {
		return &ConfigurationError{Name: EnvName("api_host")}
	}
	if c.APIKey == "" {
		return &ConfigurationError{Name: EnvName("api_key")}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		return errors.Errorf("%s must not be negative", EnvName("max_retries"))
	}
	return nil
}
