// Package config loads the apifetch application configuration in three
// layers: built-in defaults, an optional YAML file and environment
// variables. Runtime overrides (CLI flags) win over all of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "APIFETCH"

// envAliases are the unprefixed variables honoured in addition to the
// APIFETCH_ ones.
var envAliases = map[string]string{
	"base_url":          "API_BASE_URL",
	"auth.api_key":      "API_KEY",
	"auth.bearer_token": "API_BEARER_TOKEN",
}

// Load reads the configuration. path may be empty, in which case
// apifetch.yaml is searched in the working directory and the user config
// directory; a missing file is not an error. An explicit path must exist.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("apifetch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "apifetch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that environment variables can
// override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault("timeout", "30s")
	v.SetDefault("max_concurrent", 10)
	v.SetDefault("user_agent", "apifetch/1.0")
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("endpoints", map[string]string{
		"customers":   "/customers",
		"orders":      "/orders",
		"order_items": "/order-items",
		"products":    "/products",
		"health":      "/health",
	})

	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.bearer_token", "")

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst_size", 50)

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "60s")
	v.SetDefault("retry.backoff_multiplier", 2.0)
	v.SetDefault("retry.retry_on_status", "429,500,502,503,504")

	v.SetDefault("pool.max_connections", 100)
	v.SetDefault("pool.max_connections_per_host", 30)
	v.SetDefault("pool.keep_alive", "60s")
	v.SetDefault("pool.dns_cache_ttl", "300s")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("stats.enabled", false)
	v.SetDefault("stats.prefix", "apifetch:stats")
	v.SetDefault("stats.ttl", "24h")
	v.SetDefault("stats.bucket", "minute")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)

	v.SetDefault("server.metrics_addr", "")
	v.SetDefault("server.shutdown_timeout", "5s")
}
