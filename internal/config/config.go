package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the evaluation console.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	PlatformBaseURL   string
	PlatformCSRFToken string
	PlatformTimeout   time.Duration

	RedisURL        string
	NATSURL         string
	NATSSubjectBase string
	ConfigCacheTTL  time.Duration

	PreviewRateLimit  int
	PreviewRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Evaluation Console")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("platform.timeout", "15s")
	v.SetDefault("nats.subject_base", "gema")
	v.SetDefault("config.cache_ttl", "5m")
	v.SetDefault("preview.rate_limit", 30)
	v.SetDefault("preview.rate_window", "1m")

	timeout, err := parseDuration(v, "platform.timeout", "15s")
	if err != nil {
		return Config{}, err
	}
	ttl, err := parseDuration(v, "config.cache_ttl", "5m")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "preview.rate_window", "1m")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		PlatformBaseURL:   strings.TrimSpace(v.GetString("platform.base_url")),
		PlatformCSRFToken: v.GetString("platform.csrf_token"),
		PlatformTimeout:   timeout,
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		NATSSubjectBase:   strings.Trim(v.GetString("nats.subject_base"), "."),
		ConfigCacheTTL:    ttl,
		PreviewRateLimit:  v.GetInt("preview.rate_limit"),
		PreviewRateWindow: window,
	}

	if cfg.PlatformBaseURL == "" {
		return Config{}, fmt.Errorf("platform base url must be provided")
	}

	if cfg.PlatformTimeout <= 0 {
		cfg.PlatformTimeout = 15 * time.Second
	}

	if cfg.PreviewRateLimit <= 0 {
		cfg.PreviewRateLimit = 30
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		raw = fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
