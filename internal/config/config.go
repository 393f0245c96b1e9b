// Package config loads and validates service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Port            string
	PublicBaseURL   string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Twilio credentials. The auth token is mandatory for serving webhooks.
	TwilioAccountSID         string
	TwilioAuthToken          string
	TwilioPhoneNumber        string
	DisableWebhookValidation bool

	// Weather provider (OpenWeatherMap compatible)
	WeatherAPIKey    string
	WeatherBaseURL   string
	WeatherCountry   string
	GeocodeCacheSize int

	// Outbound HTTP policy shared by every upstream client
	HTTPTimeout      time.Duration
	RetryAttempts    int
	RetryBackoff     time.Duration
	RetryMaxInterval time.Duration

	SessionStoreDSN      string
	SessionSweepInterval time.Duration

	PriceBoardPath  string
	ExpertHelpline  string
	VoiceLanguage   string
	SpeechLanguage  string
	MaxMenuAttempts int

	KafkaBrokers         []string
	KafkaCallEventsTopic string
}

// Load reads configuration from the environment through v, applying defaults where unset.
// Pass nil to use a fresh viper instance.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:            v.GetString("PORT"),
		PublicBaseURL:   strings.TrimSpace(v.GetString("PUBLIC_BASE_URL")),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		TwilioAccountSID:         v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:          v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber:        v.GetString("TWILIO_PHONE_NUMBER"),
		DisableWebhookValidation: v.GetBool("DISABLE_WEBHOOK_VALIDATION"),

		WeatherAPIKey:    v.GetString("WEATHER_API_KEY"),
		WeatherBaseURL:   strings.TrimRight(v.GetString("WEATHER_BASE_URL"), "/"),
		WeatherCountry:   strings.ToUpper(v.GetString("WEATHER_COUNTRY")),
		GeocodeCacheSize: v.GetInt("GEOCODE_CACHE_SIZE"),

		HTTPTimeout:      v.GetDuration("HTTP_TIMEOUT"),
		RetryAttempts:    v.GetInt("RETRY_ATTEMPTS"),
		RetryBackoff:     v.GetDuration("RETRY_BACKOFF"),
		RetryMaxInterval: v.GetDuration("RETRY_MAX_INTERVAL"),

		SessionStoreDSN:      v.GetString("SESSION_STORE_DSN"),
		SessionSweepInterval: v.GetDuration("SESSION_SWEEP_INTERVAL"),

		PriceBoardPath:  v.GetString("PRICE_BOARD_PATH"),
		ExpertHelpline:  v.GetString("EXPERT_HELPLINE"),
		VoiceLanguage:   v.GetString("VOICE_LANGUAGE"),
		SpeechLanguage:  v.GetString("SPEECH_LANGUAGE"),
		MaxMenuAttempts: v.GetInt("MAX_MENU_ATTEMPTS"),

		KafkaBrokers:         parseList(v.GetString("KAFKA_BROKERS")),
		KafkaCallEventsTopic: v.GetString("KAFKA_CALL_EVENTS_TOPIC"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("WEATHER_BASE_URL", "https://api.openweathermap.org")
	v.SetDefault("WEATHER_COUNTRY", "IN")
	v.SetDefault("GEOCODE_CACHE_SIZE", 1000)
	v.SetDefault("HTTP_TIMEOUT", "8s")
	v.SetDefault("RETRY_ATTEMPTS", 3)
	v.SetDefault("RETRY_BACKOFF", "300ms")
	v.SetDefault("RETRY_MAX_INTERVAL", "2s")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "5m")
	v.SetDefault("EXPERT_HELPLINE", "1800-180-1551")
	v.SetDefault("VOICE_LANGUAGE", "en-IN")
	v.SetDefault("SPEECH_LANGUAGE", "hi-IN")
	v.SetDefault("MAX_MENU_ATTEMPTS", 3)
	v.SetDefault("KAFKA_CALL_EVENTS_TOPIC", "ivr-call-events")
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if c.RetryAttempts < 1 {
		return errors.New("RETRY_ATTEMPTS must be at least 1")
	}
	if c.RetryBackoff <= 0 || c.RetryMaxInterval < c.RetryBackoff {
		return errors.New("RETRY_BACKOFF must be positive and not above RETRY_MAX_INTERVAL")
	}
	if c.MaxMenuAttempts < 1 {
		return errors.New("MAX_MENU_ATTEMPTS must be at least 1")
	}
	if c.GeocodeCacheSize < 1 {
		return errors.New("GEOCODE_CACHE_SIZE must be at least 1")
	}
	if c.SessionSweepInterval <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}
	if len(c.WeatherCountry) != 2 {
		return fmt.Errorf("WEATHER_COUNTRY must be a two letter country code, got %q", c.WeatherCountry)
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", c.PublicBaseURL)
		}
	}
	if c.SessionStoreDSN != "" {
		scheme, _, _ := strings.Cut(c.SessionStoreDSN, "://")
		switch scheme {
		case "postgres", "postgresql", "sqlite":
		default:
			return fmt.Errorf("SESSION_STORE_DSN scheme %q is not supported", scheme)
		}
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaCallEventsTopic == "" {
		return errors.New("KAFKA_CALL_EVENTS_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// ValidateServe adds the checks that only matter when answering live webhooks.
// A missing auth token is fatal: an unauthenticated voice endpoint is never started by accident.
func (c *Config) ValidateServe() error {
	if c.TwilioAuthToken == "" && !c.DisableWebhookValidation {
		return errors.New("TWILIO_AUTH_TOKEN is required unless DISABLE_WEBHOOK_VALIDATION=true")
	}
	return nil
}

// SMSEnabled reports whether outbound SMS can be sent
func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

// WeatherEnabled reports whether the weather branch can reach its provider
func (c *Config) WeatherEnabled() bool {
	return c.WeatherAPIKey != ""
}

// EventsEnabled reports whether call events are published to Kafka
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
