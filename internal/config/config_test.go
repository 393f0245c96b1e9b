package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthToken = "test-auth-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://api.openweathermap.org", cfg.WeatherBaseURL)
	assert.Equal(t, "IN", cfg.WeatherCountry)
	assert.Equal(t, 8*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 3, cfg.MaxMenuAttempts)
	assert.Equal(t, 5*time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, "en-IN", cfg.VoiceLanguage)
	assert.Equal(t, "hi-IN", cfg.SpeechLanguage)
	assert.Empty(t, cfg.TwilioAuthToken)
	assert.Empty(t, cfg.SessionStoreDSN)
	assert.Empty(t, cfg.KafkaBrokers)

	assert.False(t, cfg.SMSEnabled())
	assert.False(t, cfg.WeatherEnabled())
	assert.False(t, cfg.EventsEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://ivr.example.org")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", testAuthToken)
	t.Setenv("TWILIO_PHONE_NUMBER", "+15005550006")
	t.Setenv("WEATHER_API_KEY", "owm-key")
	t.Setenv("WEATHER_BASE_URL", "http://weather.local/")
	t.Setenv("WEATHER_COUNTRY", "np")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("SESSION_STORE_DSN", "sqlite:///tmp/sessions.db")
	t.Setenv("MAX_MENU_ATTEMPTS", "2")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://ivr.example.org", cfg.PublicBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "http://weather.local", cfg.WeatherBaseURL)
	assert.Equal(t, "NP", cfg.WeatherCountry)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, "sqlite:///tmp/sessions.db", cfg.SessionStoreDSN)
	assert.Equal(t, 2, cfg.MaxMenuAttempts)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)

	assert.True(t, cfg.SMSEnabled())
	assert.True(t, cfg.WeatherEnabled())
	assert.True(t, cfg.EventsEnabled())
	assert.NoError(t, cfg.ValidateServe())
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")
	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
}

func TestLoad_InvalidRetryAttempts(t *testing.T) {
	t.Setenv("RETRY_ATTEMPTS", "0")
	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRY_ATTEMPTS")
}

func TestLoad_InvalidCountry(t *testing.T) {
	t.Setenv("WEATHER_COUNTRY", "India")
	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_COUNTRY")
}

func TestLoad_RelativePublicBaseURL(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "ivr.example.org")
	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUBLIC_BASE_URL")
}

func TestLoad_UnsupportedStoreDSN(t *testing.T) {
	t.Setenv("SESSION_STORE_DSN", "redis://localhost:6379")
	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_STORE_DSN")
}

func TestValidateServe_RequiresAuthToken(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	err = cfg.ValidateServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWILIO_AUTH_TOKEN")
}

func TestValidateServe_ValidationDisabled(t *testing.T) {
	t.Setenv("DISABLE_WEBHOOK_VALIDATION", "true")
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.True(t, cfg.DisableWebhookValidation)
	assert.NoError(t, cfg.ValidateServe())
}

func TestSMSEnabled_NeedsAllCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", testAuthToken)
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.False(t, cfg.SMSEnabled(), "sender number is missing")
}
