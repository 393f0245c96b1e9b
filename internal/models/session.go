package models

import (
	"time"
)

// CallState is a step of the voice call flow
type CallState string

const (
	StateMenu             CallState = "MENU"
	StatePriceInfo        CallState = "PRICE_INFO"
	StateAdvicePrompt     CallState = "ADVICE_PROMPT"
	StateWeatherPINPrompt CallState = "WEATHER_PIN_PROMPT"
	StateExpertHandoff    CallState = "EXPERT_HANDOFF"

	StatePriceSMSConsent   CallState = "PRICE_SMS_CONSENT"
	StateAdviceSMSConsent  CallState = "ADVICE_SMS_CONSENT"
	StateWeatherSMSConsent CallState = "WEATHER_SMS_CONSENT"
	StateExpertSMSConsent  CallState = "EXPERT_SMS_CONSENT"

	StateTerminal CallState = "TERMINAL"
)

// IsConsent reports whether the caller is being asked for SMS consent
func (s CallState) IsConsent() bool {
	switch s {
	case StatePriceSMSConsent, StateAdviceSMSConsent, StateWeatherSMSConsent, StateExpertSMSConsent:
		return true
	}
	return false
}

// WeatherSnapshot holds current conditions for one location.
// Pointer fields are nil when the provider did not report them.
type WeatherSnapshot struct {
	Place           string   `json:"place,omitempty"`
	Description     string   `json:"description,omitempty"`
	TemperatureC    *float64 `json:"temperature_c,omitempty"`
	WindSpeed       *float64 `json:"wind_speed,omitempty"`
	PrecipitationMM *float64 `json:"precipitation_mm,omitempty"`
}

// CallSession is the per-call conversation state, keyed by the provider's CallSid
type CallSession struct {
	CallSID      string           `json:"call_sid"`
	From         string           `json:"from"`
	State        CallState        `json:"state"`
	Branch       string           `json:"branch,omitempty"` // menu branch the caller picked
	MenuAttempts int              `json:"menu_attempts"`
	Turns        int              `json:"turns"`
	Speech       string           `json:"speech,omitempty"` // last transcript
	PIN          string           `json:"pin,omitempty"`
	Weather      *WeatherSnapshot `json:"weather,omitempty"`
	SMSBody      string           `json:"sms_body,omitempty"` // sent when the caller consents
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SessionKey returns the store key for a call
func SessionKey(callSID string) string {
	return "call:" + callSID
}

// CallSessionRecord stores an encoded CallSession in the database
type CallSessionRecord struct {
	SessionKey string    `gorm:"primaryKey;size:128"`
	Value      string    `gorm:"type:text;not null"` // JSON encoded CallSession
	ExpiresAt  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName keeps the table name stable regardless of the struct name
func (CallSessionRecord) TableName() string {
	return "call_sessions"
}
