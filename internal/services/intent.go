package services

import "strings"

// Intent is the menu branch a caller asked for
type Intent int

const (
	IntentUnrecognized Intent = iota
	IntentPriceInfo
	IntentAdviceRequest
	IntentWeatherRequest
	IntentExpertHandoff
)

func (i Intent) String() string {
	switch i {
	case IntentPriceInfo:
		return "price"
	case IntentAdviceRequest:
		return "advice"
	case IntentWeatherRequest:
		return "weather"
	case IntentExpertHandoff:
		return "expert"
	default:
		return "unrecognized"
	}
}

var menuDigits = map[string]Intent{
	"1": IntentPriceInfo,
	"2": IntentAdviceRequest,
	"3": IntentWeatherRequest,
	"4": IntentExpertHandoff,
}

// menuKeywords is checked in order; the first branch with a matching keyword wins
var menuKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPriceInfo, []string{"price", "rate", "mandi", "market", "भाव", "दाम", "कीमत", "मंडी", "रेट"}},
	{IntentAdviceRequest, []string{"advice", "advise", "suggestion", "सलाह", "सुझाव", "जानकारी"}},
	{IntentWeatherRequest, []string{"weather", "rain", "forecast", "मौसम", "बारिश", "वर्षा"}},
	{IntentExpertHandoff, []string{"expert", "agent", "officer", "human", "विशेषज्ञ", "एक्सपर्ट", "अधिकारी"}},
}

// ClassifyIntent maps menu input to a branch: the pressed digit first, then keywords in the transcript
func ClassifyIntent(digits, speech string) Intent {
	if intent, ok := menuDigits[strings.TrimSpace(digits)]; ok {
		return intent
	}

	transcript := strings.ToLower(speech)
	if transcript == "" {
		return IntentUnrecognized
	}
	for _, branch := range menuKeywords {
		for _, kw := range branch.keywords {
			if strings.Contains(transcript, kw) {
				return branch.intent
			}
		}
	}
	return IntentUnrecognized
}
