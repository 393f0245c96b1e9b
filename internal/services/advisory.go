package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/Ananth-NQI/farmline-ivr/internal/models"
)

// Advisory thresholds. Precipitation is mm in the last hour, temperature in °C,
// wind in the provider's units (m/s for metric requests).
const (
	heavyRainMM   = 10.0
	lightRainMM   = 2.0
	heatC         = 40.0
	coldC         = 5.0
	strongWindMPS = 10.0
)

const (
	AdvisoryUnavailable = "Weather information is currently unavailable. Please try again later."

	adviceHeavyRain  = "Heavy rain warning: avoid spraying and keep field drains clear."
	adviceLightRain  = "Light rain expected: postpone fertilizer application."
	adviceHeat       = "Heat warning: irrigate in the evening and avoid field work at midday."
	adviceCold       = "Cold warning: protect seedlings and livestock from frost."
	adviceStrongWind = "Strong wind warning: secure equipment and support tall crops."
	adviceAllClear   = "No immediate weather warnings for your area."
)

// GenerateAdvisory turns a weather snapshot into the spoken advisory.
// Clauses always appear in the same order: conditions, rain, temperature, wind.
func GenerateAdvisory(w *models.WeatherSnapshot) string {
	if w == nil {
		return AdvisoryUnavailable
	}

	var parts []string
	if w.Description != "" {
		parts = append(parts, "Current condition: "+w.Description+".")
	}
	if w.TemperatureC != nil {
		parts = append(parts, "Temperature is "+formatNumber(*w.TemperatureC)+" degrees Celsius.")
	}

	warned := false
	if p := w.PrecipitationMM; p != nil {
		switch {
		case *p >= heavyRainMM:
			parts = append(parts, adviceHeavyRain)
			warned = true
		case *p >= lightRainMM:
			parts = append(parts, adviceLightRain)
			warned = true
		}
	}
	if t := w.TemperatureC; t != nil {
		switch {
		case *t >= heatC:
			parts = append(parts, adviceHeat)
			warned = true
		case *t <= coldC:
			parts = append(parts, adviceCold)
			warned = true
		}
	}
	if ws := w.WindSpeed; ws != nil && *ws >= strongWindMPS {
		parts = append(parts, adviceStrongWind)
		warned = true
	}

	if !warned {
		parts = append(parts, adviceAllClear)
	}
	return strings.Join(parts, " ")
}

// formatNumber renders 38 as "38" and 38.46 as "38.5"
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
