package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/models"
	"github.com/Ananth-NQI/farmline-ivr/internal/observability"
)

// ErrLocationNotFound is returned when no geocoding endpoint knows the PIN
var ErrLocationNotFound = errors.New("location not found")

// Location is a geocoded PIN code
type Location struct {
	Lat  float64
	Lon  float64
	Name string
}

// WeatherProvider resolves PIN codes and fetches current conditions
type WeatherProvider interface {
	Geocode(ctx context.Context, pin string) (Location, error)
	CurrentWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
}

// OpenWeatherClient talks to an OpenWeatherMap compatible API
type OpenWeatherClient struct {
	baseURL string
	apiKey  string
	country string
	http    *RetryingClient
	cache   *lru.Cache[string, Location]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewOpenWeatherClient creates a weather client. cacheSize bounds the PIN location cache.
func NewOpenWeatherClient(baseURL, apiKey, country string, cacheSize int, httpClient *RetryingClient, metrics *observability.Metrics, logger *zap.Logger) (*OpenWeatherClient, error) {
	cache, err := lru.New[string, Location](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &OpenWeatherClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		country: country,
		http:    httpClient,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Geocode resolves pin with the zip endpoint, falling back to direct search.
// Only found locations are cached.
func (c *OpenWeatherClient) Geocode(ctx context.Context, pin string) (Location, error) {
	if loc, ok := c.cache.Get(pin); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return loc, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	loc, err := c.geocodeZip(ctx, pin)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Location{}, ctxErr
		}
		c.logger.Debug("zip geocode failed, trying direct search",
			zap.String("pin", pin),
			zap.Error(err))

		loc, err = c.geocodeDirect(ctx, pin)
		if err != nil {
			return Location{}, err
		}
	}

	c.cache.Add(pin, loc)
	return loc, nil
}

func (c *OpenWeatherClient) geocodeZip(ctx context.Context, pin string) (Location, error) {
	params := url.Values{
		"zip":   {pin + "," + c.country},
		"appid": {c.apiKey},
	}

	var resp zipResponse
	if err := c.http.GetJSON(ctx, "geocode", c.baseURL+"/geo/1.0/zip?"+params.Encode(), &resp); err != nil {
		return Location{}, err
	}
	if resp.Lat == 0 && resp.Lon == 0 {
		return Location{}, ErrLocationNotFound
	}
	return Location{Lat: resp.Lat, Lon: resp.Lon, Name: resp.Name}, nil
}

func (c *OpenWeatherClient) geocodeDirect(ctx context.Context, pin string) (Location, error) {
	params := url.Values{
		"q":     {pin + "," + c.country},
		"limit": {"1"},
		"appid": {c.apiKey},
	}

	var resp []directResult
	if err := c.http.GetJSON(ctx, "geocode", c.baseURL+"/geo/1.0/direct?"+params.Encode(), &resp); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == 404 {
			return Location{}, ErrLocationNotFound
		}
		return Location{}, fmt.Errorf("geocode %s: %w", pin, err)
	}
	if len(resp) == 0 {
		return Location{}, ErrLocationNotFound
	}
	return Location{Lat: resp[0].Lat, Lon: resp[0].Lon, Name: resp[0].Name}, nil
}

// CurrentWeather fetches metric conditions at lat, lon
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	params := url.Values{
		"lat":   {fmt.Sprintf("%.4f", lat)},
		"lon":   {fmt.Sprintf("%.4f", lon)},
		"units": {"metric"},
		"appid": {c.apiKey},
	}

	var resp weatherResponse
	if err := c.http.GetJSON(ctx, "weather", c.baseURL+"/data/2.5/weather?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("current weather: %w", err)
	}
	return resp.snapshot(), nil
}

// OpenWeatherMap response types.

type zipResponse struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type directResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Rain *struct {
		OneHour *float64 `json:"1h"`
	} `json:"rain"`
}

func (r *weatherResponse) snapshot() *models.WeatherSnapshot {
	s := &models.WeatherSnapshot{Place: r.Name}
	if len(r.Weather) > 0 {
		s.Description = r.Weather[0].Description
	}
	if r.Main != nil {
		s.TemperatureC = r.Main.Temp
	}
	if r.Wind != nil {
		s.WindSpeed = r.Wind.Speed
	}
	if r.Rain != nil {
		s.PrecipitationMM = r.Rain.OneHour
	}
	return s
}
