// Package weather fetches geocoding, current conditions, and daily
// forecasts from the Open-Meteo API (key-less, CC BY 4.0). Provider
// responses are decoded into explicit schemas and rejected on shape
// mismatch rather than passed through blindly.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Sentinel errors for provider failures. The server layer maps these to
// HTTP statuses.
var (
	// ErrCityNotFound indicates the geocoder returned no results.
	ErrCityNotFound = errors.New("weather: city not found")

	// ErrProviderUnavailable indicates a connection failure or non-200
	// response from the provider.
	ErrProviderUnavailable = errors.New("weather: data source unavailable")

	// ErrProviderTimeout indicates the provider did not answer in time.
	ErrProviderTimeout = errors.New("weather: data source timeout")

	// ErrBadProviderData indicates the provider answered with an
	// unexpected payload shape.
	ErrBadProviderData = errors.New("weather: unexpected data format")
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"

	currentVars = "temperature_2m,relative_humidity_2m,apparent_temperature," +
		"weather_code,wind_speed_10m,wind_direction_10m,precipitation"
	dailyVars = "weather_code,temperature_2m_max,temperature_2m_min," +
		"precipitation_sum,precipitation_probability_max,wind_speed_10m_max"
)

// Location is a geocoded place.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Current holds current conditions at a point.
type Current struct {
	TemperatureC     float64 `json:"temperature_c"`
	FeelsLikeC       float64 `json:"feels_like_c"`
	HumidityPct      int     `json:"humidity_pct"`
	WindSpeedKmh     float64 `json:"wind_speed_kmh"`
	WindDirectionDeg int     `json:"wind_direction_deg"`
	PrecipitationMm  float64 `json:"precipitation_mm"`
	Condition        string  `json:"condition"`
	WeatherCode      int     `json:"weather_code"`
	ObservationTime  string  `json:"observation_time"`
}

// ForecastDay holds one day of a daily forecast.
type ForecastDay struct {
	Date                        string  `json:"date"`
	Condition                   string  `json:"condition"`
	WeatherCode                 int     `json:"weather_code"`
	TempMaxC                    float64 `json:"temp_max_c"`
	TempMinC                    float64 `json:"temp_min_c"`
	PrecipitationMm             float64 `json:"precipitation_mm"`
	PrecipitationProbabilityPct int     `json:"precipitation_probability_pct"`
	WindMaxKmh                  float64 `json:"wind_max_kmh"`
}

// Client talks to Open-Meteo. The zero value is not usable; use NewClient.
type Client struct {
	httpClient   *http.Client
	geocodingURL string
	forecastURL  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the provider endpoints, mainly for tests.
func WithBaseURLs(geocoding, forecast string) Option {
	return func(c *Client) {
		c.geocodingURL = geocoding
		c.forecastURL = forecast
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a Client with a shared connection pool and a 10s
// request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		geocodingURL: defaultGeocodingURL,
		forecastURL:  defaultForecastURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// geocodeResponse is the shape of the geocoder's answer.
type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// Geocode resolves a city name to coordinates, taking the first match.
func (c *Client) Geocode(ctx context.Context, city string) (Location, error) {
	params := url.Values{
		"name":     {city},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}

	var decoded geocodeResponse
	if err := c.getJSON(ctx, c.geocodingURL, params, &decoded); err != nil {
		return Location{}, err
	}

	if len(decoded.Results) == 0 {
		return Location{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	}

	hit := decoded.Results[0]
	if hit.Name == "" {
		return Location{}, fmt.Errorf("%w: geocode result missing name", ErrBadProviderData)
	}
	return Location{
		Name:      hit.Name,
		Country:   hit.Country,
		Latitude:  hit.Latitude,
		Longitude: hit.Longitude,
	}, nil
}

// currentResponse is the shape of the forecast API's current block.
type currentResponse struct {
	Current *struct {
		Time                string   `json:"time"`
		Temperature2m       *float64 `json:"temperature_2m"`
		ApparentTemperature *float64 `json:"apparent_temperature"`
		RelativeHumidity2m  *int     `json:"relative_humidity_2m"`
		WeatherCode         *int     `json:"weather_code"`
		WindSpeed10m        *float64 `json:"wind_speed_10m"`
		WindDirection10m    *int     `json:"wind_direction_10m"`
		Precipitation       *float64 `json:"precipitation"`
	} `json:"current"`
}

// Current fetches current conditions for the given coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Current, error) {
	params := url.Values{
		"latitude":  {formatCoord(lat)},
		"longitude": {formatCoord(lon)},
		"current":   {currentVars},
	}

	var decoded currentResponse
	if err := c.getJSON(ctx, c.forecastURL, params, &decoded); err != nil {
		return Current{}, err
	}

	cur := decoded.Current
	if cur == nil || cur.Temperature2m == nil || cur.WeatherCode == nil ||
		cur.ApparentTemperature == nil || cur.RelativeHumidity2m == nil ||
		cur.WindSpeed10m == nil || cur.WindDirection10m == nil || cur.Precipitation == nil {
		return Current{}, fmt.Errorf("%w: incomplete current block", ErrBadProviderData)
	}

	return Current{
		TemperatureC:     *cur.Temperature2m,
		FeelsLikeC:       *cur.ApparentTemperature,
		HumidityPct:      *cur.RelativeHumidity2m,
		WindSpeedKmh:     *cur.WindSpeed10m,
		WindDirectionDeg: *cur.WindDirection10m,
		PrecipitationMm:  *cur.Precipitation,
		Condition:        DescribeCode(*cur.WeatherCode),
		WeatherCode:      *cur.WeatherCode,
		ObservationTime:  cur.Time,
	}, nil
}

// forecastResponse is the shape of the forecast API's daily block.
// Open-Meteo returns parallel arrays, one element per day.
type forecastResponse struct {
	Daily *struct {
		Time                        []string  `json:"time"`
		WeatherCode                 []int     `json:"weather_code"`
		Temperature2mMax            []float64 `json:"temperature_2m_max"`
		Temperature2mMin            []float64 `json:"temperature_2m_min"`
		PrecipitationSum            []float64 `json:"precipitation_sum"`
		PrecipitationProbabilityMax []int     `json:"precipitation_probability_max"`
		WindSpeed10mMax             []float64 `json:"wind_speed_10m_max"`
	} `json:"daily"`
}

// Forecast fetches a daily forecast of 1-7 days for the coordinates.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, days int) ([]ForecastDay, error) {
	params := url.Values{
		"latitude":      {formatCoord(lat)},
		"longitude":     {formatCoord(lon)},
		"daily":         {dailyVars},
		"forecast_days": {strconv.Itoa(days)},
	}

	var decoded forecastResponse
	if err := c.getJSON(ctx, c.forecastURL, params, &decoded); err != nil {
		return nil, err
	}

	daily := decoded.Daily
	if daily == nil {
		return nil, fmt.Errorf("%w: missing daily block", ErrBadProviderData)
	}
	n := len(daily.Time)
	if n == 0 || len(daily.WeatherCode) != n || len(daily.Temperature2mMax) != n ||
		len(daily.Temperature2mMin) != n || len(daily.PrecipitationSum) != n ||
		len(daily.PrecipitationProbabilityMax) != n || len(daily.WindSpeed10mMax) != n {
		return nil, fmt.Errorf("%w: ragged daily arrays", ErrBadProviderData)
	}

	result := make([]ForecastDay, 0, n)
	for i := 0; i < n; i++ {
		code := daily.WeatherCode[i]
		result = append(result, ForecastDay{
			Date:                        daily.Time[i],
			Condition:                   DescribeCode(code),
			WeatherCode:                 code,
			TempMaxC:                    daily.Temperature2mMax[i],
			TempMinC:                    daily.Temperature2mMin[i],
			PrecipitationMm:             daily.PrecipitationSum[i],
			PrecipitationProbabilityPct: daily.PrecipitationProbabilityMax[i],
			WindMaxKmh:                  daily.WindSpeed10mMax[i],
		})
	}
	return result, nil
}

// getJSON issues a GET and decodes the JSON body, classifying transport
// failures into the package's sentinel errors.
func (c *Client) getJSON(ctx context.Context, baseURL string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadProviderData, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
