// Package server wires the HTTP routes: a free health check and the
// paid weather endpoints. Handlers here run only after the payment gate
// has passed; they never see rejected requests.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bartonguestier1725-collab/x402-weather-api/internal/weather"
	"github.com/bartonguestier1725-collab/x402-weather-api/internal/x402"
)

const attribution = "Weather data by Open-Meteo.com"

// Server holds the route handlers' collaborators.
type Server struct {
	weather *weather.Client
	network string
}

// New creates a Server backed by the given weather client.
func New(weatherClient *weather.Client, network string) *Server {
	return &Server{weather: weatherClient, network: network}
}

// Router assembles the gin engine with the payment gate installed in
// front of every route. The gate itself decides which routes are priced.
// The optional discovery handler is mounted on its well-known path,
// which stays unpriced so agents can read it before paying.
func (s *Server) Router(gate gin.HandlerFunc, discovery gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gate)

	r.GET("/health", s.handleHealth)
	r.GET("/weather/current", s.handleCurrent)
	r.GET("/weather/forecast", s.handleForecast)
	if discovery != nil {
		r.GET(x402.DiscoveryPath, discovery)
	}

	return r
}

// CurrentWeatherResponse is the body of GET /weather/current.
type CurrentWeatherResponse struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	weather.Current
	Attribution string `json:"attribution"`
}

// ForecastResponse is the body of GET /weather/forecast.
type ForecastResponse struct {
	City        string                `json:"city"`
	Country     string                `json:"country"`
	Latitude    float64               `json:"latitude"`
	Longitude   float64               `json:"longitude"`
	Days        []weather.ForecastDay `json:"days"`
	Attribution string                `json:"attribution"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "weather-api",
		"network": s.network,
	})
}

func (s *Server) handleCurrent(c *gin.Context) {
	loc, ok := s.resolveLocation(c)
	if !ok {
		return
	}

	current, err := s.weather.Current(c.Request.Context(), loc.Latitude, loc.Longitude)
	if err != nil {
		abortProviderError(c, err)
		return
	}

	c.JSON(http.StatusOK, CurrentWeatherResponse{
		City:        loc.Name,
		Country:     loc.Country,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Current:     current,
		Attribution: attribution,
	})
}

func (s *Server) handleForecast(c *gin.Context) {
	loc, ok := s.resolveLocation(c)
	if !ok {
		return
	}

	days := 3
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 7 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'days' must be an integer between 1 and 7"})
			return
		}
		days = n
	}

	forecast, err := s.weather.Forecast(c.Request.Context(), loc.Latitude, loc.Longitude, days)
	if err != nil {
		abortProviderError(c, err)
		return
	}

	c.JSON(http.StatusOK, ForecastResponse{
		City:        loc.Name,
		Country:     loc.Country,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Days:        forecast,
		Attribution: attribution,
	})
}

// resolveLocation turns city or lat/lon query params into a Location.
// On failure it writes the error response and returns ok=false.
func (s *Server) resolveLocation(c *gin.Context) (weather.Location, bool) {
	city := c.Query("city")
	latRaw, lonRaw := c.Query("lat"), c.Query("lon")

	if latRaw != "" && lonRaw != "" {
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		lon, errLon := strconv.ParseFloat(lonRaw, 64)
		if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'lat' must be in [-90, 90] and 'lon' in [-180, 180]"})
			return weather.Location{}, false
		}
		name := city
		if name == "" {
			name = fmt.Sprintf("%g,%g", lat, lon)
		}
		return weather.Location{Name: name, Latitude: lat, Longitude: lon}, true
	}

	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide 'city' or both 'lat' and 'lon' parameters"})
		return weather.Location{}, false
	}

	loc, err := s.weather.Geocode(c.Request.Context(), city)
	if err != nil {
		if errors.Is(err, weather.ErrCityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "City not found: " + city})
			return weather.Location{}, false
		}
		abortProviderError(c, err)
		return weather.Location{}, false
	}
	return loc, true
}

// abortProviderError maps provider failures onto upstream statuses.
func abortProviderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, weather.ErrProviderTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Weather data source timeout"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Weather data source unavailable"})
	}
}
