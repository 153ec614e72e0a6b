// Command weatherapi serves global weather data for AI agents,
// monetized with x402 micropayments (USDC on Base).
//
// Endpoints:
//
//	GET /weather/current               - Current weather for a city or coordinates
//	GET /weather/forecast              - Daily forecast (1-7 days)
//	GET /health                        - Health check (free, no payment)
//	GET /.well-known/payment-options   - Discovery document (free, no payment)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bartonguestier1725-collab/x402-weather-api/internal/config"
	"github.com/bartonguestier1725-collab/x402-weather-api/internal/replay"
	"github.com/bartonguestier1725-collab/x402-weather-api/internal/server"
	"github.com/bartonguestier1725-collab/x402-weather-api/internal/weather"
	"github.com/bartonguestier1725-collab/x402-weather-api/internal/x402"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	catalog, err := x402.NewCatalog(cfg.Network, cfg.PayTo, int(cfg.ChallengeTTL.Seconds()), []x402.PriceSpec{
		{
			Method: http.MethodGet,
			Path:   "/weather/current",
			Price:  cfg.PriceCurrent,
			Description: "Get current weather conditions for any city worldwide. " +
				"Returns temperature, humidity, wind, precipitation, and condition description. " +
				"Specify city name (geocoded automatically) or latitude/longitude coordinates.",
			InputExample: map[string]string{"city": "Tokyo"},
			OutputExample: json.RawMessage(`{
				"city": "Tokyo",
				"country": "Japan",
				"latitude": 35.6895,
				"longitude": 139.6917,
				"temperature_c": 12.5,
				"feels_like_c": 10.2,
				"humidity_pct": 65,
				"wind_speed_kmh": 15.3,
				"wind_direction_deg": 270,
				"precipitation_mm": 0.0,
				"condition": "Partly cloudy",
				"weather_code": 2,
				"observation_time": "2026-02-20T15:00",
				"attribution": "Weather data by Open-Meteo.com"
			}`),
		},
		{
			Method: http.MethodGet,
			Path:   "/weather/forecast",
			Price:  cfg.PriceForecast,
			Description: "Get daily weather forecast (1-7 days) for any city worldwide. " +
				"Returns max/min temperature, precipitation probability, and wind speed per day. " +
				"Specify city name or latitude/longitude coordinates.",
			InputExample: map[string]string{"city": "Tokyo", "days": "3"},
			OutputExample: json.RawMessage(`{
				"city": "Tokyo",
				"country": "Japan",
				"latitude": 35.6895,
				"longitude": 139.6917,
				"days": [
					{
						"date": "2026-02-21",
						"condition": "Slight rain",
						"weather_code": 61,
						"temp_max_c": 15.2,
						"temp_min_c": 8.1,
						"precipitation_mm": 12.5,
						"precipitation_probability_pct": 85,
						"wind_max_kmh": 22.0
					}
				],
				"attribution": "Weather data by Open-Meteo.com"
			}`),
		},
	})
	if err != nil {
		logger.Error("invalid price catalog", "error", err)
		os.Exit(1)
	}

	guard, err := newGuard(cfg)
	if err != nil {
		logger.Error("failed to initialize replay guard", "error", err)
		os.Exit(1)
	}
	defer guard.Close()

	facilitator := &x402.FacilitatorClient{
		BaseURL:       cfg.FacilitatorURL,
		Client:        &http.Client{Timeout: 30 * time.Second},
		Timeouts:      x402.DefaultTimeouts,
		MaxRetries:    cfg.FacilitatorRetries,
		Authorization: cfg.FacilitatorAuth,
	}

	gate := x402.NewPaymentGate(x402.GateConfig{
		Catalog:     catalog,
		Challenges:  x402.NewChallengeBuilder(cfg.ChallengeTTL),
		Facilitator: facilitator,
		Guard:       guard,
		Logger:      logger,
	})

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(weather.NewClient(), cfg.Network)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(gate, x402.NewDiscoveryHandler(catalog, "weather-api")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server started",
			"addr", cfg.Addr(),
			"network", cfg.Network,
			"facilitator", cfg.FacilitatorURL,
			"replay_backend", cfg.ReplayBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("shutdown signal received, draining")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("shutdown did not complete cleanly", "error", err)
	}
	logger.Info("shutdown complete")
}

// newGuard builds the replay guard selected by configuration.
func newGuard(cfg *config.Config) (replay.Guard, error) {
	switch cfg.ReplayBackend {
	case config.ReplayBackendRedis:
		return replay.NewRedisGuard(cfg.RedisAddr, cfg.ReplayTTL())
	case config.ReplayBackendSQLite:
		return replay.NewSQLiteGuard(cfg.ReplayDBPath, cfg.ReplayTTL())
	default:
		return replay.NewMemoryGuard(cfg.ReplayTTL()), nil
	}
}
