package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(geocodeBody, forecastBody string, status int) (*Client, func()) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(geocodeBody))
	}))
	fc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(forecastBody))
	}))
	client := NewClient(WithBaseURLs(geo.URL, fc.URL))
	return client, func() { geo.Close(); fc.Close() }
}

func TestGeocode(t *testing.T) {
	body := `{"results":[{"name":"Tokyo","country":"Japan","latitude":35.6895,"longitude":139.6917}]}`
	client, cleanup := newTestClient(body, "{}", http.StatusOK)
	defer cleanup()

	loc, err := client.Geocode(context.Background(), "Tokyo")
	if err != nil {
		t.Fatalf("Geocode failed: %v", err)
	}
	if loc.Name != "Tokyo" || loc.Country != "Japan" {
		t.Errorf("unexpected location: %+v", loc)
	}
	if loc.Latitude != 35.6895 || loc.Longitude != 139.6917 {
		t.Errorf("unexpected coordinates: %+v", loc)
	}
}

func TestGeocode_CityNotFound(t *testing.T) {
	client, cleanup := newTestClient(`{"results":[]}`, "{}", http.StatusOK)
	defer cleanup()

	_, err := client.Geocode(context.Background(), "Nowhereville")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
}

func TestGeocode_UpstreamError(t *testing.T) {
	client, cleanup := newTestClient("oops", "oops", http.StatusInternalServerError)
	defer cleanup()

	_, err := client.Geocode(context.Background(), "Tokyo")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCurrent(t *testing.T) {
	body := `{"current":{
		"time":"2026-02-20T15:00",
		"temperature_2m":12.5,
		"apparent_temperature":10.2,
		"relative_humidity_2m":65,
		"weather_code":2,
		"wind_speed_10m":15.3,
		"wind_direction_10m":270,
		"precipitation":0.0
	}}`
	client, cleanup := newTestClient("{}", body, http.StatusOK)
	defer cleanup()

	cur, err := client.Current(context.Background(), 35.6895, 139.6917)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if cur.TemperatureC != 12.5 || cur.FeelsLikeC != 10.2 || cur.HumidityPct != 65 {
		t.Errorf("unexpected conditions: %+v", cur)
	}
	if cur.Condition != "Partly cloudy" || cur.WeatherCode != 2 {
		t.Errorf("weather code not described: %+v", cur)
	}
	if cur.ObservationTime != "2026-02-20T15:00" {
		t.Errorf("unexpected observation time: %s", cur.ObservationTime)
	}
}

func TestCurrent_IncompleteShapeRejected(t *testing.T) {
	// Missing temperature_2m.
	body := `{"current":{"time":"2026-02-20T15:00","weather_code":2}}`
	client, cleanup := newTestClient("{}", body, http.StatusOK)
	defer cleanup()

	_, err := client.Current(context.Background(), 35.0, 139.0)
	if !errors.Is(err, ErrBadProviderData) {
		t.Fatalf("expected ErrBadProviderData, got %v", err)
	}
}

func TestForecast(t *testing.T) {
	body := `{"daily":{
		"time":["2026-02-21","2026-02-22"],
		"weather_code":[61,0],
		"temperature_2m_max":[15.2,17.0],
		"temperature_2m_min":[8.1,9.4],
		"precipitation_sum":[12.5,0.0],
		"precipitation_probability_max":[85,5],
		"wind_speed_10m_max":[22.0,10.1]
	}}`
	client, cleanup := newTestClient("{}", body, http.StatusOK)
	defer cleanup()

	days, err := client.Forecast(context.Background(), 35.6895, 139.6917, 2)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Date != "2026-02-21" || days[0].Condition != "Slight rain" {
		t.Errorf("unexpected first day: %+v", days[0])
	}
	if days[1].PrecipitationProbabilityPct != 5 || days[1].WindMaxKmh != 10.1 {
		t.Errorf("unexpected second day: %+v", days[1])
	}
}

func TestForecast_RaggedArraysRejected(t *testing.T) {
	body := `{"daily":{
		"time":["2026-02-21","2026-02-22"],
		"weather_code":[61],
		"temperature_2m_max":[15.2,17.0],
		"temperature_2m_min":[8.1,9.4],
		"precipitation_sum":[12.5,0.0],
		"precipitation_probability_max":[85,5],
		"wind_speed_10m_max":[22.0,10.1]
	}}`
	client, cleanup := newTestClient("{}", body, http.StatusOK)
	defer cleanup()

	_, err := client.Forecast(context.Background(), 35.0, 139.0, 2)
	if !errors.Is(err, ErrBadProviderData) {
		t.Fatalf("expected ErrBadProviderData, got %v", err)
	}
}

func TestTimeoutClassified(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	client := NewClient(
		WithBaseURLs(slow.URL, slow.URL),
		WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}),
	)

	_, err := client.Geocode(context.Background(), "Tokyo")
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("expected ErrProviderTimeout, got %v", err)
	}
}
