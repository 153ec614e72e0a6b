// Package config loads the process configuration from the environment
// once at startup. The resulting Config is immutable and passed by
// reference to the components that need it; nothing reads the
// environment after Load returns.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bartonguestier1725-collab/x402-weather-api/internal/x402"
)

// Replay guard backend selectors.
const (
	ReplayBackendMemory = "memory"
	ReplayBackendRedis  = "redis"
	ReplayBackendSQLite = "sqlite"
)

// Config is the full process configuration.
type Config struct {
	// Host and Port for the inbound HTTP listener.
	Host string
	Port string

	// Network is the CAIP-2 settlement network.
	Network string

	// PayTo is the recipient address for all payments.
	PayTo string

	// FacilitatorURL is the verification/settlement service endpoint.
	FacilitatorURL string

	// FacilitatorAuth is the Authorization header value for facilitator
	// calls, derived from the API key/secret pair. Empty when the
	// public facilitator needs no credentials. Never logged.
	FacilitatorAuth string

	// FacilitatorRetries is the retry budget for indeterminate
	// facilitator outcomes.
	FacilitatorRetries int

	// ChallengeTTL bounds how long a challenge's terms remain valid.
	ChallengeTTL time.Duration

	// PriceCurrent and PriceForecast are per-route prices in whole
	// asset units, e.g. "0.001".
	PriceCurrent  string
	PriceForecast string

	// ReplayBackend selects the replay guard: memory, redis, or sqlite.
	ReplayBackend string

	// RedisAddr is the Redis address for the redis backend.
	RedisAddr string

	// ReplayDBPath is the database file for the sqlite backend.
	ReplayDBPath string
}

// Load reads and validates the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "4022"),
		Network:        getEnv("NETWORK", x402.NetworkBaseSepolia),
		PayTo:          os.Getenv("EVM_ADDRESS"),
		FacilitatorURL: getEnv("FACILITATOR_URL", "https://x402.org/facilitator"),
		PriceCurrent:   getEnv("PRICE_CURRENT", "0.001"),
		PriceForecast:  getEnv("PRICE_FORECAST", "0.001"),
		ReplayBackend:  getEnv("REPLAY_BACKEND", ReplayBackendMemory),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		ReplayDBPath:   getEnv("REPLAY_DB_PATH", "replay.db"),
	}

	if cfg.PayTo == "" {
		return nil, fmt.Errorf("EVM_ADDRESS not set")
	}
	if !common.IsHexAddress(cfg.PayTo) {
		return nil, fmt.Errorf("EVM_ADDRESS is not a valid address: %s", cfg.PayTo)
	}
	if _, err := x402.GetChainConfig(cfg.Network); err != nil {
		return nil, fmt.Errorf("NETWORK: %w", err)
	}

	ttlSeconds, err := getEnvInt("CHALLENGE_TTL_SECONDS", 120)
	if err != nil {
		return nil, err
	}
	if ttlSeconds <= 0 {
		return nil, fmt.Errorf("CHALLENGE_TTL_SECONDS must be positive, got %d", ttlSeconds)
	}
	cfg.ChallengeTTL = time.Duration(ttlSeconds) * time.Second

	cfg.FacilitatorRetries, err = getEnvInt("FACILITATOR_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	if cfg.FacilitatorRetries < 0 {
		return nil, fmt.Errorf("FACILITATOR_RETRIES must not be negative")
	}

	switch cfg.ReplayBackend {
	case ReplayBackendMemory, ReplayBackendRedis, ReplayBackendSQLite:
	default:
		return nil, fmt.Errorf("REPLAY_BACKEND must be one of memory, redis, sqlite; got %q", cfg.ReplayBackend)
	}

	// Facilitator credentials are optional; the public facilitator
	// accepts unauthenticated calls.
	keyID := os.Getenv("CDP_API_KEY_ID")
	keySecret := os.Getenv("CDP_API_KEY_SECRET")
	if (keyID == "") != (keySecret == "") {
		return nil, fmt.Errorf("CDP_API_KEY_ID and CDP_API_KEY_SECRET must be set together")
	}
	if keyID != "" {
		cfg.FacilitatorAuth = "Basic " + base64.StdEncoding.EncodeToString([]byte(keyID+":"+keySecret))
	}

	return cfg, nil
}

// ReplayTTL is the nonce retention window: the challenge TTL plus a
// safety margin, so expiry can never allow reuse of a nonce within its
// original validity window.
func (c *Config) ReplayTTL() time.Duration {
	return c.ChallengeTTL + 5*time.Minute
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
