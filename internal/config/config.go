package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway modes.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

type AppConfig struct {
	Port string

	// GatewayMode selects the widget backend: a remote REST service or the
	// in-process one backed by weather providers.
	GatewayMode string
	APIBaseURL  string

	HTTPTimeout  time.Duration
	FetchTimeout time.Duration

	// AutoRefreshInterval re-fetches all widgets periodically (0 = disabled).
	AutoRefreshInterval time.Duration

	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string
	Providers         []string

	BreakerMaxRequests uint32
	BreakerTimeout     time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.GatewayMode = strings.ToLower(getenvDefault("GATEWAY_MODE", ModeRemote))
	if cfg.GatewayMode != ModeRemote && cfg.GatewayMode != ModeLocal {
		return nil, fmt.Errorf("invalid GATEWAY_MODE %q: want %s or %s", cfg.GatewayMode, ModeRemote, ModeLocal)
	}
	cfg.APIBaseURL = getenvDefault("API_BASE_URL", "http://localhost:5000/api")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.AutoRefreshInterval, err = getenvDuration("AUTO_REFRESH_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if cfg.BreakerTimeout, err = getenvDuration("BREAKER_TIMEOUT", "1m"); err != nil {
		return nil, err
	}
	cfg.BreakerMaxRequests = uint32(getenvInt("BREAKER_MAX_REQUESTS", 5))

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.Providers = splitList(getenvDefault("WEATHER_PROVIDERS", "openweather,weatherapi"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
