package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "GATEWAY_MODE", "API_BASE_URL", "HTTP_TIMEOUT", "FETCH_TIMEOUT",
		"AUTO_REFRESH_INTERVAL", "WEATHER_PROVIDERS", "BREAKER_MAX_REQUESTS", "BREAKER_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ModeRemote, cfg.GatewayMode)
	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Zero(t, cfg.AutoRefreshInterval)
	assert.Equal(t, []string{"openweather", "weatherapi"}, cfg.Providers)
	assert.Equal(t, uint32(5), cfg.BreakerMaxRequests)
	assert.Equal(t, time.Minute, cfg.BreakerTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GATEWAY_MODE", "LOCAL")
	t.Setenv("AUTO_REFRESH_INTERVAL", "5m")
	t.Setenv("WEATHER_PROVIDERS", " OpenMeteo, ,weatherapi ")
	t.Setenv("BREAKER_MAX_REQUESTS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, cfg.GatewayMode)
	assert.Equal(t, 5*time.Minute, cfg.AutoRefreshInterval)
	assert.Equal(t, []string{"openmeteo", "weatherapi"}, cfg.Providers)
	assert.Equal(t, uint32(2), cfg.BreakerMaxRequests)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("GATEWAY_MODE", "carrier-pigeon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("GATEWAY_MODE", "")
	t.Setenv("FETCH_TIMEOUT", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "FETCH_TIMEOUT")
}
