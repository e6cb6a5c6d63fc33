package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weatherki/internal/api/http"
	"github.com/i474232898/weatherki/internal/config"
	"github.com/i474232898/weatherki/internal/dashboard"
	"github.com/i474232898/weatherki/internal/gateway"
	"github.com/i474232898/weatherki/internal/scheduler"
	"github.com/i474232898/weatherki/internal/weather"
	"github.com/i474232898/weatherki/internal/weather/providers"
	"github.com/i474232898/weatherki/internal/widget"
)

func main() {
	// Load configuration (also reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	gw := newGateway(cfg, httpClient)
	dash := dashboard.New(gw, dashboard.Options{FetchTimeout: cfg.FetchTimeout})

	// A failed initial load is shown on the dashboard; the server still starts.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	if err := dash.LoadAll(loadCtx); err != nil {
		log.Printf("ERROR: initial load failed: %v", err)
	}
	cancelLoad()

	sched := scheduler.New(cfg.AutoRefreshInterval, dash)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weatherki",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatherki",
			"gateway": cfg.GatewayMode,
		})
	})

	httpapi.RegisterRoutes(app, dash)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s (gateway=%s)", cfg.Port, cfg.GatewayMode)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	dash.Wait()
}

func newGateway(cfg *config.AppConfig, httpClient *http.Client) widget.Gateway {
	if cfg.GatewayMode == config.ModeLocal {
		return gateway.NewLocal(weather.NewService(newProviders(cfg, httpClient)))
	}
	return gateway.NewClient(gateway.ClientConfig{
		BaseURL:            cfg.APIBaseURL,
		HTTPClient:         httpClient,
		BreakerMaxRequests: cfg.BreakerMaxRequests,
		BreakerTimeout:     cfg.BreakerTimeout,
	})
}

func newProviders(cfg *config.AppConfig, httpClient *http.Client) []weather.Provider {
	httpCfg := providers.DefaultHTTPConfig(httpClient)

	var provs []weather.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "openweather":
			provs = append(provs, providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey))
		case "weatherapi":
			provs = append(provs, providers.NewWeatherAPIProvider(httpCfg, cfg.WeatherAPIKey))
		case "openmeteo":
			// Open-Meteo needs no key, but geocoding requires a Google API key.
			provs = append(provs, providers.NewOpenMeteoProvider(httpCfg, providers.GoogleGeocoder(cfg.GeocoderAPIKey)))
		default:
			log.Printf("ERROR: unknown weather provider %q ignored", name)
		}
	}
	return provs
}
