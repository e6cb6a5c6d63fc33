package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/i474232898/weatherki/internal/widget"
)

// ErrNoProviders is returned when the service has no provider configured.
var ErrNoProviders = errors.New("no weather providers configured")

// Service fetches current weather from multiple providers and aggregates it.
type Service struct {
	providers []Provider
}

// NewService creates a new Service.
func NewService(providers []Provider) *Service {
	return &Service{
		providers: providers,
	}
}

// FetchWeather fetches data from all providers concurrently for the given
// free-text location and aggregates the successful readings. It fails only
// when no provider succeeded.
func (s *Service) FetchWeather(ctx context.Context, location string) (widget.WeatherData, error) {
	loc := ParseLocation(location)
	if loc.City == "" {
		return widget.WeatherData{}, widget.ErrInvalidLocation
	}

	log.Printf("DEBUG: FetchWeather called for %s with %d providers", loc.Key(), len(s.providers))
	if len(s.providers) == 0 {
		log.Printf("ERROR: No providers available to fetch weather data for %s", loc.Key())
		return widget.WeatherData{}, ErrNoProviders
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings = make([]*ProviderReading, len(s.providers))
		errs     []error
	)

	for i, p := range s.providers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)
			if err != nil {
				// Log and continue; we want partial success when possible.
				log.Printf("provider %s fetch failed for %s: %v", p.Name(), loc.Key(), err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
				mu.Unlock()
				return
			}
			readings[i] = &r
		}()
	}

	wg.Wait()

	// Keep provider order so aggregation is deterministic.
	var ok []ProviderReading
	for _, r := range readings {
		if r != nil {
			ok = append(ok, *r)
		}
	}

	if len(ok) == 0 {
		log.Printf("no successful provider readings for %s", loc.Key())
		return widget.WeatherData{}, fmt.Errorf("no weather data for %q: %w", location, errors.Join(errs...))
	}

	return AggregateReadings(loc, ok), nil
}
