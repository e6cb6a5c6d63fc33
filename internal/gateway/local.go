package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weatherki/internal/widget"
)

// WeatherSource produces aggregated weather for a free-text location.
type WeatherSource interface {
	FetchWeather(ctx context.Context, location string) (widget.WeatherData, error)
}

// Local is an in-process backend: widgets live in memory and weather comes
// straight from the provider aggregation.
type Local struct {
	mu      sync.RWMutex
	widgets []widget.Widget
	weather WeatherSource
	now     func() time.Time
}

var _ widget.Gateway = (*Local)(nil)

// NewLocal creates an empty in-process backend fetching weather from weather.
func NewLocal(weather WeatherSource) *Local {
	return &Local{
		weather: weather,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListWidgets returns copies of all widgets in creation order.
func (l *Local) ListWidgets(ctx context.Context) ([]widget.Widget, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]widget.Widget, len(l.widgets))
	for i, w := range l.widgets {
		out[i] = w.Clone()
	}
	return out, nil
}

// CreateWidget stores a widget for location unless one already exists.
func (l *Local) CreateWidget(ctx context.Context, location string) (widget.Widget, error) {
	location = widget.NormalizeLocation(location)
	if location == "" {
		return widget.Widget{}, &widget.RemoteError{Op: "create", Message: "Location is required", Err: widget.ErrInvalidLocation}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, w := range l.widgets {
		if widget.SameLocation(w.Location, location) {
			return widget.Widget{}, &widget.RemoteError{
				Op:      "create",
				Message: fmt.Sprintf("Widget for %q already exists", location),
				Err:     widget.ErrDuplicateLocation,
			}
		}
	}

	w := widget.Widget{
		ID:        uuid.NewString(),
		Location:  location,
		CreatedAt: l.now(),
	}
	l.widgets = append(l.widgets, w)
	log.Printf("INFO: created widget %s for %s", w.ID, location)
	return w.Clone(), nil
}

// DeleteWidget removes the widget with the given id.
func (l *Local) DeleteWidget(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, w := range l.widgets {
		if w.ID == id {
			l.widgets = append(l.widgets[:i], l.widgets[i+1:]...)
			log.Printf("INFO: deleted widget %s", id)
			return nil
		}
	}
	return &widget.RemoteError{Op: "delete", Message: "Widget not found", Err: widget.ErrNotFound}
}

// FetchWeather aggregates the current weather for location.
func (l *Local) FetchWeather(ctx context.Context, location string) (widget.WeatherData, error) {
	if l.weather == nil {
		return widget.WeatherData{}, &widget.RemoteError{Op: "weather", Message: unavailableMessage}
	}
	data, err := l.weather.FetchWeather(ctx, location)
	if err != nil {
		re := &widget.RemoteError{Op: "weather", Err: err}
		if errors.Is(err, widget.ErrInvalidLocation) {
			re.Message = "Location is required"
		}
		return widget.WeatherData{}, re
	}
	return data, nil
}
