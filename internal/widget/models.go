package widget

import (
	"strings"
	"time"
)

// Widget is a location-bound weather entity owned by the remote backend.
// ID and CreatedAt are assigned by the backend, never by the client.
type Widget struct {
	ID          string       `json:"_id"`
	Location    string       `json:"location"`
	CreatedAt   time.Time    `json:"createdAt"`
	WeatherData *WeatherData `json:"weatherData,omitempty"`
}

// WeatherData is the current weather for a widget's location.
// A later fetch replaces it wholesale.
type WeatherData struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
	CityName    string  `json:"cityName"`
	Country     string  `json:"country"`
}

// Clone returns a copy whose WeatherData does not alias w's.
func (w Widget) Clone() Widget {
	if w.WeatherData != nil {
		data := *w.WeatherData
		w.WeatherData = &data
	}
	return w
}

// NormalizeLocation trims surrounding whitespace from user input.
func NormalizeLocation(location string) string {
	return strings.TrimSpace(location)
}

// SameLocation reports whether two locations are equal for uniqueness purposes.
func SameLocation(a, b string) bool {
	return strings.EqualFold(NormalizeLocation(a), NormalizeLocation(b))
}

// LocationKey returns the canonical key for indexing a location.
func LocationKey(location string) string {
	return strings.ToLower(NormalizeLocation(location))
}

// Status is the phase of a widget's weather fetch lifecycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FetchState is the ephemeral fetch lifecycle marker of one widget.
// Message is only set for StatusError.
type FetchState struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Idle is the initial FetchState.
func Idle() FetchState { return FetchState{Status: StatusIdle} }

// Loading marks an in-flight fetch.
func Loading() FetchState { return FetchState{Status: StatusLoading} }

// Success marks the last fetch as applied.
func Success() FetchState { return FetchState{Status: StatusSuccess} }

// Failed marks the last fetch as failed with a display message.
func Failed(message string) FetchState {
	return FetchState{Status: StatusError, Message: message}
}
