package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weatherki/internal/widget"
)

// DefaultBaseURL is the widget backend used when none is configured.
const DefaultBaseURL = "http://localhost:5000/api"

const unavailableMessage = "Service temporarily unavailable"

var (
	errServer      = errors.New("server error")
	errRateLimited = errors.New("rate limited")
)

// ClientConfig configures the REST gateway.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client

	// Circuit breaker settings. Zero values fall back to defaults.
	BreakerMaxRequests uint32
	BreakerTimeout     time.Duration
}

// Client talks to the widget backend over JSON/HTTP. Every call is a single
// attempt. Weather lookups and collection calls go through separate circuits,
// so a failing weather endpoint never blocks widget CRUD.
type Client struct {
	baseURL string
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
	weather *gobreaker.CircuitBreaker
}

var (
	_ widget.Gateway        = (*Client)(nil)
	_ widget.InsightGateway = (*Client)(nil)
)

// NewClient creates a REST gateway for cfg.BaseURL.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL: base,
		http:    hc,
		circuit: newBreaker("widget-backend", cfg),
		weather: newBreaker("widget-backend-weather", cfg),
	}
}

func newBreaker(name string, cfg ClientConfig) *gobreaker.CircuitBreaker {
	maxReq := cfg.BreakerMaxRequests
	if maxReq == 0 {
		maxReq = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxReq,
		Interval:    time.Minute,
		Timeout:     timeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("INFO: circuit %s changed from %s to %s", name, from, to)
		},
	})
}

// ListWidgets returns every widget stored by the backend.
func (c *Client) ListWidgets(ctx context.Context) ([]widget.Widget, error) {
	var out []widget.Widget
	if err := c.do(ctx, c.circuit, "list", http.MethodGet, "/widgets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateWidget asks the backend to create a widget for location.
func (c *Client) CreateWidget(ctx context.Context, location string) (widget.Widget, error) {
	var out widget.Widget
	body := map[string]string{"location": location}
	if err := c.do(ctx, c.circuit, "create", http.MethodPost, "/widgets", body, &out); err != nil {
		return widget.Widget{}, err
	}
	return out, nil
}

// DeleteWidget deletes the widget with the given id.
func (c *Client) DeleteWidget(ctx context.Context, id string) error {
	return c.do(ctx, c.circuit, "delete", http.MethodDelete, "/widgets/"+url.PathEscape(id), nil, nil)
}

// FetchWeather returns the current weather for location.
func (c *Client) FetchWeather(ctx context.Context, location string) (widget.WeatherData, error) {
	var out widget.WeatherData
	if err := c.do(ctx, c.weather, "weather", http.MethodGet, "/weather/"+url.PathEscape(location), nil, &out); err != nil {
		return widget.WeatherData{}, err
	}
	return out, nil
}

// Trivia returns AI-generated weather trivia for location.
func (c *Client) Trivia(ctx context.Context, location string) (string, error) {
	var out struct {
		Trivia string `json:"trivia"`
	}
	err := c.do(ctx, c.circuit, "trivia", http.MethodPost, "/weather/ai/trivia", map[string]any{"location": location}, &out)
	return out.Trivia, err
}

// Summary returns an AI summary of the weather across locations.
func (c *Client) Summary(ctx context.Context, locations []string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.do(ctx, c.circuit, "summary", http.MethodPost, "/weather/ai/summary", map[string]any{"locations": locations}, &out)
	return out.Summary, err
}

// Chat answers question in the context of locations.
func (c *Client) Chat(ctx context.Context, question string, locations []string) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	body := map[string]any{"question": question, "locations": locations}
	err := c.do(ctx, c.circuit, "chat", http.MethodPost, "/weather/ai/chat", body, &out)
	return out.Response, err
}

// Suggestions recommends new locations for the given interests.
func (c *Client) Suggestions(ctx context.Context, currentLocations []string, interests string) (string, error) {
	var out struct {
		Suggestions string `json:"suggestions"`
	}
	body := map[string]any{"currentLocations": currentLocations, "interests": interests}
	err := c.do(ctx, c.circuit, "suggestions", http.MethodPost, "/weather/ai/suggestions", body, &out)
	return out.Suggestions, err
}

type response struct {
	status int
	body   []byte
}

// do performs one request and decodes a 2xx body into out. Any failure is
// returned as *widget.RemoteError carrying the backend's message if it sent one.
func (c *Client) do(ctx context.Context, cb *gobreaker.CircuitBreaker, op, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &widget.RemoteError{Op: op, Err: err}
		}
		payload = b
	}

	log.Printf("DEBUG: %s %s", method, path)

	result, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		r := &response{status: resp.StatusCode, body: body}

		// Only backend health counts against the breaker.
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return r, errRateLimited
		case resp.StatusCode >= 500:
			return r, errServer
		}
		return r, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Printf("ERROR: %s %s rejected: %v", method, path, err)
		return &widget.RemoteError{Op: op, Message: unavailableMessage, Err: err}
	}

	r, _ := result.(*response)
	if err != nil && r == nil {
		log.Printf("ERROR: %s %s failed: %v", method, path, err)
		return &widget.RemoteError{Op: op, Err: err}
	}

	if r.status < 200 || r.status >= 300 {
		msg := errorMessage(r.body)
		log.Printf("ERROR: %s %s returned %d: %s", method, path, r.status, msg)
		return &widget.RemoteError{Op: op, Message: msg, Err: fmt.Errorf("status %d", r.status)}
	}

	if out == nil || len(bytes.TrimSpace(r.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return &widget.RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts "message" or a string "error" from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var s string
	if json.Unmarshal(payload.Error, &s) == nil {
		return s
	}
	return ""
}
