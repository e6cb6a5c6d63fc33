// Package gatewaytest provides an in-memory widget.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/weatherki/internal/widget"
)

// WeatherCall is a FetchWeather call held by a gated Fake until the test
// resolves it.
type WeatherCall struct {
	Location string
	reply    chan weatherReply
}

type weatherReply struct {
	data widget.WeatherData
	err  error
}

// Succeed completes the call with data.
func (c *WeatherCall) Succeed(data widget.WeatherData) {
	c.reply <- weatherReply{data: data}
}

// Fail completes the call with a remote error carrying message.
func (c *WeatherCall) Fail(message string) {
	c.reply <- weatherReply{err: &widget.RemoteError{Op: "fetch weather", Message: message}}
}

// Fake is a scriptable widget.Gateway and widget.InsightGateway.
type Fake struct {
	mu sync.Mutex

	widgets []widget.Widget
	nextID  int
	weather map[string]widget.WeatherData

	ListErr    error
	CreateErr  error
	DeleteErr  error
	WeatherErr error
	InsightErr error

	gated bool
	calls chan *WeatherCall

	creates int
	deletes int
	fetches int
	trivia  []string
	maxIn   map[string]int
	curIn   map[string]int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		weather: make(map[string]widget.WeatherData),
		calls:   make(chan *WeatherCall, 64),
		maxIn:   make(map[string]int),
		curIn:   make(map[string]int),
	}
}

// Gate makes FetchWeather block until each call is resolved through Next.
func (f *Fake) Gate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gated = true
}

// Next returns the next gated FetchWeather call, failing after a timeout.
func (f *Fake) Next() (*WeatherCall, error) {
	select {
	case c := <-f.calls:
		return c, nil
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("no weather call within timeout")
	}
}

// Seed stores widgets as if they had been created remotely.
func (f *Fake) Seed(locations ...string) []widget.Widget {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []widget.Widget
	for _, loc := range locations {
		w := f.newWidgetLocked(loc)
		f.widgets = append(f.widgets, w)
		out = append(out, w)
	}
	return out
}

// SetWeather sets the weather returned for location by an ungated Fake.
func (f *Fake) SetWeather(location string, data widget.WeatherData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weather[widget.LocationKey(location)] = data
}

// Creates returns the number of CreateWidget calls.
func (f *Fake) Creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// Deletes returns the number of DeleteWidget calls.
func (f *Fake) Deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

// Fetches returns the number of FetchWeather calls.
func (f *Fake) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// MaxConcurrentFetches returns the highest number of simultaneous
// FetchWeather calls observed for location.
func (f *Fake) MaxConcurrentFetches(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxIn[widget.LocationKey(location)]
}

// TriviaRequests returns the locations trivia was requested for.
func (f *Fake) TriviaRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trivia...)
}

func (f *Fake) ListWidgets(ctx context.Context) ([]widget.Widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]widget.Widget(nil), f.widgets...), nil
}

func (f *Fake) CreateWidget(ctx context.Context, location string) (widget.Widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.CreateErr != nil {
		return widget.Widget{}, f.CreateErr
	}
	w := f.newWidgetLocked(location)
	f.widgets = append(f.widgets, w)
	return w, nil
}

func (f *Fake) DeleteWidget(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i, w := range f.widgets {
		if w.ID == id {
			f.widgets = append(f.widgets[:i], f.widgets[i+1:]...)
			return nil
		}
	}
	return &widget.RemoteError{Op: "delete widget", Message: "Widget not found"}
}

func (f *Fake) FetchWeather(ctx context.Context, location string) (widget.WeatherData, error) {
	key := widget.LocationKey(location)

	f.mu.Lock()
	f.fetches++
	f.curIn[key]++
	if f.curIn[key] > f.maxIn[key] {
		f.maxIn[key] = f.curIn[key]
	}
	gated := f.gated
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.curIn[key]--
		f.mu.Unlock()
	}()

	if gated {
		call := &WeatherCall{Location: location, reply: make(chan weatherReply, 1)}
		f.calls <- call
		select {
		case r := <-call.reply:
			return r.data, r.err
		case <-ctx.Done():
			return widget.WeatherData{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WeatherErr != nil {
		return widget.WeatherData{}, f.WeatherErr
	}
	data, ok := f.weather[key]
	if !ok {
		return widget.WeatherData{CityName: location, Description: "clear sky", Condition: "clear"}, nil
	}
	return data, nil
}

func (f *Fake) Trivia(ctx context.Context, location string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trivia = append(f.trivia, location)
	if f.InsightErr != nil {
		return "", f.InsightErr
	}
	return "trivia about " + location, nil
}

func (f *Fake) Summary(ctx context.Context, locations []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsightErr != nil {
		return "", f.InsightErr
	}
	return fmt.Sprintf("summary of %d locations", len(locations)), nil
}

func (f *Fake) Chat(ctx context.Context, question string, locations []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsightErr != nil {
		return "", f.InsightErr
	}
	return "answer: " + question, nil
}

func (f *Fake) Suggestions(ctx context.Context, currentLocations []string, interests string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsightErr != nil {
		return "", f.InsightErr
	}
	return "try places for " + interests, nil
}

func (f *Fake) newWidgetLocked(location string) widget.Widget {
	f.nextID++
	return widget.Widget{
		ID:        fmt.Sprintf("w%d", f.nextID),
		Location:  location,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, f.nextID, 0, time.UTC),
	}
}
