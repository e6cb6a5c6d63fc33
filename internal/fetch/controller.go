// Package fetch drives the per-widget weather fetch lifecycle
// (idle, loading, success, error).
package fetch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/weatherki/internal/metrics"
	"github.com/i474232898/weatherki/internal/store"
	"github.com/i474232898/weatherki/internal/widget"
)

// DefaultErrorMessage is shown when the gateway failure carries no message.
const DefaultErrorMessage = "Failed to fetch weather data"

// Collection is the widget source the controller reads from and writes to.
type Collection interface {
	Get(id string) (widget.Widget, bool)
	ReplaceWeatherData(id string, data widget.WeatherData) error
}

// Fetcher looks up the current weather for a location.
type Fetcher interface {
	FetchWeather(ctx context.Context, location string) (widget.WeatherData, error)
}

type entry struct {
	state widget.FetchState
	// token of the request whose completion may still be applied
	token uint64
}

// Controller keeps one FetchState per live widget and runs at most one
// weather request per widget at a time.
type Controller struct {
	mu sync.Mutex

	collection Collection
	fetcher    Fetcher
	timeout    time.Duration

	entries     map[string]*entry
	nextToken   uint64
	lastVersion uint64

	wg sync.WaitGroup
}

// NewController creates a Controller. A timeout <= 0 disables the
// per-request deadline.
func NewController(collection Collection, fetcher Fetcher, timeout time.Duration) *Controller {
	return &Controller{
		collection: collection,
		fetcher:    fetcher,
		timeout:    timeout,
		entries:    make(map[string]*entry),
	}
}

// Observe keeps the entries in step with the collection. New widgets without
// weather data start loading right away; removed widgets lose their entry.
func (c *Controller) Observe(change store.Change) {
	if change.Kind == store.ChangeWeatherReplaced {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if change.Version <= c.lastVersion {
		return
	}
	c.lastVersion = change.Version

	live := make(map[string]struct{}, len(change.Widgets))
	for _, w := range change.Widgets {
		live[w.ID] = struct{}{}
		e, ok := c.entries[w.ID]
		if !ok {
			e = &entry{state: widget.Idle()}
			c.entries[w.ID] = e
		} else if change.Kind != store.ChangeReset || e.state.Status != widget.StatusIdle {
			continue
		}
		if w.WeatherData == nil {
			c.startLocked(w.ID, w.Location, e)
		}
	}

	for id, e := range c.entries {
		if _, ok := live[id]; ok {
			continue
		}
		if e.state.Status == widget.StatusLoading {
			metrics.FetchesInFlight.Dec()
		}
		delete(c.entries, id)
	}
}

// Refresh starts a new fetch for the widget. It reports false without doing
// anything when a fetch for the widget is already loading.
func (c *Controller) Refresh(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.collection.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", widget.ErrNotFound, id)
	}

	e, ok := c.entries[id]
	if !ok {
		e = &entry{state: widget.Idle()}
		c.entries[id] = e
	}
	if e.state.Status == widget.StatusLoading {
		return false, nil
	}

	c.startLocked(id, w.Location, e)
	return true, nil
}

// Reset abandons any in-flight request for the widget and returns it to idle.
// A late completion of the abandoned request is discarded.
func (c *Controller) Reset(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return
	}
	if e.state.Status == widget.StatusLoading {
		metrics.FetchesInFlight.Dec()
	}
	c.nextToken++
	e.token = c.nextToken
	e.state = widget.Idle()
}

// State returns the FetchState of a live widget.
func (c *Controller) State(id string) (widget.FetchState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return widget.FetchState{}, false
	}
	return e.state, true
}

// States returns a copy of all FetchStates keyed by widget id.
func (c *Controller) States() map[string]widget.FetchState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]widget.FetchState, len(c.entries))
	for id, e := range c.entries {
		out[id] = e.state
	}
	return out
}

// Wait blocks until every started request has completed.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) startLocked(id, location string, e *entry) {
	c.nextToken++
	e.token = c.nextToken
	e.state = widget.Loading()
	metrics.FetchesInFlight.Inc()

	c.wg.Add(1)
	go c.run(id, location, e.token)
}

func (c *Controller) run(id, location string, token uint64) {
	defer c.wg.Done()

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := c.fetcher.FetchWeather(ctx, location)
	c.complete(id, token, data, err, time.Since(start))
}

func (c *Controller) complete(id string, token uint64, data widget.WeatherData, err error, took time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || e.token != token {
		log.Printf("DEBUG: discarding stale weather result for widget %s", id)
		metrics.RecordFetch("discarded", took)
		return
	}
	metrics.FetchesInFlight.Dec()

	if err != nil {
		log.Printf("weather fetch failed for widget %s: %v", id, err)
		e.state = widget.Failed(widget.RemoteMessage(err, DefaultErrorMessage))
		metrics.RecordFetch("error", took)
		return
	}

	if err := c.collection.ReplaceWeatherData(id, data); err != nil {
		// Removed from the collection before the observer pruned it.
		delete(c.entries, id)
		metrics.RecordFetch("discarded", took)
		return
	}
	e.state = widget.Success()
	metrics.RecordFetch("success", took)
}
