package store

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/i474232898/weatherki/internal/widget"
)

// Remote is the part of the gateway the collection writes through.
type Remote interface {
	CreateWidget(ctx context.Context, location string) (widget.Widget, error)
	DeleteWidget(ctx context.Context, id string) error
}

// ChangeKind identifies which mutation produced a Change.
type ChangeKind string

const (
	ChangeReset           ChangeKind = "reset"
	ChangeAdded           ChangeKind = "added"
	ChangeRemoved         ChangeKind = "removed"
	ChangeWeatherReplaced ChangeKind = "weather_replaced"
)

// Change is delivered to observers after every successful mutation.
// Widgets is a snapshot of the collection after the mutation. Version grows
// with every mutation; observers racing with concurrent mutations can drop a
// change whose Version is not newer than one already applied.
type Change struct {
	Kind    ChangeKind
	ID      string
	Version uint64
	Widgets []widget.Widget
}

// Locations returns the locations of the snapshot in collection order.
func (c Change) Locations() []string {
	locs := make([]string, len(c.Widgets))
	for i, w := range c.Widgets {
		locs[i] = w.Location
	}
	return locs
}

// Observer receives collection changes. It runs synchronously on the
// mutating goroutine, after the collection lock has been released.
type Observer func(Change)

// Collection is the authoritative ordered list of widgets.
// It is the only writer of widget weather data.
type Collection struct {
	mu sync.RWMutex

	remote  Remote
	widgets []widget.Widget
	version uint64

	// locations with a CreateWidget call in flight, keyed by LocationKey
	pending map[string]struct{}

	obsMu     sync.RWMutex
	observers []Observer
}

// NewCollection creates an empty Collection writing through remote.
func NewCollection(remote Remote) *Collection {
	return &Collection{
		remote:  remote,
		pending: make(map[string]struct{}),
	}
}

// Subscribe registers an observer. Observers are called in registration order.
func (c *Collection) Subscribe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

// List returns a copy of the widgets in insertion order.
func (c *Collection) List() []widget.Widget {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Locations returns the widget locations in insertion order.
func (c *Collection) Locations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locs := make([]string, len(c.widgets))
	for i, w := range c.widgets {
		locs[i] = w.Location
	}
	return locs
}

// Len returns the number of widgets.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.widgets)
}

// Get returns the widget with the given id.
func (c *Collection) Get(id string) (widget.Widget, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexLocked(id)
	if i < 0 {
		return widget.Widget{}, false
	}
	return c.widgets[i].Clone(), true
}

// Reset replaces the whole collection, typically with the result of the
// initial load. Widgets repeating an earlier location are dropped.
func (c *Collection) Reset(widgets []widget.Widget) {
	c.mu.Lock()
	seen := make(map[string]struct{}, len(widgets))
	next := make([]widget.Widget, 0, len(widgets))
	for _, w := range widgets {
		key := widget.LocationKey(w.Location)
		if _, dup := seen[key]; dup {
			log.Printf("INFO: dropping widget %s: location %q already present", w.ID, w.Location)
			continue
		}
		seen[key] = struct{}{}
		next = append(next, w.Clone())
	}
	c.widgets = next
	change := c.changeLocked(ChangeReset, "")
	c.mu.Unlock()

	c.notify(change)
}

// Add creates a widget for location through the remote and appends it once
// the remote confirms. Duplicates are rejected before any remote call.
func (c *Collection) Add(ctx context.Context, location string) (widget.Widget, error) {
	location = widget.NormalizeLocation(location)
	if location == "" {
		return widget.Widget{}, widget.ErrInvalidLocation
	}
	key := widget.LocationKey(location)

	c.mu.Lock()
	if c.hasLocationLocked(location) {
		c.mu.Unlock()
		return widget.Widget{}, fmt.Errorf("%w: %q", widget.ErrDuplicateLocation, location)
	}
	if _, inFlight := c.pending[key]; inFlight {
		c.mu.Unlock()
		return widget.Widget{}, fmt.Errorf("%w: %q", widget.ErrDuplicateLocation, location)
	}
	c.pending[key] = struct{}{}
	c.mu.Unlock()

	created, err := c.remote.CreateWidget(ctx, location)

	c.mu.Lock()
	delete(c.pending, key)
	if err != nil {
		c.mu.Unlock()
		return widget.Widget{}, widget.NewRemoteError("create widget", err)
	}
	if c.indexLocked(created.ID) >= 0 {
		c.mu.Unlock()
		return widget.Widget{}, fmt.Errorf("%w: %q", widget.ErrDuplicateLocation, created.Location)
	}
	if c.hasLocationLocked(created.Location) {
		// The backend normalized the location onto one we already hold.
		// Undo the remote create so it does not come back on the next load.
		c.mu.Unlock()
		if err := c.remote.DeleteWidget(ctx, created.ID); err != nil {
			log.Printf("ERROR: failed to delete duplicate widget %s for %q: %v", created.ID, created.Location, err)
		}
		return widget.Widget{}, fmt.Errorf("%w: %q", widget.ErrDuplicateLocation, created.Location)
	}
	c.widgets = append(c.widgets, created.Clone())
	change := c.changeLocked(ChangeAdded, created.ID)
	c.mu.Unlock()

	c.notify(change)
	return created.Clone(), nil
}

// Remove deletes the widget through the remote and drops the local entry only
// after the remote confirmed. On failure the widget stays in the collection.
func (c *Collection) Remove(ctx context.Context, id string) error {
	if _, ok := c.Get(id); !ok {
		return fmt.Errorf("%w: %s", widget.ErrNotFound, id)
	}

	if err := c.remote.DeleteWidget(ctx, id); err != nil {
		return widget.NewRemoteError("delete widget", err)
	}

	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		// Removed concurrently; the remote state already matches.
		c.mu.Unlock()
		return nil
	}
	c.widgets = append(c.widgets[:i], c.widgets[i+1:]...)
	change := c.changeLocked(ChangeRemoved, id)
	c.mu.Unlock()

	c.notify(change)
	return nil
}

// ReplaceWeatherData attaches data to the widget, replacing any previous data.
func (c *Collection) ReplaceWeatherData(id string, data widget.WeatherData) error {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", widget.ErrNotFound, id)
	}
	c.widgets[i].WeatherData = &data
	change := c.changeLocked(ChangeWeatherReplaced, id)
	c.mu.Unlock()

	c.notify(change)
	return nil
}

func (c *Collection) notify(change Change) {
	c.obsMu.RLock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.obsMu.RUnlock()

	for _, o := range observers {
		o(change)
	}
}

func (c *Collection) changeLocked(kind ChangeKind, id string) Change {
	c.version++
	return Change{Kind: kind, ID: id, Version: c.version, Widgets: c.snapshotLocked()}
}

func (c *Collection) snapshotLocked() []widget.Widget {
	out := make([]widget.Widget, len(c.widgets))
	for i, w := range c.widgets {
		out[i] = w.Clone()
	}
	return out
}

func (c *Collection) indexLocked(id string) int {
	for i, w := range c.widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (c *Collection) hasLocationLocked(location string) bool {
	for _, w := range c.widgets {
		if widget.SameLocation(w.Location, location) {
			return true
		}
	}
	return false
}
