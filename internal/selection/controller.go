// Package selection keeps the location selected by auxiliary views valid
// while the widget collection changes.
package selection

import (
	"fmt"
	"sync"

	"github.com/i474232898/weatherki/internal/store"
	"github.com/i474232898/weatherki/internal/widget"
)

// Controller tracks one selected location and the insight text derived from it.
// The selection is empty iff the location set is empty.
type Controller struct {
	mu sync.Mutex

	locations   []string
	selected    string
	insight     string
	lastVersion uint64
}

// NewController creates a Controller for an empty location set.
func NewController() *Controller {
	return &Controller{}
}

// Observe applies a collection change. If the selected location disappeared,
// the selection falls back to the first location or to none.
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
	c.locations = change.Locations()

	if c.selected != "" && c.indexLocked(c.selected) >= 0 {
		return
	}
	next := ""
	if len(c.locations) > 0 {
		next = c.locations[0]
	}
	c.selectLocked(next)
}

// Set selects location. Locations outside the current set are rejected.
func (c *Controller) Set(location string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(location)
	if i < 0 {
		return fmt.Errorf("%w: %q", widget.ErrInvalidSelection, location)
	}
	c.selectLocked(c.locations[i])
	return nil
}

// Current returns the selected location, false when the set is empty.
func (c *Controller) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != ""
}

// Locations returns the location set the selection is drawn from.
func (c *Controller) Locations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.locations...)
}

// Insight returns the cached insight for the current selection.
func (c *Controller) Insight() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insight
}

// StoreInsight caches text for location. It is dropped, returning false,
// when the selection moved away from location in the meantime.
func (c *Controller) StoreInsight(location, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == "" || c.selected != location {
		return false
	}
	c.insight = text
	return true
}

func (c *Controller) selectLocked(location string) {
	if location == c.selected {
		return
	}
	c.selected = location
	c.insight = ""
}

func (c *Controller) indexLocked(location string) int {
	for i, loc := range c.locations {
		if widget.SameLocation(loc, location) {
			return i
		}
	}
	return -1
}
