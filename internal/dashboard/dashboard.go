// Package dashboard composes the widget collection, the fetch lifecycle,
// the deletion gate and the selection into the surface used by presentation.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/weatherki/internal/deletion"
	"github.com/i474232898/weatherki/internal/fetch"
	"github.com/i474232898/weatherki/internal/metrics"
	"github.com/i474232898/weatherki/internal/selection"
	"github.com/i474232898/weatherki/internal/store"
	"github.com/i474232898/weatherki/internal/widget"
)

// OpKind names the collection-level operation a Problem belongs to.
type OpKind string

const (
	OpLoad   OpKind = "load"
	OpAdd    OpKind = "add"
	OpDelete OpKind = "delete"
)

// Problem is the single dismissible collection-level error.
type Problem struct {
	Op      OpKind `json:"op"`
	Message string `json:"message"`
}

// WidgetView is a widget together with its fetch state.
type WidgetView struct {
	widget.Widget
	Fetch widget.FetchState `json:"fetch"`
}

// View is the read model handed to presentation.
type View struct {
	Widgets       []WidgetView `json:"widgets"`
	Selection     string       `json:"selection,omitempty"`
	Insight       string       `json:"insight,omitempty"`
	PendingDelete string       `json:"pendingDelete,omitempty"`
	Error         *Problem     `json:"error,omitempty"`
	Loaded        bool         `json:"loaded"`
}

// Options tunes a Dashboard.
type Options struct {
	// FetchTimeout bounds each weather request; zero disables the deadline.
	FetchTimeout time.Duration
}

// Dashboard orchestrates the widget collection and its dependent components.
type Dashboard struct {
	gateway  widget.Gateway
	insights widget.InsightGateway

	widgets   *store.Collection
	fetches   *fetch.Controller
	deletes   *deletion.Flow
	selection *selection.Controller

	mu      sync.Mutex
	problem *Problem
	loaded  bool
}

// New wires a Dashboard on top of gateway. Insight operations are available
// when gateway also implements widget.InsightGateway.
func New(gateway widget.Gateway, opts Options) *Dashboard {
	widgets := store.NewCollection(gateway)
	d := &Dashboard{
		gateway:   gateway,
		widgets:   widgets,
		fetches:   fetch.NewController(widgets, gateway, opts.FetchTimeout),
		deletes:   deletion.NewFlow(widgets),
		selection: selection.NewController(),
	}
	if ig, ok := gateway.(widget.InsightGateway); ok {
		d.insights = ig
	}

	widgets.Subscribe(d.fetches.Observe)
	widgets.Subscribe(d.selection.Observe)
	widgets.Subscribe(func(change store.Change) {
		metrics.WidgetsTotal.Set(float64(len(change.Widgets)))
	})
	return d
}

// LoadAll fetches the whole collection once from the gateway. Widgets that
// survive a reload have any in-flight fetch abandoned.
func (d *Dashboard) LoadAll(ctx context.Context) error {
	list, err := d.gateway.ListWidgets(ctx)
	metrics.RecordCollectionOp(string(OpLoad), err)
	if err != nil {
		log.Printf("ERROR: failed to load widgets: %v", err)
		d.fail(OpLoad, widget.RemoteMessage(err, "Failed to load widgets"))
		return widget.NewRemoteError("list widgets", err)
	}

	for _, w := range list {
		if _, ok := d.widgets.Get(w.ID); ok {
			d.fetches.Reset(w.ID)
		}
	}
	d.widgets.Reset(list)

	d.mu.Lock()
	d.loaded = true
	d.mu.Unlock()
	d.succeed(OpLoad)
	log.Printf("INFO: loaded %d widgets", d.widgets.Len())
	return nil
}

// AddWidget creates a widget for location. Duplicates are rejected locally.
func (d *Dashboard) AddWidget(ctx context.Context, location string) (widget.Widget, error) {
	w, err := d.widgets.Add(ctx, location)
	switch {
	case err == nil:
		metrics.RecordCollectionOp(string(OpAdd), nil)
		d.succeed(OpAdd)
		log.Printf("INFO: created widget %s for %q", w.ID, w.Location)
		return w, nil
	case errors.Is(err, widget.ErrDuplicateLocation):
		d.fail(OpAdd, fmt.Sprintf("Widget for %q already exists", widget.NormalizeLocation(location)))
	case errors.Is(err, widget.ErrInvalidLocation):
		// Input validation only; nothing to show at collection level.
	default:
		metrics.RecordCollectionOp(string(OpAdd), err)
		log.Printf("ERROR: failed to create widget for %q: %v", location, err)
		d.fail(OpAdd, widget.RemoteMessage(err, "Failed to create widget"))
	}
	return widget.Widget{}, err
}

// RequestDelete opens the confirmation gate for id.
func (d *Dashboard) RequestDelete(id string) error {
	if _, ok := d.widgets.Get(id); !ok {
		return fmt.Errorf("%w: %s", widget.ErrNotFound, id)
	}
	d.deletes.Request(id)
	return nil
}

// ConfirmDelete removes the widget awaiting confirmation. It does nothing
// when no deletion was requested.
func (d *Dashboard) ConfirmDelete(ctx context.Context) error {
	id, err := d.deletes.Confirm(ctx)
	var remote *widget.RemoteError
	switch {
	case errors.Is(err, deletion.ErrNothingPending):
		return nil
	case err == nil:
		metrics.RecordCollectionOp(string(OpDelete), nil)
		d.succeed(OpDelete)
		log.Printf("INFO: deleted widget %s", id)
		return nil
	case !errors.As(err, &remote) && errors.Is(err, widget.ErrNotFound):
		// Gone locally before the remote was asked.
		return err
	default:
		metrics.RecordCollectionOp(string(OpDelete), err)
		log.Printf("ERROR: failed to delete widget %s: %v", id, err)
		d.fail(OpDelete, widget.RemoteMessage(err, "Failed to delete widget"))
		return err
	}
}

// CancelDelete closes the confirmation gate.
func (d *Dashboard) CancelDelete() {
	d.deletes.Cancel()
}

// RefreshWeather starts a weather fetch for id unless one is already loading.
func (d *Dashboard) RefreshWeather(id string) error {
	_, err := d.fetches.Refresh(id)
	return err
}

// RefreshAll starts a fetch for every widget not already loading and
// returns how many were started.
func (d *Dashboard) RefreshAll() int {
	started := 0
	for _, w := range d.widgets.List() {
		ok, err := d.fetches.Refresh(w.ID)
		if err != nil {
			continue
		}
		if ok {
			started++
		}
	}
	return started
}

// SetSelection selects location for the auxiliary views.
func (d *Dashboard) SetSelection(location string) error {
	return d.selection.Set(location)
}

// DismissError clears the collection-level error.
func (d *Dashboard) DismissError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.problem = nil
}

// Error returns the collection-level error, if any.
func (d *Dashboard) Error() *Problem {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.problem == nil {
		return nil
	}
	p := *d.problem
	return &p
}

// View composes the current read model.
func (d *Dashboard) View() View {
	list := d.widgets.List()
	states := d.fetches.States()

	v := View{Widgets: make([]WidgetView, 0, len(list))}
	for _, w := range list {
		st, ok := states[w.ID]
		if !ok {
			st = widget.Idle()
		}
		v.Widgets = append(v.Widgets, WidgetView{Widget: w, Fetch: st})
	}
	v.Selection, _ = d.selection.Current()
	v.Insight = d.selection.Insight()
	if id, ok := d.deletes.Pending(); ok {
		v.PendingDelete = id
	}
	v.Error = d.Error()

	d.mu.Lock()
	v.Loaded = d.loaded
	d.mu.Unlock()
	return v
}

// Wait blocks until all in-flight weather fetches have completed.
func (d *Dashboard) Wait() {
	d.fetches.Wait()
}

func (d *Dashboard) fail(op OpKind, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.problem = &Problem{Op: op, Message: message}
}

func (d *Dashboard) succeed(op OpKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.problem != nil && d.problem.Op == op {
		d.problem = nil
	}
}
