package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weatherki/internal/gateway/gatewaytest"
	"github.com/i474232898/weatherki/internal/store"
	"github.com/i474232898/weatherki/internal/widget"
)

func newHarness(t *testing.T) (*gatewaytest.Fake, *store.Collection, *Controller) {
	t.Helper()
	fake := gatewaytest.New()
	coll := store.NewCollection(fake)
	ctl := NewController(coll, fake, time.Second)
	coll.Subscribe(ctl.Observe)
	return fake, coll, ctl
}

func waitForStatus(t *testing.T, ctl *Controller, id string, want widget.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, ok := ctl.State(id)
		return ok && st.Status == want
	}, 2*time.Second, 5*time.Millisecond, "widget %s never reached %s", id, want)
}

func TestController_NewWidgetLoadsThenSucceeds(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.Gate()

	w, err := coll.Add(context.Background(), "Berlin")
	require.NoError(t, err)

	st, ok := ctl.State(w.ID)
	require.True(t, ok)
	assert.Equal(t, widget.StatusLoading, st.Status)

	call, err := fake.Next()
	require.NoError(t, err)
	assert.Equal(t, "Berlin", call.Location)
	call.Succeed(widget.WeatherData{Temperature: 18, CityName: "Berlin", Country: "DE"})

	ctl.Wait()
	st, _ = ctl.State(w.ID)
	assert.Equal(t, widget.Success(), st)

	got, _ := coll.Get(w.ID)
	require.NotNil(t, got.WeatherData)
	assert.Equal(t, 18.0, got.WeatherData.Temperature)
}

func TestController_WidgetWithWeatherStaysIdle(t *testing.T) {
	fake, coll, ctl := newHarness(t)

	coll.Reset([]widget.Widget{{ID: "1", Location: "Paris", WeatherData: &widget.WeatherData{Temperature: 9}}})

	st, ok := ctl.State("1")
	require.True(t, ok)
	assert.Equal(t, widget.StatusIdle, st.Status)
	assert.Zero(t, fake.Fetches())
}

func TestController_ErrorKeepsPreviousWeather(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	previous := widget.WeatherData{Temperature: 9, Description: "light rain"}
	coll.Reset([]widget.Widget{{ID: "1", Location: "Paris", WeatherData: &previous}})

	fake.WeatherErr = &widget.RemoteError{Op: "fetch weather", Message: "Location not found"}
	started, err := ctl.Refresh("1")
	require.NoError(t, err)
	require.True(t, started)
	ctl.Wait()

	st, _ := ctl.State("1")
	assert.Equal(t, widget.Failed("Location not found"), st)

	got, _ := coll.Get("1")
	require.NotNil(t, got.WeatherData)
	assert.Equal(t, previous, *got.WeatherData)
}

func TestController_ErrorWithoutMessageUsesDefault(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.WeatherErr = errors.New("dial tcp: connection refused")

	w, err := coll.Add(context.Background(), "Oslo")
	require.NoError(t, err)
	ctl.Wait()

	st, _ := ctl.State(w.ID)
	assert.Equal(t, widget.Failed(DefaultErrorMessage), st)
}

func TestController_RefreshWhileLoadingIsNoop(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.Gate()

	w, err := coll.Add(context.Background(), "Berlin")
	require.NoError(t, err)
	call, err := fake.Next()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		started, err := ctl.Refresh(w.ID)
		require.NoError(t, err)
		assert.False(t, started)
	}

	call.Succeed(widget.WeatherData{Temperature: 1})
	ctl.Wait()

	assert.Equal(t, 1, fake.Fetches())
	assert.Equal(t, 1, fake.MaxConcurrentFetches("Berlin"))
}

func TestController_RefreshAfterTerminalStateStartsAgain(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.WeatherErr = errors.New("boom")

	w, err := coll.Add(context.Background(), "Rome")
	require.NoError(t, err)
	ctl.Wait()
	waitForStatus(t, ctl, w.ID, widget.StatusError)

	fake.WeatherErr = nil
	started, err := ctl.Refresh(w.ID)
	require.NoError(t, err)
	assert.True(t, started)
	ctl.Wait()

	st, _ := ctl.State(w.ID)
	assert.Equal(t, widget.StatusSuccess, st.Status)
	assert.Equal(t, 2, fake.Fetches())
}

func TestController_RefreshUnknownWidget(t *testing.T) {
	_, _, ctl := newHarness(t)

	_, err := ctl.Refresh("missing")
	assert.ErrorIs(t, err, widget.ErrNotFound)
}

func TestController_LastRequestWins(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.Gate()

	w, err := coll.Add(context.Background(), "Berlin")
	require.NoError(t, err)
	first, err := fake.Next()
	require.NoError(t, err)

	ctl.Reset(w.ID)
	started, err := ctl.Refresh(w.ID)
	require.NoError(t, err)
	require.True(t, started)
	second, err := fake.Next()
	require.NoError(t, err)

	// The later request completes first, the earlier one arrives late.
	second.Succeed(widget.WeatherData{Temperature: 22, Description: "newer"})
	waitForStatus(t, ctl, w.ID, widget.StatusSuccess)
	first.Succeed(widget.WeatherData{Temperature: 3, Description: "older"})
	ctl.Wait()

	st, _ := ctl.State(w.ID)
	assert.Equal(t, widget.StatusSuccess, st.Status)
	got, _ := coll.Get(w.ID)
	require.NotNil(t, got.WeatherData)
	assert.Equal(t, "newer", got.WeatherData.Description)
}

func TestController_StaleSuccessDoesNotOverrideNewerError(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.Gate()

	w, err := coll.Add(context.Background(), "Berlin")
	require.NoError(t, err)
	first, err := fake.Next()
	require.NoError(t, err)

	ctl.Reset(w.ID)
	_, err = ctl.Refresh(w.ID)
	require.NoError(t, err)
	second, err := fake.Next()
	require.NoError(t, err)

	second.Fail("upstream unavailable")
	waitForStatus(t, ctl, w.ID, widget.StatusError)
	first.Succeed(widget.WeatherData{Temperature: 3})
	ctl.Wait()

	st, _ := ctl.State(w.ID)
	assert.Equal(t, widget.Failed("upstream unavailable"), st)
	got, _ := coll.Get(w.ID)
	assert.Nil(t, got.WeatherData)
}

func TestController_RemovalDiscardsInFlightResult(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.Gate()
	ctx := context.Background()

	w, err := coll.Add(ctx, "Berlin")
	require.NoError(t, err)
	call, err := fake.Next()
	require.NoError(t, err)

	require.NoError(t, coll.Remove(ctx, w.ID))

	_, ok := ctl.State(w.ID)
	assert.False(t, ok, "state must be pruned on removal")

	call.Succeed(widget.WeatherData{Temperature: 30})
	ctl.Wait()

	_, ok = ctl.State(w.ID)
	assert.False(t, ok, "late completion must not resurrect state")
	assert.Empty(t, ctl.States())
	_, ok = coll.Get(w.ID)
	assert.False(t, ok)
}

func TestController_IndependentWidgets(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.Gate()
	ctx := context.Background()

	a, err := coll.Add(ctx, "A")
	require.NoError(t, err)
	callA, err := fake.Next()
	require.NoError(t, err)
	b, err := coll.Add(ctx, "B")
	require.NoError(t, err)
	callB, err := fake.Next()
	require.NoError(t, err)

	callB.Fail("B is down")
	waitForStatus(t, ctl, b.ID, widget.StatusError)

	st, _ := ctl.State(a.ID)
	assert.Equal(t, widget.StatusLoading, st.Status)

	callA.Succeed(widget.WeatherData{Temperature: 5})
	ctl.Wait()

	st, _ = ctl.State(a.ID)
	assert.Equal(t, widget.StatusSuccess, st.Status)
}

func TestController_StaleChangeIsIgnored(t *testing.T) {
	fake := gatewaytest.New()
	ctl := NewController(store.NewCollection(fake), fake, time.Second)

	ctl.Observe(store.Change{Kind: store.ChangeRemoved, Version: 5})
	ctl.Observe(store.Change{
		Kind:    store.ChangeAdded,
		Version: 4,
		Widgets: []widget.Widget{{ID: "ghost", Location: "Nowhere"}},
	})

	assert.Empty(t, ctl.States())
	assert.Zero(t, fake.Fetches())
}

func TestController_ReloadRestartsAbandonedFetch(t *testing.T) {
	fake, coll, ctl := newHarness(t)
	fake.Gate()

	w, err := coll.Add(context.Background(), "Lima")
	require.NoError(t, err)
	stale, err := fake.Next()
	require.NoError(t, err)

	ctl.Reset(w.ID)
	coll.Reset([]widget.Widget{{ID: w.ID, Location: "Lima"}})

	st, _ := ctl.State(w.ID)
	assert.Equal(t, widget.StatusLoading, st.Status)
	fresh, err := fake.Next()
	require.NoError(t, err)

	stale.Succeed(widget.WeatherData{Description: "stale"})
	fresh.Succeed(widget.WeatherData{Description: "fresh"})
	ctl.Wait()

	got, _ := coll.Get(w.ID)
	require.NotNil(t, got.WeatherData)
	assert.Equal(t, "fresh", got.WeatherData.Description)
}
