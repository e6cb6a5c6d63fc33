package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weatherki/internal/gateway/gatewaytest"
	"github.com/i474232898/weatherki/internal/store"
	"github.com/i474232898/weatherki/internal/widget"
)

func newSynced(t *testing.T) (*store.Collection, *Controller) {
	t.Helper()
	coll := store.NewCollection(gatewaytest.New())
	sel := NewController()
	coll.Subscribe(sel.Observe)
	return coll, sel
}

func TestController_EmptySetHasNoSelection(t *testing.T) {
	_, sel := newSynced(t)

	loc, ok := sel.Current()
	assert.False(t, ok)
	assert.Empty(t, loc)
}

func TestController_FirstAddSelectsIt(t *testing.T) {
	coll, sel := newSynced(t)

	_, err := coll.Add(context.Background(), "Berlin")
	require.NoError(t, err)

	loc, ok := sel.Current()
	assert.True(t, ok)
	assert.Equal(t, "Berlin", loc)
}

func TestController_Degradation(t *testing.T) {
	coll, sel := newSynced(t)
	ctx := context.Background()

	a, err := coll.Add(ctx, "A")
	require.NoError(t, err)
	b, err := coll.Add(ctx, "B")
	require.NoError(t, err)

	require.NoError(t, sel.Set("B"))

	require.NoError(t, coll.Remove(ctx, b.ID))
	loc, ok := sel.Current()
	assert.True(t, ok)
	assert.Equal(t, "A", loc)

	require.NoError(t, coll.Remove(ctx, a.ID))
	_, ok = sel.Current()
	assert.False(t, ok)
}

func TestController_SelectionSurvivesUnrelatedChanges(t *testing.T) {
	coll, sel := newSynced(t)
	ctx := context.Background()

	a, err := coll.Add(ctx, "A")
	require.NoError(t, err)
	_, err = coll.Add(ctx, "B")
	require.NoError(t, err)
	require.NoError(t, sel.Set("B"))
	require.True(t, sel.StoreInsight("B", "B has fog"))

	_, err = coll.Add(ctx, "C")
	require.NoError(t, err)
	require.NoError(t, coll.Remove(ctx, a.ID))

	loc, _ := sel.Current()
	assert.Equal(t, "B", loc)
	assert.Equal(t, "B has fog", sel.Insight())
}

func TestController_SetRejectsUnknownLocation(t *testing.T) {
	coll, sel := newSynced(t)
	_, err := coll.Add(context.Background(), "Berlin")
	require.NoError(t, err)

	err = sel.Set("Paris")
	assert.ErrorIs(t, err, widget.ErrInvalidSelection)

	loc, _ := sel.Current()
	assert.Equal(t, "Berlin", loc)
}

func TestController_SetIsCaseInsensitive(t *testing.T) {
	coll, sel := newSynced(t)
	ctx := context.Background()
	_, err := coll.Add(ctx, "Berlin")
	require.NoError(t, err)
	_, err = coll.Add(ctx, "New York")
	require.NoError(t, err)

	require.NoError(t, sel.Set("new york"))

	loc, _ := sel.Current()
	assert.Equal(t, "New York", loc)
}

func TestController_InsightClearedWhenSelectionChanges(t *testing.T) {
	coll, sel := newSynced(t)
	ctx := context.Background()
	_, err := coll.Add(ctx, "A")
	require.NoError(t, err)
	b, err := coll.Add(ctx, "B")
	require.NoError(t, err)

	require.True(t, sel.StoreInsight("A", "A is sunny"))
	require.NoError(t, sel.Set("A"))
	assert.Equal(t, "A is sunny", sel.Insight(), "re-selecting the same location keeps the insight")

	require.NoError(t, sel.Set("B"))
	assert.Empty(t, sel.Insight())

	require.True(t, sel.StoreInsight("B", "B is windy"))
	require.NoError(t, coll.Remove(ctx, b.ID))
	assert.Empty(t, sel.Insight(), "insight of a removed selection is invalidated")
}

func TestController_StaleInsightIsDropped(t *testing.T) {
	coll, sel := newSynced(t)
	ctx := context.Background()
	_, err := coll.Add(ctx, "A")
	require.NoError(t, err)
	_, err = coll.Add(ctx, "B")
	require.NoError(t, err)

	require.NoError(t, sel.Set("B"))
	assert.False(t, sel.StoreInsight("A", "late result for A"))
	assert.Empty(t, sel.Insight())
}
