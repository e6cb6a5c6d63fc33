package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(WeatherFetchesTotal.WithLabelValues("success"))

	RecordFetch("success", 150*time.Millisecond)

	after := testutil.ToFloat64(WeatherFetchesTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

func TestRecordCollectionOp(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		err     error
		outcome string
	}{
		{name: "successful add", op: "add", outcome: "success"},
		{name: "failed delete", op: "delete", err: errors.New("boom"), outcome: "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := CollectionOpsTotal.WithLabelValues(tt.op, tt.outcome)
			before := testutil.ToFloat64(counter)

			RecordCollectionOp(tt.op, tt.err)

			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}
