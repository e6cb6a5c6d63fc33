// Package metrics holds the Prometheus collectors for the widget dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WeatherFetchesTotal counts completed weather fetches by outcome
	// (success, error, discarded).
	WeatherFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherki_weather_fetches_total",
			Help: "Total number of completed weather fetches by outcome",
		},
		[]string{"outcome"},
	)

	// WeatherFetchDuration measures the gateway round trip of a weather fetch.
	WeatherFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weatherki_weather_fetch_duration_seconds",
			Help:    "Weather fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// FetchesInFlight tracks fetches currently in the loading state.
	FetchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherki_weather_fetches_in_flight",
			Help: "Number of weather fetches currently loading",
		},
	)

	// CollectionOpsTotal counts collection operations by kind and outcome.
	CollectionOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherki_collection_operations_total",
			Help: "Total number of collection operations by kind and outcome",
		},
		[]string{"op", "outcome"},
	)

	// WidgetsTotal is the current size of the widget collection.
	WidgetsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherki_widgets",
			Help: "Number of widgets in the collection",
		},
	)
)

// RecordFetch records the outcome of one weather fetch.
func RecordFetch(outcome string, duration time.Duration) {
	WeatherFetchesTotal.WithLabelValues(outcome).Inc()
	WeatherFetchDuration.Observe(duration.Seconds())
}

// RecordCollectionOp records a load, add or delete attempt.
func RecordCollectionOp(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	CollectionOpsTotal.WithLabelValues(op, outcome).Inc()
}
