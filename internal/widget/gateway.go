package widget

import "context"

// Gateway is the remote source of truth for widgets and the weather lookup.
// Implementations make a single attempt per call and report failures as *RemoteError.
type Gateway interface {
	ListWidgets(ctx context.Context) ([]Widget, error)
	CreateWidget(ctx context.Context, location string) (Widget, error)
	DeleteWidget(ctx context.Context, id string) error
	FetchWeather(ctx context.Context, location string) (WeatherData, error)
}

// InsightGateway is implemented by gateways that can produce AI insights.
type InsightGateway interface {
	Trivia(ctx context.Context, location string) (string, error)
	Summary(ctx context.Context, locations []string) (string, error)
	Chat(ctx context.Context, question string, locations []string) (string, error)
	Suggestions(ctx context.Context, currentLocations []string, interests string) (string, error)
}
