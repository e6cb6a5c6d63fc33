package dashboard

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/i474232898/weatherki/internal/widget"
)

var (
	// ErrInsightsUnavailable is returned when the gateway cannot produce insights.
	ErrInsightsUnavailable = errors.New("insights are not supported by the configured gateway")

	// ErrNoLocations is returned for insights that need at least one widget.
	ErrNoLocations = errors.New("add weather widgets to get insights")

	// ErrEmptyPrompt is returned for chat and suggestion requests without input.
	ErrEmptyPrompt = errors.New("prompt must not be empty")
)

// Fallback texts shown when the insight service fails.
const (
	TriviaFallback      = "Unable to generate weather trivia right now."
	SummaryFallback     = "Unable to generate weather summary right now."
	ChatFallback        = "Sorry, I couldn't process your question right now."
	SuggestionsFallback = "Unable to get location suggestions right now."
)

// GenerateTrivia produces trivia for the selected location and caches it as
// the selection's insight. A failure caches the fallback text instead.
func (d *Dashboard) GenerateTrivia(ctx context.Context) (string, error) {
	if d.insights == nil {
		return "", ErrInsightsUnavailable
	}
	location, ok := d.selection.Current()
	if !ok {
		return "", ErrNoLocations
	}

	text, err := d.insights.Trivia(ctx, location)
	if err != nil {
		log.Printf("trivia failed for %q: %v", location, err)
		text = TriviaFallback
	} else if text == "" {
		text = "No trivia available"
	}

	if !d.selection.StoreInsight(location, text) {
		log.Printf("DEBUG: dropping trivia for %q: selection changed", location)
	}
	return text, widget.NewRemoteError("trivia", err)
}

// Summary summarizes the weather across all widget locations.
func (d *Dashboard) Summary(ctx context.Context) (string, error) {
	if d.insights == nil {
		return "", ErrInsightsUnavailable
	}
	locations := d.widgets.Locations()
	if len(locations) == 0 {
		return "", ErrNoLocations
	}

	text, err := d.insights.Summary(ctx, locations)
	if err != nil {
		log.Printf("summary failed: %v", err)
		return SummaryFallback, widget.NewRemoteError("summary", err)
	}
	if text == "" {
		text = "Unable to generate summary"
	}
	return text, nil
}

// Chat answers a free-form weather question about the widget locations.
func (d *Dashboard) Chat(ctx context.Context, question string) (string, error) {
	if d.insights == nil {
		return "", ErrInsightsUnavailable
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyPrompt
	}

	text, err := d.insights.Chat(ctx, question, d.widgets.Locations())
	if err != nil {
		log.Printf("chat failed: %v", err)
		return ChatFallback, widget.NewRemoteError("chat", err)
	}
	if text == "" {
		text = "Unable to get response"
	}
	return text, nil
}

// Suggestions recommends new locations matching the user's interests.
func (d *Dashboard) Suggestions(ctx context.Context, interests string) (string, error) {
	if d.insights == nil {
		return "", ErrInsightsUnavailable
	}
	interests = strings.TrimSpace(interests)
	if interests == "" {
		return "", ErrEmptyPrompt
	}

	text, err := d.insights.Suggestions(ctx, d.widgets.Locations(), interests)
	if err != nil {
		log.Printf("suggestions failed: %v", err)
		return SuggestionsFallback, widget.NewRemoteError("suggestions", err)
	}
	if text == "" {
		text = "No suggestions available"
	}
	return text, nil
}
