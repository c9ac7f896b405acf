package alert

import (
	"context"
	"log/slog"

	"github.com/magnusk/deal-scout/app/database"
)

// Event describes the outcome of a search run that found new listings.
type Event struct {
	SearchName  string
	NewListings []database.Listing
}

// Notifier delivers an event over one channel (email, webhook, ...).
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, event Event, config map[string]string) error
}

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier is the built-in channel: it writes new-listing events to
// the application log. Useful on its own and as a delivery fallback
// while real channels are unconfigured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Channel() string {
	return "log"
}

func (n *LogNotifier) Notify(_ context.Context, event Event, _ map[string]string) error {
	for _, listing := range event.NewListings {
		slog.Info("New listing found",
			"search", event.SearchName,
			"marketplace", listing.Marketplace,
			"title", listing.Title,
			"price", listing.Price,
			"currency", listing.Currency,
			"url", listing.URL)
	}

	return nil
}
