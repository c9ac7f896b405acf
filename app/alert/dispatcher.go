package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magnusk/deal-scout/app/database"
)

// Dispatcher fans a new-listings event out to every enabled alert of
// the originating search.
type Dispatcher struct {
	alertRepo database.AlertRepository
	notifiers map[string]Notifier
}

func NewDispatcher(alertRepo database.AlertRepository, notifiers ...Notifier) *Dispatcher {
	byChannel := make(map[string]Notifier, len(notifiers))
	for _, notifier := range notifiers {
		byChannel[notifier.Channel()] = notifier
	}

	return &Dispatcher{
		alertRepo: alertRepo,
		notifiers: byChannel,
	}
}

// Dispatch notifies each enabled alert and stamps its last trigger time
// on successful delivery. An event without new listings is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	if len(event.NewListings) == 0 {
		return nil
	}

	alerts, err := d.alertRepo.GetEnabledAlerts(event.SearchName)
	if err != nil {
		return fmt.Errorf("failed to get enabled alerts: %w", err)
	}

	for _, a := range alerts {
		notifier, ok := d.notifiers[a.Channel]
		if !ok {
			slog.Warn("No notifier registered for alert channel, skipping",
				"search", event.SearchName, "channel", a.Channel)
			continue
		}

		if err := notifier.Notify(ctx, event, a.Config); err != nil {
			slog.Error("Alert delivery failed",
				"search", event.SearchName, "channel", a.Channel, "error", err)
			continue
		}

		if err := d.alertRepo.UpdateLastTriggered(a.ID, time.Now().UTC()); err != nil {
			slog.Error("Failed to stamp alert trigger time",
				"search", event.SearchName, "channel", a.Channel, "error", err)
		}
	}

	return nil
}
