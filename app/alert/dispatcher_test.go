package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/magnusk/deal-scout/app/database"
)

type mockAlertRepository struct {
	alerts    []database.Alert
	triggered []string
}

func (m *mockAlertRepository) GetEnabledAlerts(searchName string) ([]database.Alert, error) {
	var enabled []database.Alert
	for _, a := range m.alerts {
		if a.SearchName == searchName && a.Enabled {
			enabled = append(enabled, a)
		}
	}
	return enabled, nil
}

func (m *mockAlertRepository) UpsertAlert(string, string, bool, map[string]string) error {
	return nil
}

func (m *mockAlertRepository) UpdateLastTriggered(alertID string, _ time.Time) error {
	m.triggered = append(m.triggered, alertID)
	return nil
}

type recordingNotifier struct {
	channel string
	events  []Event
	fail    bool
}

func (n *recordingNotifier) Channel() string {
	return n.channel
}

func (n *recordingNotifier) Notify(_ context.Context, event Event, _ map[string]string) error {
	if n.fail {
		return errors.New("delivery refused")
	}
	n.events = append(n.events, event)
	return nil
}

func testEvent() Event {
	return Event{
		SearchName: "vintage-camera",
		NewListings: []database.Listing{
			{Marketplace: "ebay", ExternalID: "1", Title: "Camera", Price: 80},
		},
	}
}

func TestDispatchNotifiesEnabledAlerts(t *testing.T) {
	repo := &mockAlertRepository{
		alerts: []database.Alert{
			{ID: "a-1", SearchName: "vintage-camera", Channel: "email", Enabled: true},
			{ID: "a-2", SearchName: "vintage-camera", Channel: "webhook", Enabled: false},
			{ID: "a-3", SearchName: "other-search", Channel: "email", Enabled: true},
		},
	}
	email := &recordingNotifier{channel: "email"}
	dispatcher := NewDispatcher(repo, email)

	if err := dispatcher.Dispatch(context.Background(), testEvent()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if len(email.events) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(email.events))
	}
	if email.events[0].SearchName != "vintage-camera" {
		t.Errorf("unexpected search name: %q", email.events[0].SearchName)
	}
	if len(repo.triggered) != 1 || repo.triggered[0] != "a-1" {
		t.Errorf("expected alert a-1 stamped, got %v", repo.triggered)
	}
}

func TestDispatchSkipsUnknownChannel(t *testing.T) {
	repo := &mockAlertRepository{
		alerts: []database.Alert{
			{ID: "a-1", SearchName: "vintage-camera", Channel: "sms", Enabled: true},
		},
	}
	dispatcher := NewDispatcher(repo, &recordingNotifier{channel: "email"})

	if err := dispatcher.Dispatch(context.Background(), testEvent()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(repo.triggered) != 0 {
		t.Errorf("unknown channel must not be stamped, got %v", repo.triggered)
	}
}

func TestDispatchFailedDeliveryNotStamped(t *testing.T) {
	repo := &mockAlertRepository{
		alerts: []database.Alert{
			{ID: "a-1", SearchName: "vintage-camera", Channel: "email", Enabled: true},
		},
	}
	dispatcher := NewDispatcher(repo, &recordingNotifier{channel: "email", fail: true})

	if err := dispatcher.Dispatch(context.Background(), testEvent()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(repo.triggered) != 0 {
		t.Errorf("failed delivery must not be stamped, got %v", repo.triggered)
	}
}

func TestDispatchNoNewListingsIsNoOp(t *testing.T) {
	repo := &mockAlertRepository{
		alerts: []database.Alert{
			{ID: "a-1", SearchName: "vintage-camera", Channel: "email", Enabled: true},
		},
	}
	email := &recordingNotifier{channel: "email"}
	dispatcher := NewDispatcher(repo, email)

	event := Event{SearchName: "vintage-camera"}
	if err := dispatcher.Dispatch(context.Background(), event); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(email.events) != 0 {
		t.Errorf("expected no deliveries, got %d", len(email.events))
	}
}
