package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/magnusk/deal-scout/app/database"
	"github.com/magnusk/deal-scout/app/marketplace"
	"github.com/magnusk/deal-scout/app/search"
)

type fakeAlertRepo struct {
	upserted []string
}

func (r *fakeAlertRepo) GetEnabledAlerts(string) ([]database.Alert, error) {
	return nil, nil
}

func (r *fakeAlertRepo) UpsertAlert(searchName, channel string, _ bool, _ map[string]string) error {
	r.upserted = append(r.upserted, searchName+"/"+channel)
	return nil
}

func (r *fakeAlertRepo) UpdateLastTriggered(string, time.Time) error {
	return nil
}

func newTestConfigCache(t *testing.T) *search.ConfigCache {
	t.Helper()

	tempDir := t.TempDir()
	content := `
keywords: "vintage camera"
marketplaces:
  - alpha
alerts:
  - channel: log
    enabled: true
`
	if err := os.WriteFile(filepath.Join(tempDir, "vintage-camera.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	configCache := search.NewConfigCache(tempDir, []string{"alpha"})
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}
	return configCache
}

func newTestScheduler(t *testing.T, searchRepo *fakeSearchRepo) *Scheduler {
	t.Helper()

	registry := marketplace.NewRegistry(&stubAdapter{name: "alpha"})
	pageFetcher := &fakeFetcher{payloads: map[string][]byte{}}

	return NewScheduler(newTestConfigCache(t), registry, pageFetcher, &fakeRenderedFetcher{},
		searchRepo, newFakeListingRepo(), &fakeAlertRepo{}, newFakeTaskLogRepo(),
		&fakeDispatcher{}, SchedulerOptions{Interval: time.Hour, WorkerCount: 1})
}

func TestEnqueueSearchRunGuardsInFlight(t *testing.T) {
	scheduler := newTestScheduler(t, newFakeSearchRepo())

	if err := scheduler.EnqueueSearchRun("vintage-camera"); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if !scheduler.IsRunning("vintage-camera") {
		t.Error("expected search to be marked in flight")
	}

	if err := scheduler.EnqueueSearchRun("vintage-camera"); err == nil {
		t.Error("expected second enqueue to be rejected while in flight")
	}

	if len(scheduler.taskQueue) != 1 {
		t.Errorf("expected 1 queued task, got %d", len(scheduler.taskQueue))
	}
}

func TestEnqueueSearchRunUnknownSearch(t *testing.T) {
	scheduler := newTestScheduler(t, newFakeSearchRepo())

	if err := scheduler.EnqueueSearchRun("no-such-search"); err == nil {
		t.Error("expected unknown search to be rejected")
	}
}

func TestExecuteTaskClearsInFlight(t *testing.T) {
	scheduler := newTestScheduler(t, newFakeSearchRepo())

	if err := scheduler.EnqueueSearchRun("vintage-camera"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	task := <-scheduler.taskQueue
	scheduler.executeTask(0, task)

	if scheduler.IsRunning("vintage-camera") {
		t.Error("expected in-flight mark to be cleared after execution")
	}

	// The search can be dispatched again
	if err := scheduler.EnqueueSearchRun("vintage-camera"); err != nil {
		t.Errorf("re-enqueue after completion failed: %v", err)
	}
}

func TestEnqueueDueTasks(t *testing.T) {
	searchRepo := newFakeSearchRepo()
	longAgo := time.Now().UTC().Add(-2 * time.Hour)
	searchRepo.searches["vintage-camera"] = &database.Search{
		Name:                 "vintage-camera",
		Status:               "active",
		CheckIntervalMinutes: 60,
		LastCheckedAt:        &longAgo,
	}

	scheduler := newTestScheduler(t, searchRepo)
	scheduler.enqueueDueTasks()

	if len(scheduler.taskQueue) != 1 {
		t.Fatalf("expected 1 queued task, got %d", len(scheduler.taskQueue))
	}

	task := <-scheduler.taskQueue
	if task.GetType() != TaskTypeRunSearch {
		t.Errorf("expected run task, got %s", task.GetType())
	}
	if task.GetSearchName() != "vintage-camera" {
		t.Errorf("unexpected search name: %q", task.GetSearchName())
	}
}

func TestEnqueueDueTasksSkipsFreshSearch(t *testing.T) {
	searchRepo := newFakeSearchRepo()
	justNow := time.Now().UTC()
	searchRepo.searches["vintage-camera"] = &database.Search{
		Name:                 "vintage-camera",
		Status:               "active",
		CheckIntervalMinutes: 60,
		LastCheckedAt:        &justNow,
	}

	scheduler := newTestScheduler(t, searchRepo)
	scheduler.enqueueDueTasks()

	if len(scheduler.taskQueue) != 0 {
		t.Errorf("expected no queued tasks, got %d", len(scheduler.taskQueue))
	}
}

func TestEnqueueDueTasksSkipsInFlightSearch(t *testing.T) {
	searchRepo := newFakeSearchRepo()
	searchRepo.searches["vintage-camera"] = &database.Search{
		Name:                 "vintage-camera",
		Status:               "active",
		CheckIntervalMinutes: 60,
	}

	scheduler := newTestScheduler(t, searchRepo)
	if !scheduler.markInFlight("vintage-camera") {
		t.Fatal("failed to mark in flight")
	}

	scheduler.enqueueDueTasks()

	if len(scheduler.taskQueue) != 0 {
		t.Errorf("in-flight search must not be re-dispatched, got %d queued", len(scheduler.taskQueue))
	}
}

func TestSyncSearchConfigTask(t *testing.T) {
	configCache := newTestConfigCache(t)
	searchConfig, err := configCache.GetConfig("vintage-camera")
	if err != nil {
		t.Fatal(err)
	}

	searchRepo := newFakeSearchRepo()
	alertRepo := &fakeAlertRepo{}

	task := NewSyncSearchConfigTask("vintage-camera", searchConfig, searchRepo, alertRepo)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	synced := searchRepo.searches["vintage-camera"]
	if synced == nil {
		t.Fatal("expected search to be synced")
	}
	if synced.Status != search.StatusActive {
		t.Errorf("expected status active, got %q", synced.Status)
	}
	if synced.CheckIntervalMinutes != search.DefaultCheckInterval {
		t.Errorf("expected default interval, got %d", synced.CheckIntervalMinutes)
	}

	if len(alertRepo.upserted) != 1 || alertRepo.upserted[0] != "vintage-camera/log" {
		t.Errorf("expected log alert synced, got %v", alertRepo.upserted)
	}
}

func TestCleanupListingsTask(t *testing.T) {
	listingRepo := newFakeListingRepo()
	listingRepo.listings[listingKey("ebay", "old")] = database.Listing{
		Marketplace: "ebay", ExternalID: "old",
		ScrapedAt: time.Now().UTC().AddDate(0, 0, -45),
	}
	listingRepo.listings[listingKey("ebay", "old-saved")] = database.Listing{
		Marketplace: "ebay", ExternalID: "old-saved", IsSaved: true,
		ScrapedAt: time.Now().UTC().AddDate(0, 0, -45),
	}
	listingRepo.listings[listingKey("ebay", "fresh")] = database.Listing{
		Marketplace: "ebay", ExternalID: "fresh",
		ScrapedAt: time.Now().UTC(),
	}

	taskLogRepo := newFakeTaskLogRepo()
	task := NewCleanupListingsTask(listingRepo, taskLogRepo, 30, true)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if count, _ := listingRepo.GetListingCount(); count != 2 {
		t.Errorf("expected 2 listings to survive cleanup, got %d", count)
	}
	if taskLogRepo.statuses[task.ID] != "success" {
		t.Errorf("expected task log success, got %q", taskLogRepo.statuses[task.ID])
	}
}
