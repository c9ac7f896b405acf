package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/magnusk/deal-scout/app/database"
	"github.com/magnusk/deal-scout/app/search"
	"github.com/magnusk/deal-scout/app/tasks"
)

type stubSearchRepo struct{}

func (stubSearchRepo) GetSearch(string) (*database.Search, error)        { return nil, nil }
func (stubSearchRepo) GetActiveSearches() ([]database.Search, error)     { return nil, nil }
func (stubSearchRepo) GetSearchCount() (int, error)                      { return 1, nil }
func (stubSearchRepo) UpsertSearch(database.Search) error                { return nil }
func (stubSearchRepo) UpdateLastChecked(string, time.Time) error         { return nil }

type stubListingRepo struct{}

func (stubListingRepo) InsertListing(database.Listing) (bool, error) { return false, nil }
func (stubListingRepo) GetByExternalID(string, string) (*database.Listing, error) {
	return nil, nil
}
func (stubListingRepo) GetListingCount() (int, error)                    { return 42, nil }
func (stubListingRepo) DeleteOlderThan(time.Time, bool) (int64, error)   { return 0, nil }

type stubTaskLogRepo struct{}

func (stubTaskLogRepo) CreateRunning(string, string, string, time.Time) error { return nil }
func (stubTaskLogRepo) MarkSuccess(string, string, time.Time) error           { return nil }
func (stubTaskLogRepo) MarkFailed(string, string, time.Time) error            { return nil }
func (stubTaskLogRepo) GetRecent(int) ([]database.TaskLog, error) {
	return []database.TaskLog{{TaskID: "t-1", TaskName: "run_search", Status: "success"}}, nil
}
func (stubTaskLogRepo) DeleteOlderThan(time.Time) (int64, error) { return 0, nil }

type stubScheduler struct {
	running  map[string]bool
	enqueued []string
}

func (s *stubScheduler) Start()                               {}
func (s *stubScheduler) Stop()                                {}
func (s *stubScheduler) EnqueueTask(tasks.TaskInterface) error { return nil }

func (s *stubScheduler) EnqueueSearchRun(searchName string) error {
	s.enqueued = append(s.enqueued, searchName)
	return nil
}

func (s *stubScheduler) IsRunning(searchName string) bool {
	return s.running[searchName]
}

func newTestHandler(t *testing.T, scheduler *stubScheduler) *Handler {
	t.Helper()

	tempDir := t.TempDir()
	content := "keywords: \"vintage camera\"\nmarketplaces:\n  - ebay\n"
	if err := os.WriteFile(filepath.Join(tempDir, "vintage-camera.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	configCache := search.NewConfigCache(tempDir, []string{"ebay"})
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	return NewHandler(configCache, stubSearchRepo{}, stubListingRepo{},
		stubTaskLogRepo{}, scheduler, "test")
}

func TestAPIRequiresKey(t *testing.T) {
	server := NewServer(newTestHandler(t, &stubScheduler{}), "secret")

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/searches", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/api/searches", nil)
	request.Header.Set("X-API-Key", "wrong")
	server.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	request = httptest.NewRequest("GET", "/api/searches", nil)
	request.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200 with valid key, got %d", recorder.Code)
	}
}

func TestHealthEndpointIsPublic(t *testing.T) {
	server := NewServer(newTestHandler(t, &stubScheduler{}), "secret")

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest("GET", "/health", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health["loaded_configurations"] != float64(1) {
		t.Errorf("expected 1 loaded configuration, got %v", health["loaded_configurations"])
	}
}

func TestRunSearchEndpoint(t *testing.T) {
	scheduler := &stubScheduler{running: map[string]bool{}}
	server := NewServer(newTestHandler(t, scheduler), "secret")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/searches/vintage-camera/run", nil)
	request.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if len(scheduler.enqueued) != 1 || scheduler.enqueued[0] != "vintage-camera" {
		t.Errorf("expected run enqueued, got %v", scheduler.enqueued)
	}
}

func TestRunSearchEndpointConflictsWhileRunning(t *testing.T) {
	scheduler := &stubScheduler{running: map[string]bool{"vintage-camera": true}}
	server := NewServer(newTestHandler(t, scheduler), "secret")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/searches/vintage-camera/run", nil)
	request.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusConflict {
		t.Errorf("expected 409 while running, got %d", recorder.Code)
	}
	if len(scheduler.enqueued) != 0 {
		t.Errorf("expected no enqueue while running, got %v", scheduler.enqueued)
	}
}

func TestRunSearchEndpointUnknownSearch(t *testing.T) {
	server := NewServer(newTestHandler(t, &stubScheduler{}), "secret")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/searches/no-such-search/run", nil)
	request.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown search, got %d", recorder.Code)
	}
}
