package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:             "./data/test.db",
		SearchesDir:        "./searches",
		Port:               "8080",
		WorkerCount:        5,
		SchedulerInterval:  60,
		APIAccessKey:       "test-key",
		FetchTimeout:       30,
		FetchMaxRetries:    3,
		FetchDelay:         2,
		RunBudget:          10,
		RetentionDays:      30,
		RetentionKeepSaved: true,
		Timezone:           "UTC",
		Debug:              true,
		Version:            "test-version",
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.FetchTimeout != 30 {
		t.Errorf("Expected fetch timeout 30, got %d", cfg.FetchTimeout)
	}
	if cfg.FetchMaxRetries != 3 {
		t.Errorf("Expected fetch max retries 3, got %d", cfg.FetchMaxRetries)
	}
	if cfg.RetentionDays != 30 {
		t.Errorf("Expected retention days 30, got %d", cfg.RetentionDays)
	}
	if !cfg.RetentionKeepSaved {
		t.Error("Expected retention keep saved to be true")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}

func TestApplyTimezone(t *testing.T) {
	if err := applyTimezone("UTC"); err != nil {
		t.Errorf("Expected no error for UTC, got %v", err)
	}
	if err := applyTimezone("Not/AZone"); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}
