package database

import (
	"time"
)

type SearchRepository interface {
	GetSearch(searchName string) (*Search, error)
	GetActiveSearches() ([]Search, error)
	GetSearchCount() (int, error)

	UpsertSearch(search Search) error
	UpdateLastChecked(searchName string, checkedAt time.Time) error
}

type ListingRepository interface {
	// InsertListing persists a listing unless one with the same
	// (marketplace, external_id) already exists. Returns true when a new
	// row was created. The uniqueness constraint is the authoritative
	// guard; concurrent inserts of the same pair never produce duplicates.
	InsertListing(listing Listing) (bool, error)

	GetByExternalID(marketplace, externalID string) (*Listing, error)
	GetListingCount() (int, error)

	DeleteOlderThan(cutoff time.Time, keepSaved bool) (int64, error)
}

type AlertRepository interface {
	GetEnabledAlerts(searchName string) ([]Alert, error)

	UpsertAlert(searchName, channel string, enabled bool, config map[string]string) error
	UpdateLastTriggered(alertID string, triggeredAt time.Time) error
}

type TaskLogRepository interface {
	CreateRunning(taskID, taskName, searchName string, startedAt time.Time) error
	MarkSuccess(taskID, result string, completedAt time.Time) error
	MarkFailed(taskID, errorDetail string, completedAt time.Time) error

	GetRecent(limit int) ([]TaskLog, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}
