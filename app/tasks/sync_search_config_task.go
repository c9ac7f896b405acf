package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magnusk/deal-scout/app/database"
	"github.com/magnusk/deal-scout/app/search"
)

// SyncSearchConfigTask mirrors one file-based search definition into
// the database, alerts included. Run timestamps are owned by the
// scheduler and never touched here.
type SyncSearchConfigTask struct {
	Task
	SearchConfig *search.Config
	searchRepo   database.SearchRepository
	alertRepo    database.AlertRepository
}

func NewSyncSearchConfigTask(searchName string, searchConfig *search.Config,
	searchRepo database.SearchRepository, alertRepo database.AlertRepository) *SyncSearchConfigTask {
	return &SyncSearchConfigTask{
		Task:         NewTask(TaskTypeSyncSearchConfig, searchName),
		SearchConfig: searchConfig,
		searchRepo:   searchRepo,
		alertRepo:    alertRepo,
	}
}

func (t *SyncSearchConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	record := database.Search{
		Name:                 t.SearchConfig.Name,
		Keywords:             t.SearchConfig.Keywords,
		Marketplaces:         t.SearchConfig.Marketplaces,
		Location:             t.SearchConfig.Location,
		MinPrice:             t.SearchConfig.MinPrice,
		MaxPrice:             t.SearchConfig.MaxPrice,
		Filters:              t.SearchConfig.Filters,
		Status:               t.SearchConfig.Settings.Status,
		CheckIntervalMinutes: t.SearchConfig.Settings.CheckIntervalMinutes,
	}

	if err := t.searchRepo.UpsertSearch(record); err != nil {
		return fmt.Errorf("failed to sync search: %w", err)
	}

	for _, a := range t.SearchConfig.Alerts {
		if err := t.alertRepo.UpsertAlert(t.SearchConfig.Name, a.Channel, a.Enabled, a.Config); err != nil {
			return fmt.Errorf("failed to sync alert %s: %w", a.Channel, err)
		}
	}

	slog.Debug("Search configuration synced",
		"search", t.SearchName,
		"status", t.SearchConfig.Settings.Status,
		"alerts", len(t.SearchConfig.Alerts))

	return nil
}
