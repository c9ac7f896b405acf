package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magnusk/deal-scout/app/database"
)

// CleanupListingsTask deletes listings and task logs older than the
// retention window. Saved listings survive when keepSaved is set.
type CleanupListingsTask struct {
	Task
	listingRepo   database.ListingRepository
	taskLogRepo   database.TaskLogRepository
	retentionDays int
	keepSaved     bool
}

func NewCleanupListingsTask(listingRepo database.ListingRepository, taskLogRepo database.TaskLogRepository,
	retentionDays int, keepSaved bool) *CleanupListingsTask {
	return &CleanupListingsTask{
		Task:          NewTask(TaskTypeCleanupListings, ""),
		listingRepo:   listingRepo,
		taskLogRepo:   taskLogRepo,
		retentionDays: retentionDays,
		keepSaved:     keepSaved,
	}
}

func (t *CleanupListingsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.taskLogRepo.CreateRunning(t.ID, string(t.Type), "", time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create task log: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -t.retentionDays)

	deletedListings, err := t.listingRepo.DeleteOlderThan(cutoff, t.keepSaved)
	if err != nil {
		return t.fail(fmt.Errorf("failed to delete old listings: %w", err))
	}

	deletedLogs, err := t.taskLogRepo.DeleteOlderThan(cutoff)
	if err != nil {
		return t.fail(fmt.Errorf("failed to delete old task logs: %w", err))
	}

	summary, _ := json.Marshal(map[string]int64{
		"deleted_listings":  deletedListings,
		"deleted_task_logs": deletedLogs,
	})
	if err := t.taskLogRepo.MarkSuccess(t.ID, string(summary), time.Now().UTC()); err != nil {
		return t.fail(err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"cutoff", cutoff,
		"deleted_listings", deletedListings,
		"deleted_task_logs", deletedLogs)

	return nil
}

func (t *CleanupListingsTask) fail(cause error) error {
	if err := t.taskLogRepo.MarkFailed(t.ID, cause.Error(), time.Now().UTC()); err != nil {
		slog.Error("Failed to mark task log failed", "task_id", t.ID, "error", err)
	}
	return cause
}
