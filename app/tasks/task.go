package tasks

import (
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeRunSearch        TaskType = "run_search"
	TaskTypeCleanupListings  TaskType = "cleanup_listings"
	TaskTypeSyncSearchConfig TaskType = "sync_search_config"
)

// Task carries the identity shared by every background task. Failed
// tasks are not re-queued: the next scheduled dispatch is the retry.
type Task struct {
	ID         string
	Type       TaskType
	SearchName string
	StartedAt  *time.Time
}

func NewTask(taskType TaskType, searchName string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		SearchName: searchName,
	}
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetSearchName() string {
	return t.SearchName
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}
