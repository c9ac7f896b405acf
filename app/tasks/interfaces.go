package tasks

import (
	"context"
	"time"

	"github.com/magnusk/deal-scout/app/alert"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSearchName() string
	Start()
	GetDuration() time.Duration
}

// TaskSchedulerInterface is what the API server needs from the
// scheduler: queue access plus visibility into running searches.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueSearchRun(searchName string) error
	IsRunning(searchName string) bool
}

// PageFetcher downloads one result page over plain HTTP.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RenderedPageFetcher drives a browser session. The search text is
// typed into the page's search input rather than encoded in the URL,
// so the contract carries it alongside the navigation target.
type RenderedPageFetcher interface {
	Fetch(ctx context.Context, url, searchQuery string) ([]byte, error)
}

// AlertDispatcher hands a new-listings event to the configured alert
// channels.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, event alert.Event) error
}
