package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magnusk/deal-scout/app/database"
	"github.com/magnusk/deal-scout/app/marketplace"
	"github.com/magnusk/deal-scout/app/search"
)

// cleanupSchedule fires the retention sweep nightly at 02:00.
const cleanupSchedule = "0 2 * * *"

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type SchedulerOptions struct {
	// Interval between dispatch scans over the active searches.
	Interval time.Duration
	// WorkerCount is the size of the task worker pool.
	WorkerCount int
	// RunBudget bounds the wall-clock time of a single task.
	RunBudget time.Duration

	RetentionDays      int
	RetentionKeepSaved bool
}

// Scheduler owns the worker pool and decides when each search runs.
// A search already on the queue or executing is never enqueued again;
// failed runs wait for the next dispatch scan instead of retrying.
type Scheduler struct {
	configCache     *search.ConfigCache
	registry        *marketplace.Registry
	staticFetcher   PageFetcher
	renderedFetcher RenderedPageFetcher
	searchRepo      database.SearchRepository
	listingRepo     database.ListingRepository
	alertRepo       database.AlertRepository
	taskLogRepo     database.TaskLogRepository
	dispatcher      AlertDispatcher
	opts            SchedulerOptions

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
	cron      *cron.Cron

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

func NewScheduler(configCache *search.ConfigCache, registry *marketplace.Registry,
	staticFetcher PageFetcher, renderedFetcher RenderedPageFetcher,
	searchRepo database.SearchRepository, listingRepo database.ListingRepository,
	alertRepo database.AlertRepository, taskLogRepo database.TaskLogRepository,
	dispatcher AlertDispatcher, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.RunBudget == 0 {
		opts.RunBudget = 10 * time.Minute
	}
	if opts.WorkerCount == 0 {
		opts.WorkerCount = 1
	}

	return &Scheduler{
		configCache:     configCache,
		registry:        registry,
		staticFetcher:   staticFetcher,
		renderedFetcher: renderedFetcher,
		searchRepo:      searchRepo,
		listingRepo:     listingRepo,
		alertRepo:       alertRepo,
		taskLogRepo:     taskLogRepo,
		dispatcher:      dispatcher,
		opts:            opts,
		ctx:             ctx,
		cancel:          cancel,
		taskQueue:       make(chan TaskInterface, 300),
		cron:            cron.New(),
		inFlight:        make(map[string]struct{}),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.cron.AddFunc(cleanupSchedule, func() {
		task := NewCleanupListingsTask(s.listingRepo, s.taskLogRepo,
			s.opts.RetentionDays, s.opts.RetentionKeepSaved)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue CleanupListingsTask", "error", err)
		}
	})
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueSearchRun queues an immediate run of one search, bypassing the
// due-time check. Fails when the search is unknown or already running.
func (s *Scheduler) EnqueueSearchRun(searchName string) error {
	searchConfig, err := s.configCache.GetConfig(searchName)
	if err != nil {
		return err
	}

	if !s.markInFlight(searchName) {
		return fmt.Errorf("search '%s' is already running", searchName)
	}

	if err := s.EnqueueTask(s.newRunSearchTask(searchConfig)); err != nil {
		s.clearInFlight(searchName)
		return err
	}

	return nil
}

func (s *Scheduler) IsRunning(searchName string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	_, running := s.inFlight[searchName]
	return running
}

// enqueueStartupTasks syncs every loaded search definition into the
// database. First runs happen on the following dispatch scan, once the
// synced rows exist.
func (s *Scheduler) enqueueStartupTasks() {
	searchConfigs := s.configCache.GetConfigs()
	if len(searchConfigs) == 0 {
		slog.Debug("No search configurations found")
		return
	}

	slog.Debug("Syncing search configurations", "count", len(searchConfigs))

	for _, searchConfig := range searchConfigs {
		syncTask := NewSyncSearchConfigTask(searchConfig.Name, searchConfig, s.searchRepo, s.alertRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSearchConfigTask", "search", searchConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueDueTasks() {
	activeSearches, err := s.searchRepo.GetActiveSearches()
	if err != nil {
		slog.Warn("Failed to scan active searches", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, activeSearch := range activeSearches {
		searchConfig, err := s.configCache.GetConfig(activeSearch.Name)
		if err != nil {
			slog.Warn("Active search has no loaded configuration, skipping",
				"search", activeSearch.Name, "error", err)
			continue
		}

		if !s.isDue(activeSearch, now) {
			continue
		}

		if !s.markInFlight(activeSearch.Name) {
			slog.Debug("Search still running, skipping dispatch", "search", activeSearch.Name)
			continue
		}

		if err := s.EnqueueTask(s.newRunSearchTask(searchConfig)); err != nil {
			s.clearInFlight(activeSearch.Name)
			slog.Warn("Failed to enqueue RunSearchTask", "search", activeSearch.Name, "error", err)
		}
	}
}

func (s *Scheduler) isDue(activeSearch database.Search, now time.Time) bool {
	if activeSearch.LastCheckedAt == nil {
		return true
	}

	interval := time.Duration(activeSearch.CheckIntervalMinutes) * time.Minute
	return !activeSearch.LastCheckedAt.Add(interval).After(now)
}

func (s *Scheduler) newRunSearchTask(searchConfig *search.Config) *RunSearchTask {
	return NewRunSearchTask(searchConfig.Name, searchConfig, s.registry,
		s.staticFetcher, s.renderedFetcher, s.searchRepo, s.listingRepo,
		s.taskLogRepo, s.dispatcher)
}

func (s *Scheduler) markInFlight(searchName string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	if _, running := s.inFlight[searchName]; running {
		return false
	}
	s.inFlight[searchName] = struct{}{}
	return true
}

func (s *Scheduler) clearInFlight(searchName string) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	delete(s.inFlight, searchName)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	if task.GetType() == TaskTypeRunSearch {
		defer s.clearInFlight(task.GetSearchName())
	}

	taskCtx, cancel := context.WithTimeout(s.ctx, s.opts.RunBudget)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"search", task.GetSearchName(),
			"error", err)
	}
}
