package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magnusk/deal-scout/app/alert"
	"github.com/magnusk/deal-scout/app/database"
	"github.com/magnusk/deal-scout/app/marketplace"
	"github.com/magnusk/deal-scout/app/search"
)

// RunSearchResult is the per-run summary stored in the task log.
type RunSearchResult struct {
	TotalSeen  int `json:"total_seen"`
	TotalNew   int `json:"total_new"`
	Duplicates int `json:"duplicates"`
	Filtered   int `json:"filtered"`
}

// RunSearchTask executes one search: fetch every configured
// marketplace, extract and normalize candidates, apply the price band,
// persist what is genuinely new and alert on it.
type RunSearchTask struct {
	Task
	SearchConfig    *search.Config
	registry        *marketplace.Registry
	staticFetcher   PageFetcher
	renderedFetcher RenderedPageFetcher
	searchRepo      database.SearchRepository
	listingRepo     database.ListingRepository
	taskLogRepo     database.TaskLogRepository
	dispatcher      AlertDispatcher
}

func NewRunSearchTask(searchName string, searchConfig *search.Config, registry *marketplace.Registry,
	staticFetcher PageFetcher, renderedFetcher RenderedPageFetcher, searchRepo database.SearchRepository,
	listingRepo database.ListingRepository, taskLogRepo database.TaskLogRepository,
	dispatcher AlertDispatcher) *RunSearchTask {
	return &RunSearchTask{
		Task:            NewTask(TaskTypeRunSearch, searchName),
		SearchConfig:    searchConfig,
		registry:        registry,
		staticFetcher:   staticFetcher,
		renderedFetcher: renderedFetcher,
		searchRepo:      searchRepo,
		listingRepo:     listingRepo,
		taskLogRepo:     taskLogRepo,
		dispatcher:      dispatcher,
	}
}

func (t *RunSearchTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.taskLogRepo.CreateRunning(t.ID, string(t.Type), t.SearchName, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create task log: %w", err)
	}

	var result RunSearchResult
	var newListings []database.Listing

	for _, marketplaceName := range t.SearchConfig.Marketplaces {
		select {
		case <-ctx.Done():
			return t.fail(ctx.Err())
		default:
		}

		adapter, ok := t.registry.Get(marketplaceName)
		if !ok {
			slog.Warn("No adapter registered for marketplace, skipping",
				"search", t.SearchName, "marketplace", marketplaceName)
			continue
		}

		candidates, err := t.collectCandidates(ctx, adapter)
		if err != nil {
			// A spent run budget is a failed run, not a quiet marketplace
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return t.fail(err)
			}

			// One blocked or reshaped marketplace must not sink the others
			slog.Error("Marketplace yielded no candidates, continuing with remaining marketplaces",
				"search", t.SearchName, "marketplace", marketplaceName, "error", err)
			continue
		}

		for _, candidate := range candidates {
			if t.filteredOut(candidate) {
				result.Filtered++
				continue
			}
			result.TotalSeen++

			listing := t.toListing(candidate)
			created, err := t.listingRepo.InsertListing(listing)
			if err != nil {
				return t.fail(fmt.Errorf("failed to store listing: %w", err))
			}

			if created {
				result.TotalNew++
				newListings = append(newListings, listing)
			} else {
				result.Duplicates++
			}
		}
	}

	now := time.Now().UTC()
	if err := t.searchRepo.UpdateLastChecked(t.SearchName, now); err != nil {
		return t.fail(fmt.Errorf("failed to update last checked time: %w", err))
	}

	summary, err := json.Marshal(result)
	if err != nil {
		return t.fail(fmt.Errorf("failed to encode run result: %w", err))
	}
	if err := t.taskLogRepo.MarkSuccess(t.ID, string(summary), now); err != nil {
		return t.fail(err)
	}

	if len(newListings) > 0 && t.dispatcher != nil {
		event := alert.Event{SearchName: t.SearchName, NewListings: newListings}
		if err := t.dispatcher.Dispatch(ctx, event); err != nil {
			slog.Error("Alert dispatch failed", "search", t.SearchName, "error", err)
		}
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"search", t.SearchName,
		"duration", t.GetDuration(),
		"seen", result.TotalSeen,
		"new", result.TotalNew,
		"duplicates", result.Duplicates,
		"filtered", result.Filtered)

	return nil
}

func (t *RunSearchTask) collectCandidates(ctx context.Context, adapter marketplace.Adapter) ([]marketplace.Candidate, error) {
	query := marketplace.Query{
		Keywords: t.SearchConfig.Keywords,
		Location: t.SearchConfig.Location,
		MinPrice: t.SearchConfig.MinPrice,
		MaxPrice: t.SearchConfig.MaxPrice,
		Filters:  t.SearchConfig.Filters,
	}

	var payload []byte
	var err error
	if adapter.Rendered() {
		payload, err = t.renderedFetcher.Fetch(ctx, adapter.SearchURL(query), query.Keywords)
	} else {
		payload, err = t.staticFetcher.Fetch(ctx, adapter.SearchURL(query))
	}
	if err != nil {
		return nil, err
	}

	raws, err := adapter.Extract(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to extract candidates from %s: %w", adapter.Name(), err)
	}

	return marketplace.Normalize(adapter, raws), nil
}

// filteredOut applies the configured price band, bounds inclusive.
func (t *RunSearchTask) filteredOut(candidate marketplace.Candidate) bool {
	if t.SearchConfig.MinPrice != nil && candidate.Price < *t.SearchConfig.MinPrice {
		return true
	}
	if t.SearchConfig.MaxPrice != nil && candidate.Price > *t.SearchConfig.MaxPrice {
		return true
	}
	return false
}

func (t *RunSearchTask) toListing(candidate marketplace.Candidate) database.Listing {
	var imageURLs []string
	if candidate.ImageURL != "" {
		imageURLs = []string{candidate.ImageURL}
	}

	return database.Listing{
		Marketplace: candidate.Marketplace,
		ExternalID:  candidate.ExternalID,
		Title:       candidate.Title,
		Price:       candidate.Price,
		Currency:    candidate.Currency,
		Location:    candidate.Location,
		URL:         candidate.URL,
		ImageURLs:   imageURLs,
		SellerName:  candidate.SellerName,
		PostedAt:    candidate.PostedAt,
		ScrapedAt:   time.Now().UTC(),
	}
}

// fail records the failure and propagates it. The last checked time is
// left untouched so the next dispatch scan retries the search.
func (t *RunSearchTask) fail(cause error) error {
	if err := t.taskLogRepo.MarkFailed(t.ID, cause.Error(), time.Now().UTC()); err != nil {
		slog.Error("Failed to mark task log failed", "task_id", t.ID, "error", err)
	}
	return cause
}
