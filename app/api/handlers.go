package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/magnusk/deal-scout/app/database"
	"github.com/magnusk/deal-scout/app/search"
	"github.com/magnusk/deal-scout/app/tasks"
)

func NewHandler(configCache *search.ConfigCache, searchRepo database.SearchRepository,
	listingRepo database.ListingRepository, taskLogRepo database.TaskLogRepository,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		configCache: configCache,
		searchRepo:  searchRepo,
		listingRepo: listingRepo,
		taskLogRepo: taskLogRepo,
		scheduler:   scheduler,
		version:     version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if searchCount, err := h.searchRepo.GetSearchCount(); err == nil {
		health["searches"] = searchCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"version":               h.version,
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	if searchCount, err := h.searchRepo.GetSearchCount(); err == nil {
		stats["searches"] = searchCount
	}
	if listingCount, err := h.listingRepo.GetListingCount(); err == nil {
		stats["listings"] = listingCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListSearches(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	searches := make([]map[string]interface{}, 0, len(configs))

	for _, searchConfig := range configs {
		searchInfo := map[string]interface{}{
			"name":                   searchConfig.Name,
			"keywords":               searchConfig.Keywords,
			"marketplaces":           searchConfig.Marketplaces,
			"status":                 searchConfig.Settings.Status,
			"check_interval_minutes": searchConfig.Settings.CheckIntervalMinutes,
			"running":                h.scheduler.IsRunning(searchConfig.Name),
		}

		if stored, err := h.searchRepo.GetSearch(searchConfig.Name); err == nil && stored != nil {
			searchInfo["last_checked_at"] = stored.LastCheckedAt
			searchInfo["updated_at"] = stored.UpdatedAt
		}

		searches = append(searches, searchInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"searches": searches,
		"total":    len(searches),
	})
}

func (h *Handler) APIGetSearch(c *gin.Context) {
	name := c.Param("name")

	searchConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Search configuration not found"})
		return
	}

	stored, err := h.searchRepo.GetSearch(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_search", "search", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	details := map[string]interface{}{
		"name":                   searchConfig.Name,
		"keywords":               searchConfig.Keywords,
		"marketplaces":           searchConfig.Marketplaces,
		"location":               searchConfig.Location,
		"min_price":              searchConfig.MinPrice,
		"max_price":              searchConfig.MaxPrice,
		"status":                 searchConfig.Settings.Status,
		"check_interval_minutes": searchConfig.Settings.CheckIntervalMinutes,
		"alerts":                 len(searchConfig.Alerts),
		"running":                h.scheduler.IsRunning(name),
	}
	if stored != nil {
		details["last_checked_at"] = stored.LastCheckedAt
		details["created_at"] = stored.CreatedAt
		details["updated_at"] = stored.UpdatedAt
	}

	c.JSON(http.StatusOK, details)
}

// APIRunSearch queues an immediate run of one search. Returns 409 when
// the search is already on the queue or executing.
func (h *Handler) APIRunSearch(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Search configuration not found"})
		return
	}

	if h.scheduler.IsRunning(name) {
		c.JSON(http.StatusConflict, gin.H{"error": "Search is already running"})
		return
	}

	if err := h.scheduler.EnqueueSearchRun(name); err != nil {
		slog.Error("Failed to enqueue search run", "search", name, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "search": name})
}

func (h *Handler) APIListTasks(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	logs, err := h.taskLogRepo.GetRecent(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_task_logs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	entries := make([]map[string]interface{}, 0, len(logs))
	for _, entry := range logs {
		entries = append(entries, map[string]interface{}{
			"task_id":      entry.TaskID,
			"task_name":    entry.TaskName,
			"search_name":  entry.SearchName,
			"status":       entry.Status,
			"result":       entry.Result,
			"error":        entry.Error,
			"started_at":   entry.StartedAt,
			"completed_at": entry.CompletedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"tasks": entries,
		"total": len(entries),
	})
}
