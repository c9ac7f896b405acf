package api

import (
	"github.com/magnusk/deal-scout/app/database"
	"github.com/magnusk/deal-scout/app/search"
	"github.com/magnusk/deal-scout/app/tasks"
)

type Handler struct {
	configCache *search.ConfigCache
	searchRepo  database.SearchRepository
	listingRepo database.ListingRepository
	taskLogRepo database.TaskLogRepository
	scheduler   tasks.TaskSchedulerInterface
	version     string
}
