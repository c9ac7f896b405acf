package database

import (
	"time"
)

type Search struct {
	ID                   string
	Name                 string // Configuration search identifier derived from filename
	Keywords             string
	Marketplaces         []string
	Location             string
	MinPrice             *float64
	MaxPrice             *float64
	Filters              map[string]string
	Status               string // active, paused, disabled
	CheckIntervalMinutes int
	LastCheckedAt        *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Listing struct {
	ID           string
	Marketplace  string
	ExternalID   string // Opaque identifier assigned by the marketplace
	Title        string
	Price        float64
	Currency     string
	Location     string
	URL          string
	ImageURLs    []string
	SellerName   string
	SellerRating *float64
	Metadata     map[string]string
	PostedAt     *time.Time // Marketplace-reported, optional
	ScrapedAt    time.Time
	IsSaved      bool
	IsFeatured   bool
	CreatedAt    time.Time
}

type Alert struct {
	ID              string
	SearchName      string
	Channel         string // email, sms, push, webhook
	Enabled         bool
	Config          map[string]string
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

type TaskLog struct {
	ID          string
	TaskID      string
	TaskName    string
	SearchName  string
	Status      string // running, success, failed
	Result      string // JSON summary on success
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}
