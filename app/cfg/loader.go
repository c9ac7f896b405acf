package cfg

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/deal-scout.db" description:"Path to the SQLite database file"`

	// Application configuration
	SearchesDir       string `long:"searches-dir" env:"SEARCHES_DIR" default:"./searches" description:"Directory containing search configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for search runs"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Dispatch scan interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Scraping configuration
	FetchTimeout    int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-request fetch timeout in seconds"`
	FetchMaxRetries int    `long:"fetch-max-retries" env:"FETCH_MAX_RETRIES" default:"3" description:"Maximum retry attempts per marketplace request"`
	FetchDelay      int    `long:"fetch-delay" env:"FETCH_DELAY" default:"2" description:"Base delay between marketplace requests in seconds"`
	RunBudget       int    `long:"run-budget" env:"RUN_BUDGET" default:"10" description:"Hard wall-clock budget for one search run in minutes"`
	UserAgent       string `long:"user-agent" env:"USER_AGENT" description:"Override the rotating user agent pool with a fixed value (optional)"`
	DevtoolsURL     string `long:"devtools-url" env:"DEVTOOLS_WEBSOCKET_URL" description:"Remote Chrome devtools websocket URL; empty launches a local browser"`
	SnapshotDir     string `long:"snapshot-dir" env:"SNAPSHOT_DIR" default:"./data/snapshots" description:"Directory for diagnostic page snapshots"`

	// Retention configuration
	RetentionDays      int  `long:"retention-days" env:"RETENTION_DAYS" default:"30" description:"Delete listings older than this many days"`
	RetentionKeepSaved bool `long:"retention-keep-saved" env:"RETENTION_KEEP_SAVED" description:"Exempt saved listings from retention cleanup"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/London)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		SearchesDir:        raw.SearchesDir,
		Port:               raw.Port,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  raw.SchedulerInterval,
		APIAccessKey:       raw.APIAccessKey,
		FetchTimeout:       raw.FetchTimeout,
		FetchMaxRetries:    raw.FetchMaxRetries,
		FetchDelay:         raw.FetchDelay,
		RunBudget:          raw.RunBudget,
		UserAgent:          raw.UserAgent,
		DevtoolsURL:        raw.DevtoolsURL,
		SnapshotDir:        raw.SnapshotDir,
		RetentionDays:      raw.RetentionDays,
		RetentionKeepSaved: raw.RetentionKeepSaved,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
