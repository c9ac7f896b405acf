package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SearchesDir       string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Scraping configuration
	FetchTimeout    int
	FetchMaxRetries int
	FetchDelay      int
	RunBudget       int
	UserAgent       string
	DevtoolsURL     string
	SnapshotDir     string

	// Retention configuration
	RetentionDays      int
	RetentionKeepSaved bool

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
