package search

// Search lifecycle states
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusDisabled = "disabled"
)

// Check interval bounds in minutes
const (
	MinCheckInterval     = 15
	MaxCheckInterval     = 1440
	DefaultCheckInterval = 60
)

type Config struct {
	Name         string            // Derived from filename (without .yml extension)
	Keywords     string            `yaml:"keywords"`
	Marketplaces []string          `yaml:"marketplaces"`
	Location     string            `yaml:"location"`
	MinPrice     *float64          `yaml:"min_price"`
	MaxPrice     *float64          `yaml:"max_price"`
	Filters      map[string]string `yaml:"filters"`
	Settings     ConfigSettings    `yaml:"settings"`
	Alerts       []ConfigAlert     `yaml:"alerts"`
}

type ConfigSettings struct {
	Status               string `yaml:"status"`
	CheckIntervalMinutes int    `yaml:"check_interval_minutes"`
}

type ConfigAlert struct {
	Channel string            `yaml:"channel"`
	Enabled bool              `yaml:"enabled"`
	Config  map[string]string `yaml:"config"`
}
