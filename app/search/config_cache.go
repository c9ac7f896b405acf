package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	searchesDir  string
	marketplaces map[string]bool
	cache        map[string]*Config
	mu           sync.RWMutex
}

// NewConfigCache creates a cache over the search definitions in searchesDir.
// knownMarketplaces is the set of registered adapter names used for
// validation.
func NewConfigCache(searchesDir string, knownMarketplaces []string) *ConfigCache {
	known := make(map[string]bool, len(knownMarketplaces))
	for _, name := range knownMarketplaces {
		known[name] = true
	}

	return &ConfigCache{
		searchesDir:  searchesDir,
		marketplaces: known,
		cache:        make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.searchesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.searchesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive search name from filename (remove .yml extension)
		fileName := filepath.Base(file)
		searchName := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(searchName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Search configuration loaded", "search", searchName,
			"status", config.Settings.Status, "marketplaces", config.Marketplaces,
			"check_interval_minutes", config.Settings.CheckIntervalMinutes)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(searchName string) (*Config, error) {
	configFile := cc.getConfigFilePath(searchName)
	searchConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	searchConfig.Name = searchName

	if err := cc.validateConfig(searchConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[searchConfig.Name] = searchConfig

	return searchConfig, nil
}

func (cc *ConfigCache) GetConfig(searchName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	searchConfig, ok := cc.cache[searchName]
	if !ok {
		return nil, fmt.Errorf("search config with name '%s' not found", searchName)
	}
	return searchConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var searchConfig Config
	if err := yaml.Unmarshal(data, &searchConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if searchConfig.Settings.Status == "" {
		searchConfig.Settings.Status = StatusActive
	}
	if searchConfig.Settings.CheckIntervalMinutes == 0 {
		searchConfig.Settings.CheckIntervalMinutes = DefaultCheckInterval
	}

	// Clamp rather than reject: a too-eager interval just polls at the floor
	if searchConfig.Settings.CheckIntervalMinutes < MinCheckInterval {
		searchConfig.Settings.CheckIntervalMinutes = MinCheckInterval
	}
	if searchConfig.Settings.CheckIntervalMinutes > MaxCheckInterval {
		searchConfig.Settings.CheckIntervalMinutes = MaxCheckInterval
	}

	return &searchConfig, nil
}

func (cc *ConfigCache) validateConfig(searchConfig *Config) error {
	if searchConfig == nil {
		return fmt.Errorf("searchConfig is nil")
	}

	if searchConfig.Name == "" {
		return fmt.Errorf("search name is required")
	}
	if searchConfig.Keywords == "" {
		return fmt.Errorf("keywords are required")
	}
	if len(searchConfig.Marketplaces) == 0 {
		return fmt.Errorf("at least one marketplace is required")
	}

	for _, name := range searchConfig.Marketplaces {
		if len(cc.marketplaces) > 0 && !cc.marketplaces[name] {
			return fmt.Errorf("unknown marketplace: %s", name)
		}
	}

	if searchConfig.MinPrice != nil && *searchConfig.MinPrice < 0 {
		return fmt.Errorf("min price must be non-negative")
	}
	if searchConfig.MaxPrice != nil && *searchConfig.MaxPrice < 0 {
		return fmt.Errorf("max price must be non-negative")
	}
	if searchConfig.MinPrice != nil && searchConfig.MaxPrice != nil &&
		*searchConfig.MinPrice > *searchConfig.MaxPrice {
		return fmt.Errorf("min price must not exceed max price")
	}

	switch searchConfig.Settings.Status {
	case StatusActive, StatusPaused, StatusDisabled:
	default:
		return fmt.Errorf("invalid status: %s", searchConfig.Settings.Status)
	}

	for i, alert := range searchConfig.Alerts {
		if alert.Channel == "" {
			return fmt.Errorf("alert at index %d must have a channel", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(searchName string) string {
	return filepath.Join(cc.searchesDir, searchName+".yml")
}
