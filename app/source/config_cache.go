package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lysyi3m/alert-comb/app/alert"
	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      DefaultConfigs(),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sourceName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "source", config.Name, "enabled", config.Settings.Enabled, "refresh_interval", config.Settings.RefreshInterval)
	}

	return nil
}

// LoadConfig reads <sourcesDir>/<name>.yml over the built-in defaults for
// that source.
func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	src, ok := alert.ParseSource(sourceName)
	if !ok {
		return nil, fmt.Errorf("unknown source '%s'", sourceName)
	}

	base, ok := DefaultConfigs()[src.ConfigName()]
	if !ok {
		return nil, fmt.Errorf("no defaults for source '%s'", src)
	}

	configFile := cc.getConfigFilePath(sourceName)
	sourceConfig, err := cc.parseConfig(configFile, base)
	if err != nil {
		return nil, err
	}

	sourceConfig.Name = src.ConfigName()

	if err := cc.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	src, ok := alert.ParseSource(sourceName)
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}

	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[src.ConfigName()]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return sourceConfig, nil
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

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

// Filters returns the filter rules configured for a source.
func (cc *ConfigCache) Filters(src alert.Source) []ConfigFilter {
	sourceConfig, err := cc.GetConfig(src.ConfigName())
	if err != nil {
		return nil
	}
	return sourceConfig.Filters
}

func (cc *ConfigCache) parseConfig(configFile string, base *Config) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sourceConfig := base.clone()
	if err := yaml.Unmarshal(data, sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applySettingDefaults(&sourceConfig.Settings)

	return sourceConfig, nil
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	if sourceConfig.URL == "" && len(sourceConfig.Feeds) == 0 {
		return fmt.Errorf("url or feeds is required")
	}

	for i, feed := range sourceConfig.Feeds {
		if feed.Name == "" || feed.URL == "" {
			return fmt.Errorf("feed at index %d must have a name and url", i)
		}
	}

	nonNegativeFields := map[string]int{
		"refresh interval": sourceConfig.Settings.RefreshInterval,
		"days back":        sourceConfig.Settings.DaysBack,
		"timeout":          sourceConfig.Settings.Timeout,
		"page size":        sourceConfig.Settings.PageSize,
		"max pages":        sourceConfig.Settings.MaxPages,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if sourceConfig.Settings.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}

	for i, filter := range sourceConfig.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}
