package source

import (
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/alert-comb/app/alert"
)

type Config struct {
	Name         string         // Derived from filename (without .yml extension)
	URL          string         `yaml:"url"`
	Endpoints    []string       `yaml:"endpoints"`     // FDA enforcement categories
	Feeds        []FeedConfig   `yaml:"feeds"`         // CDC RSS feeds
	OutbreaksURL string         `yaml:"outbreaks_url"` // CDC outbreak list (JSON)
	Agencies     []string       `yaml:"agencies"`
	Settings     ConfigSettings `yaml:"settings"`
	Filters      []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool    `yaml:"enabled"`
	RefreshInterval int     `yaml:"refresh_interval"` // seconds
	DaysBack        int     `yaml:"days_back"`
	Timeout         int     `yaml:"timeout"`    // seconds
	RateLimit       float64 `yaml:"rate_limit"` // requests per second, 0 means unlimited
	PageSize        int     `yaml:"page_size"`
	MaxPages        int     `yaml:"max_pages"`

	daysBackSet bool
}

// UnmarshalYAML notes whether days_back was given, so an explicit 0 (today
// only) is kept instead of being defaulted.
func (s *ConfigSettings) UnmarshalYAML(value *yaml.Node) error {
	type plain ConfigSettings
	if err := value.Decode((*plain)(s)); err != nil {
		return err
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "days_back" {
			s.daysBackSet = true
		}
	}
	return nil
}

type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

func (c *Config) Source() alert.Source {
	src, _ := alert.ParseSource(c.Name)
	return src
}

func (c *Config) clone() *Config {
	cp := *c
	cp.Endpoints = slices.Clone(c.Endpoints)
	cp.Feeds = slices.Clone(c.Feeds)
	cp.Agencies = slices.Clone(c.Agencies)
	cp.Filters = make([]ConfigFilter, len(c.Filters))
	for i, f := range c.Filters {
		cp.Filters[i] = ConfigFilter{
			Field:    f.Field,
			Includes: slices.Clone(f.Includes),
			Excludes: slices.Clone(f.Excludes),
		}
	}
	return &cp
}
