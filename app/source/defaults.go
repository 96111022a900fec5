package source

import "github.com/lysyi3m/alert-comb/app/alert"

const (
	defaultRefreshInterval = 21600
	defaultDaysBack        = 7
	defaultTimeout         = 30
	defaultPageSize        = 100
	defaultMaxPages        = 10
)

// DefaultConfigs returns the built-in settings for every source, keyed by
// config name. Files in the sources directory override them.
func DefaultConfigs() map[string]*Config {
	configs := map[string]*Config{
		alert.SourceFDA.ConfigName(): {
			URL:       "https://api.fda.gov",
			Endpoints: []string{"food", "drug", "device"},
			Settings: ConfigSettings{
				Enabled:   true,
				RateLimit: 4,
			},
		},
		alert.SourceFSIS.ConfigName(): {
			URL: "https://www.fsis.usda.gov/fsis-content/rss/recalls.xml",
			Settings: ConfigSettings{
				Enabled:         true,
				RefreshInterval: 3600,
				RateLimit:       1,
			},
		},
		alert.SourceCDC.ConfigName(): {
			Feeds: []FeedConfig{
				{Name: "eid", URL: "https://wwwnc.cdc.gov/eid/rss/ahead-of-print.xml"},
				{Name: "mmwr", URL: "https://tools.cdc.gov/api/v2/resources/media/342778.rss"},
				{Name: "food-safety", URL: "https://tools.cdc.gov/api/v2/resources/media/316422.rss"},
			},
			Settings: ConfigSettings{
				Enabled:         true,
				RefreshInterval: 3600,
				RateLimit:       2,
			},
		},
		alert.SourceEPA.ConfigName(): {
			URL: "https://echodata.epa.gov/echo",
			Settings: ConfigSettings{
				Enabled:   true,
				RateLimit: 2,
			},
		},
		alert.SourceFederalRegister.ConfigName(): {
			URL: "https://www.federalregister.gov/api/v1",
			Agencies: []string{
				"food-and-drug-administration",
				"food-safety-and-inspection-service",
				"environmental-protection-agency",
				"centers-for-disease-control-and-prevention",
			},
			Settings: ConfigSettings{
				Enabled:  true,
				MaxPages: 5,
			},
		},
		alert.SourceRegulationsGov.ConfigName(): {
			URL:      "https://api.regulations.gov/v4",
			Agencies: []string{"FDA", "FSIS", "EPA", "CDC"},
			Settings: ConfigSettings{
				// Needs an API key; enable in regulations_gov.yml.
				Enabled:   false,
				RateLimit: 1,
				PageSize:  250,
			},
		},
	}

	for name, c := range configs {
		c.Name = name
		applySettingDefaults(&c.Settings)
	}
	return configs
}

func applySettingDefaults(s *ConfigSettings) {
	if s.RefreshInterval == 0 {
		s.RefreshInterval = defaultRefreshInterval
	}
	if s.DaysBack == 0 && !s.daysBackSet {
		s.DaysBack = defaultDaysBack
	}
	if s.Timeout == 0 {
		s.Timeout = defaultTimeout
	}
	if s.PageSize == 0 {
		s.PageSize = defaultPageSize
	}
	if s.MaxPages == 0 {
		s.MaxPages = defaultMaxPages
	}
}
