package alert

import (
	"strings"
	"time"
)

type Source string

const (
	SourceFDA             Source = "FDA"
	SourceFSIS            Source = "FSIS"
	SourceCDC             Source = "CDC"
	SourceEPA             Source = "EPA"
	SourceFederalRegister Source = "FederalRegister"
	SourceRegulationsGov  Source = "RegulationsGov"
)

// CoreSources are synced together by a full sync, in this order.
var CoreSources = []Source{SourceFDA, SourceFSIS, SourceCDC, SourceEPA}

var AllSources = []Source{
	SourceFDA,
	SourceFSIS,
	SourceCDC,
	SourceEPA,
	SourceFederalRegister,
	SourceRegulationsGov,
}

// ConfigName is the lower snake-case name used for config files and URLs.
func (s Source) ConfigName() string {
	switch s {
	case SourceFederalRegister:
		return "federal_register"
	case SourceRegulationsGov:
		return "regulations_gov"
	default:
		return strings.ToLower(string(s))
	}
}

func ParseSource(name string) (Source, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "", "-", "", ".", "", " ", "").Replace(key)

	for _, src := range AllSources {
		if strings.ToLower(string(src)) == key {
			return src, true
		}
	}
	return "", false
}

type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

type NormalizedAlert struct {
	ExternalID    string    `json:"external_id"`
	Source        Source    `json:"source"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	LinkURL       string    `json:"link_url,omitempty"`
	DatePublished time.Time `json:"date_published"`
	DateUpdated   time.Time `json:"date_updated"`
	Jurisdiction  string    `json:"jurisdiction"`
	Locations     []string  `json:"locations"`     // source order, duplicates kept
	ProductTypes  []string  `json:"product_types"` // source order
	Category      string    `json:"category"`
	Severity      Severity  `json:"severity"`
	Raw           any       `json:"raw,omitempty"`
	Hash          string    `json:"hash"`
}
