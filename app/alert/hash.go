package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"
)

type fingerprint struct {
	Source       Source   `json:"source"`
	ExternalID   string   `json:"external_id"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	LinkURL      string   `json:"link_url"`
	Jurisdiction string   `json:"jurisdiction"`
	Locations    []string `json:"locations"`
	ProductTypes []string `json:"product_types"`
	Category     string   `json:"category"`
	Severity     Severity `json:"severity"`
	Published    string   `json:"published"`
	Updated      string   `json:"updated"`
}

// ContentHash fingerprints the normalized content of an alert. The dates
// are the strings the source reported, so a fallback timestamp never
// changes the hash between runs.
func ContentHash(a NormalizedAlert, published, updated string) string {
	fp := fingerprint{
		Source:       a.Source,
		ExternalID:   a.ExternalID,
		Title:        a.Title,
		Summary:      a.Summary,
		LinkURL:      a.LinkURL,
		Jurisdiction: a.Jurisdiction,
		Locations:    nonNil(a.Locations),
		ProductTypes: nonNil(a.ProductTypes),
		Category:     a.Category,
		Severity:     a.Severity,
		Published:    published,
		Updated:      updated,
	}

	data, _ := json.Marshal(fp)
	if canonical, err := jcs.Transform(data); err == nil {
		data = canonical
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
