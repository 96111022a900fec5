package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const alertSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["external_id", "source", "title", "date_published", "severity", "hash"],
  "properties": {
    "external_id": {"type": "string", "pattern": "\\S"},
    "source": {"enum": ["FDA", "FSIS", "CDC", "EPA", "FederalRegister", "RegulationsGov"]},
    "title": {"type": "string", "pattern": "\\S"},
    "summary": {"type": "string"},
    "link_url": {"type": "string"},
    "date_published": {"type": "string", "minLength": 1},
    "date_updated": {"type": "string"},
    "jurisdiction": {"type": "string"},
    "locations": {"type": "array", "items": {"type": "string"}},
    "product_types": {"type": "array", "items": {"type": "string"}},
    "category": {"type": "string"},
    "severity": {"enum": ["Critical", "High", "Medium", "Low"]},
    "hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"}
  }
}`

var alertValidator = jsonschema.MustCompileString("alert.schema.json", alertSchema)

// validationView is the checked shape of an alert; raw is opaque and
// not part of it.
type validationView struct {
	ExternalID    string   `json:"external_id"`
	Source        Source   `json:"source"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	LinkURL       string   `json:"link_url,omitempty"`
	DatePublished string   `json:"date_published,omitempty"`
	DateUpdated   string   `json:"date_updated,omitempty"`
	Jurisdiction  string   `json:"jurisdiction"`
	Locations     []string `json:"locations,omitempty"`
	ProductTypes  []string `json:"product_types,omitempty"`
	Category      string   `json:"category"`
	Severity      Severity `json:"severity,omitempty"`
	Hash          string   `json:"hash"`
}

// Validate is the single point where normalized alerts are rejected.
func Validate(a NormalizedAlert) error {
	view := validationView{
		ExternalID:    a.ExternalID,
		Source:        a.Source,
		Title:         a.Title,
		Summary:       a.Summary,
		LinkURL:       a.LinkURL,
		DatePublished: formatDate(a.DatePublished),
		DateUpdated:   formatDate(a.DateUpdated),
		Jurisdiction:  a.Jurisdiction,
		Locations:     a.Locations,
		ProductTypes:  a.ProductTypes,
		Category:      a.Category,
		Severity:      a.Severity,
		Hash:          a.Hash,
	}

	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode alert: %w", err)
	}

	if err := alertValidator.Validate(doc); err != nil {
		return fmt.Errorf("invalid alert %s/%s: %w", a.Source, a.ExternalID, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
