package alert

import (
	"cmp"
	"net/url"
	"strings"
)

var fdaProductTypes = map[string]string{
	"food":    "Food Safety",
	"drug":    "Drugs",
	"drugs":   "Drugs",
	"device":  "Medical Devices",
	"devices": "Medical Devices",
}

func MapFDA(r FDARecord) NormalizedAlert {
	published, ok := firstDate(r.ReportDate, r.RecallInitiationDate)
	if !ok {
		published = now().UTC()
	}
	updated, ok := parseDate(r.CenterClassificationDate)
	if !ok {
		updated = published
	}

	recallNumber := strings.TrimSpace(r.RecallNumber)

	a := NormalizedAlert{
		ExternalID:    recallNumber,
		Source:        SourceFDA,
		Title:         cmp.Or(truncate(CleanText(r.ProductDescription), maxTitleLength), strings.TrimSpace("FDA recall "+recallNumber)),
		Summary:       CleanText(r.ReasonForRecall),
		LinkURL:       fdaLink(r.EventID),
		DatePublished: published,
		DateUpdated:   updated,
		Jurisdiction:  jurisdictionUS,
		Locations:     fdaLocations(r),
		ProductTypes:  []string{fdaProductType(r)},
		Category:      "recall",
		Severity:      FDASeverity(r.Classification),
		Raw:           r,
	}
	a.Hash = ContentHash(a, r.ReportDate, r.CenterClassificationDate)
	return a
}

// FDASeverity maps a recall classification; anything unrecognised gets
// the neutral Medium.
func FDASeverity(classification string) Severity {
	class := strings.ToUpper(strings.TrimSpace(classification))
	class = strings.TrimSpace(strings.TrimPrefix(class, "CLASS"))

	switch class {
	case "I":
		return SeverityHigh
	case "II":
		return SeverityMedium
	case "III":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

func fdaProductType(r FDARecord) string {
	for _, key := range []string{r.Endpoint, r.ProductType} {
		if pt, ok := fdaProductTypes[strings.ToLower(strings.TrimSpace(key))]; ok {
			return pt
		}
	}
	return cmp.Or(strings.TrimSpace(r.ProductType), "Other")
}

func fdaLocations(r FDARecord) []string {
	if nationwidePattern.MatchString(r.DistributionPattern) {
		return []string{"Nationwide"}
	}
	if states := statesIn(r.DistributionPattern); len(states) > 0 {
		return states
	}
	if r.State != "" {
		return []string{StateName(r.State)}
	}
	return []string{}
}

func fdaLink(eventID string) string {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return ""
	}
	return "https://www.accessdata.fda.gov/scripts/ires/index.cfm?Event=" + url.QueryEscape(eventID)
}
