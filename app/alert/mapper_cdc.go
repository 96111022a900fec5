package alert

import (
	"cmp"
	"fmt"
	"strings"
)

const foodSafetyFeed = "food-safety"

func MapCDC(r CDCRecord) NormalizedAlert {
	if r.Kind == CDCOutbreak {
		return mapCDCOutbreak(r)
	}
	return mapCDCAdvisory(r)
}

func mapCDCOutbreak(r CDCRecord) NormalizedAlert {
	title := CleanText(r.Title)
	if title == "" && r.Pathogen != "" {
		title = fmt.Sprintf("%s outbreak investigation", CleanText(r.Pathogen))
	}

	summary := CleanText(r.Description)
	if summary == "" {
		summary = cdcOutbreakSummary(r)
	}

	published, ok := parseDate(r.InvestigationStartDate)
	if !ok {
		published = now().UTC()
	}
	updated, ok := parseDate(r.LastUpdated)
	if !ok {
		updated = published
	}

	locations := make([]string, 0, len(r.States))
	for _, state := range r.States {
		if state = strings.TrimSpace(state); state != "" {
			locations = append(locations, StateName(state))
		}
	}
	if len(locations) == 0 {
		locations = statesIn(summary)
	}

	a := NormalizedAlert{
		ExternalID:    cmp.Or(strings.TrimSpace(r.ID), strings.TrimSpace(r.Link)),
		Source:        SourceCDC,
		Title:         truncate(title, maxTitleLength),
		Summary:       summary,
		LinkURL:       strings.TrimSpace(r.Link),
		DatePublished: published,
		DateUpdated:   updated,
		Jurisdiction:  jurisdictionUS,
		Locations:     locations,
		ProductTypes:  cdcProductTypes(r),
		Category:      string(CDCOutbreak),
		Severity:      SeverityHigh,
		Raw:           r,
	}
	a.Hash = ContentHash(a, r.InvestigationStartDate, r.LastUpdated)
	return a
}

func mapCDCAdvisory(r CDCRecord) NormalizedAlert {
	title := CleanText(r.Title)
	summary := CleanText(r.Description)

	published := now().UTC()
	if r.PublishedAt != nil {
		published = r.PublishedAt.UTC()
	} else if t, ok := parseDate(r.PubDate); ok {
		published = t
	}

	a := NormalizedAlert{
		ExternalID:    cmp.Or(strings.TrimSpace(r.ID), strings.TrimSpace(r.Link)),
		Source:        SourceCDC,
		Title:         truncate(title, maxTitleLength),
		Summary:       summary,
		LinkURL:       strings.TrimSpace(r.Link),
		DatePublished: published,
		DateUpdated:   published,
		Jurisdiction:  jurisdictionUS,
		Locations:     statesIn(title + " " + summary),
		ProductTypes:  cdcProductTypes(r),
		Category:      string(CDCAdvisory),
		Severity:      CDCAdvisorySeverity(title + " " + summary),
		Raw:           r,
	}
	a.Hash = ContentHash(a, r.PubDate, "")
	return a
}

func CDCAdvisorySeverity(text string) Severity {
	if containsAny(strings.ToLower(text), "death", "outbreak", "emergency") {
		return SeverityHigh
	}
	return SeverityMedium
}

func cdcProductTypes(r CDCRecord) []string {
	types := []string{"Public Health"}
	if r.Feed == foodSafetyFeed || r.Pathogen != "" {
		types = append(types, "Food Safety")
	}
	return types
}

func cdcOutbreakSummary(r CDCRecord) string {
	var parts []string
	if r.Pathogen != "" {
		parts = append(parts, fmt.Sprintf("Pathogen: %s.", CleanText(r.Pathogen)))
	}
	if r.Illnesses > 0 {
		parts = append(parts, fmt.Sprintf("Illnesses reported: %d.", r.Illnesses))
	}
	if r.Status != "" {
		parts = append(parts, fmt.Sprintf("Status: %s.", CleanText(r.Status)))
	}
	return strings.Join(parts, " ")
}
