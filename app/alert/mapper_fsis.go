package alert

import (
	"cmp"
	"regexp"
	"strings"
)

var (
	classOnePattern   = regexp.MustCompile(`\bclass i\b`)
	classThreePattern = regexp.MustCompile(`\bclass iii\b`)
)

func MapFSIS(r FSISRecord) NormalizedAlert {
	title := CleanText(r.Title)
	description := CleanText(r.Description)

	published := now().UTC()
	if r.PublishedAt != nil {
		published = r.PublishedAt.UTC()
	} else if t, ok := parseDate(r.PubDate); ok {
		published = t
	}

	a := NormalizedAlert{
		ExternalID:    cmp.Or(strings.TrimSpace(r.GUID), strings.TrimSpace(r.Link)),
		Source:        SourceFSIS,
		Title:         truncate(title, maxTitleLength),
		Summary:       description,
		LinkURL:       strings.TrimSpace(r.Link),
		DatePublished: published,
		DateUpdated:   published,
		Jurisdiction:  jurisdictionUS,
		Locations:     statesIn(title + " " + description),
		ProductTypes:  []string{"Food Safety"},
		Category:      "recall",
		Severity:      FSISSeverity(title + " " + description),
		Raw:           r,
	}
	a.Hash = ContentHash(a, r.PubDate, "")
	return a
}

// FSISSeverity scores recall text by keyword.
func FSISSeverity(text string) Severity {
	text = strings.ToLower(text)

	switch {
	case classOnePattern.MatchString(text), containsAny(text, "serious", "death"):
		return SeverityHigh
	case classThreePattern.MatchString(text):
		return SeverityLow
	default:
		return SeverityMedium
	}
}
