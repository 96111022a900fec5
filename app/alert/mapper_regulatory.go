package alert

import (
	"cmp"
	"fmt"
	"net/url"
	"strings"
)

func MapFederalRegister(r FederalRegisterRecord) NormalizedAlert {
	published, ok := parseDate(r.PublicationDate)
	if !ok {
		published = now().UTC()
	}

	summary := CleanText(r.Abstract)
	if summary == "" {
		summary = federalRegisterAgencies(r)
	}

	a := NormalizedAlert{
		ExternalID:    strings.TrimSpace(r.DocumentNumber),
		Source:        SourceFederalRegister,
		Title:         truncate(CleanText(r.Title), maxTitleLength),
		Summary:       summary,
		LinkURL:       strings.TrimSpace(r.HTMLURL),
		DatePublished: published,
		DateUpdated:   published,
		Jurisdiction:  jurisdictionUS,
		Locations:     []string{},
		ProductTypes:  []string{"Regulatory"},
		Category:      cmp.Or(slug(r.Type), "notice"),
		Severity:      FederalRegisterSeverity(r.Type),
		Raw:           r,
	}
	a.Hash = ContentHash(a, r.PublicationDate, r.EffectiveOn)
	return a
}

func FederalRegisterSeverity(docType string) Severity {
	switch slug(docType) {
	case "rule":
		return SeverityHigh
	case "proposed_rule":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func federalRegisterAgencies(r FederalRegisterRecord) string {
	names := make([]string, 0, len(r.Agencies))
	for _, agency := range r.Agencies {
		if agency.Name != "" {
			names = append(names, agency.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf("%s published by %s.", cmp.Or(r.Type, "Document"), strings.Join(names, ", "))
}

func MapRegulationsGov(r RegulationsGovRecord) NormalizedAlert {
	published, ok := parseDate(r.PostedDate)
	if !ok {
		published = now().UTC()
	}
	updated, ok := parseDate(r.LastModifiedDate)
	if !ok {
		updated = published
	}

	id := strings.TrimSpace(r.ID)
	link := ""
	if id != "" {
		link = "https://www.regulations.gov/document/" + url.PathEscape(id)
	}

	a := NormalizedAlert{
		ExternalID:    id,
		Source:        SourceRegulationsGov,
		Title:         truncate(CleanText(r.Title), maxTitleLength),
		Summary:       regulationsGovSummary(r),
		LinkURL:       link,
		DatePublished: published,
		DateUpdated:   updated,
		Jurisdiction:  jurisdictionUS,
		Locations:     []string{},
		ProductTypes:  []string{"Regulatory"},
		Category:      cmp.Or(slug(r.DocumentType), "document"),
		Severity:      RegulationsGovSeverity(r),
		Raw:           r,
	}
	a.Hash = ContentHash(a, r.PostedDate, r.LastModifiedDate)
	return a
}

func RegulationsGovSeverity(r RegulationsGovRecord) Severity {
	switch {
	case slug(r.DocumentType) == "rule":
		return SeverityHigh
	case r.OpenForComment:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func regulationsGovSummary(r RegulationsGovRecord) string {
	var parts []string
	if r.DocumentType != "" && r.AgencyID != "" {
		parts = append(parts, fmt.Sprintf("%s from %s.", r.DocumentType, r.AgencyID))
	}
	if r.DocketID != "" {
		parts = append(parts, fmt.Sprintf("Docket %s.", r.DocketID))
	}
	if r.OpenForComment {
		if end, ok := parseDate(r.CommentEndDate); ok {
			parts = append(parts, fmt.Sprintf("Open for comment until %s.", end.Format("January 2, 2006")))
		} else {
			parts = append(parts, "Open for comment.")
		}
	}
	return strings.Join(parts, " ")
}
