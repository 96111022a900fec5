package alert

import (
	"cmp"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

func MapEPA(r EPARecord) NormalizedAlert {
	penalty := ParsePenalty(string(r.FedPenalty))

	published, ok := firstDate(r.DateFiled, r.SettlementDate)
	if !ok {
		published = now().UTC()
	}
	updated, ok := parseDate(r.SettlementDate)
	if !ok {
		updated = published
	}

	caseNumber := strings.TrimSpace(r.CaseNumber)

	locations := []string{}
	if r.StateCode != "" {
		locations = append(locations, StateName(r.StateCode))
	}

	a := NormalizedAlert{
		ExternalID:    caseNumber,
		Source:        SourceEPA,
		Title:         cmp.Or(truncate(CleanText(r.CaseName), maxTitleLength), strings.TrimSpace("EPA enforcement case "+caseNumber)),
		Summary:       epaSummary(r, penalty),
		LinkURL:       epaLink(r.ActivityID),
		DatePublished: published,
		DateUpdated:   updated,
		Jurisdiction:  jurisdictionUS,
		Locations:     locations,
		ProductTypes:  []string{"Environmental"},
		Category:      "enforcement",
		Severity:      EPASeverity(penalty),
		Raw:           r,
	}
	a.Hash = ContentHash(a, r.DateFiled, r.SettlementDate)
	return a
}

// EPASeverity buckets a federal penalty in dollars.
func EPASeverity(penalty float64) Severity {
	switch {
	case penalty > 1_000_000:
		return SeverityCritical
	case penalty > 100_000:
		return SeverityHigh
	case penalty > 10_000:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ParsePenalty reads amounts such as "1500000", "$1,500,000.00" or "";
// anything unparseable is 0.
func ParsePenalty(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func epaSummary(r EPARecord, penalty float64) string {
	var parts []string
	if law := CleanText(r.PrimaryLaw); law != "" {
		parts = append(parts, fmt.Sprintf("Enforcement action under %s.", law))
	}
	if category := CleanText(r.CaseCategory); category != "" {
		parts = append(parts, fmt.Sprintf("Case category: %s.", category))
	}
	if outcome := CleanText(r.EnforcementOutcome); outcome != "" {
		parts = append(parts, fmt.Sprintf("Outcome: %s.", outcome))
	}
	if status := CleanText(r.CaseStatus); status != "" {
		parts = append(parts, fmt.Sprintf("Status: %s.", status))
	}
	if penalty > 0 {
		parts = append(parts, fmt.Sprintf("Federal penalty assessed: $%s.", strconv.FormatFloat(penalty, 'f', 2, 64)))
	}
	return strings.Join(parts, " ")
}

func epaLink(activityID string) string {
	activityID = strings.TrimSpace(activityID)
	if activityID == "" {
		return ""
	}
	return "https://echo.epa.gov/enforcement-case-report?id=" + url.QueryEscape(activityID)
}
