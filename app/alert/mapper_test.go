package alert

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func fixedNow(t *testing.T, ts time.Time) {
	t.Helper()
	old := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = old })
}

func TestMapFDA(t *testing.T) {
	record := FDARecord{
		Endpoint:                 "food",
		RecallNumber:             "F-0123-2024",
		EventID:                  "93012",
		Classification:           "Class I",
		ProductDescription:       "Organic <b>Spinach</b>, 10 oz bags",
		ReasonForRecall:          "Potential Listeria monocytogenes contamination",
		RecallingFirm:            "Green Fields LLC",
		DistributionPattern:      "Distributed in CA, NV and Arizona",
		State:                    "CA",
		ReportDate:               "20240115",
		CenterClassificationDate: "20240120",
	}

	a := MapFDA(record)

	if a.ExternalID != "F-0123-2024" {
		t.Errorf("Expected external ID 'F-0123-2024', got '%s'", a.ExternalID)
	}
	if a.Source != SourceFDA {
		t.Errorf("Expected source FDA, got %s", a.Source)
	}
	if a.Title != "Organic Spinach, 10 oz bags" {
		t.Errorf("Expected HTML-stripped title, got '%s'", a.Title)
	}
	if a.Severity != SeverityHigh {
		t.Errorf("Expected High severity for Class I, got %s", a.Severity)
	}
	if a.Category != "recall" {
		t.Errorf("Expected category 'recall', got '%s'", a.Category)
	}
	if len(a.ProductTypes) != 1 || a.ProductTypes[0] != "Food Safety" {
		t.Errorf("Expected product types [Food Safety], got %v", a.ProductTypes)
	}

	expectedLocations := []string{"California", "Nevada", "Arizona"}
	if strings.Join(a.Locations, "|") != strings.Join(expectedLocations, "|") {
		t.Errorf("Expected locations %v, got %v", expectedLocations, a.Locations)
	}

	if !a.DatePublished.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected published 2024-01-15, got %v", a.DatePublished)
	}
	if !a.DateUpdated.Equal(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected updated 2024-01-20, got %v", a.DateUpdated)
	}
	if !strings.Contains(a.LinkURL, "Event=93012") {
		t.Errorf("Expected link to reference event, got '%s'", a.LinkURL)
	}
	if len(a.Hash) != 64 {
		t.Errorf("Expected 64-char hash, got %d chars", len(a.Hash))
	}
	if err := Validate(a); err != nil {
		t.Errorf("Expected mapped alert to validate, got: %v", err)
	}
}

func TestFDASeverity(t *testing.T) {
	tests := []struct {
		classification string
		expected       Severity
	}{
		{"Class I", SeverityHigh},
		{"class ii", SeverityMedium},
		{"Class III", SeverityLow},
		{"", SeverityMedium},
		{"Not Yet Classified", SeverityMedium},
	}

	for _, tt := range tests {
		if got := FDASeverity(tt.classification); got != tt.expected {
			t.Errorf("FDASeverity(%q): expected %s, got %s", tt.classification, tt.expected, got)
		}
	}
}

func TestMapFDANationwideAndMissingFields(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, ts)

	a := MapFDA(FDARecord{
		Endpoint:            "device",
		RecallNumber:        "Z-1-2024",
		DistributionPattern: "Nationwide distribution including TX",
	})

	if len(a.Locations) != 1 || a.Locations[0] != "Nationwide" {
		t.Errorf("Expected [Nationwide], got %v", a.Locations)
	}
	if a.Title != "FDA recall Z-1-2024" {
		t.Errorf("Expected fallback title, got '%s'", a.Title)
	}
	if a.Severity != SeverityMedium {
		t.Errorf("Expected neutral Medium severity, got %s", a.Severity)
	}
	if !a.DatePublished.Equal(ts) {
		t.Errorf("Expected fallback publish time %v, got %v", ts, a.DatePublished)
	}
	if a.ProductTypes[0] != "Medical Devices" {
		t.Errorf("Expected Medical Devices, got %v", a.ProductTypes)
	}
}

func TestMapUppercaseTextLocations(t *testing.T) {
	fixedNow(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	fda := MapFDA(FDARecord{
		Endpoint:            "food",
		RecallNumber:        "F-9-2024",
		DistributionPattern: "PRODUCT WAS DISTRIBUTED IN CA AND OR THROUGH RETAIL STORES",
	})
	if strings.Join(fda.Locations, ",") != "California" {
		t.Errorf("Expected [California], got %v", fda.Locations)
	}

	fsis := MapFSIS(FSISRecord{
		GUID:  "fsis-010-2024",
		Title: "ABC MEAT CO. RECALLS BEEF PRODUCTS DUE TO MISBRANDING",
	})
	if len(fsis.Locations) != 0 {
		t.Errorf("Expected no locations, got %v", fsis.Locations)
	}

	listed := MapFDA(FDARecord{
		Endpoint:            "food",
		RecallNumber:        "F-10-2024",
		DistributionPattern: "DISTRIBUTED TO WA, OR, ID AND ME VIA DISTRIBUTORS IN PA/DE",
	})
	if strings.Join(listed.Locations, ",") != "Washington,Oregon,Idaho,Pennsylvania,Delaware" {
		t.Errorf("Expected listed states only, got %v", listed.Locations)
	}
}

func TestMapFSIS(t *testing.T) {
	published := time.Date(2024, 2, 2, 15, 0, 0, 0, time.UTC)
	record := FSISRecord{
		GUID:        "fsis-003-2024",
		Title:       "Acme Meats Recalls Ground Beef Products Due to Possible E. Coli Contamination",
		Description: "<p>This is a <strong>Class I</strong> recall. Products were shipped to retail locations in Texas and Oklahoma.</p>",
		Link:        "https://www.fsis.usda.gov/recalls-alerts/acme",
		PubDate:     "Fri, 02 Feb 2024 15:00:00 +0000",
		PublishedAt: &published,
	}

	a := MapFSIS(record)

	if a.ExternalID != "fsis-003-2024" {
		t.Errorf("Expected GUID as external ID, got '%s'", a.ExternalID)
	}
	if strings.Contains(a.Summary, "<") {
		t.Errorf("Expected HTML stripped summary, got '%s'", a.Summary)
	}
	if a.Severity != SeverityHigh {
		t.Errorf("Expected High severity, got %s", a.Severity)
	}
	if strings.Join(a.Locations, ",") != "Texas,Oklahoma" {
		t.Errorf("Expected [Texas Oklahoma], got %v", a.Locations)
	}
	if !a.DatePublished.Equal(published) {
		t.Errorf("Expected published %v, got %v", published, a.DatePublished)
	}
}

func TestFSISSeverity(t *testing.T) {
	tests := []struct {
		text     string
		expected Severity
	}{
		{"Class I Recall of chicken", SeverityHigh},
		{"may cause serious adverse health consequences", SeverityHigh},
		{"reports of one death", SeverityHigh},
		{"Class II recall, low risk", SeverityMedium},
		{"Class III recall for labeling", SeverityLow},
		{"Public health alert", SeverityMedium},
	}

	for _, tt := range tests {
		if got := FSISSeverity(tt.text); got != tt.expected {
			t.Errorf("FSISSeverity(%q): expected %s, got %s", tt.text, tt.expected, got)
		}
	}
}

func TestMapCDCOutbreak(t *testing.T) {
	record := CDCRecord{
		Kind:                   CDCOutbreak,
		ID:                     "salmonella-onions-2024",
		Title:                  "Salmonella Outbreak Linked to Onions",
		Pathogen:               "Salmonella",
		InvestigationStartDate: "2024-04-10",
		States:                 []string{"OH", "Michigan", "OH"},
		Link:                   "https://www.cdc.gov/salmonella/outbreaks/onions",
	}

	a := MapCDC(record)

	if a.Category != "outbreak" {
		t.Errorf("Expected category 'outbreak', got '%s'", a.Category)
	}
	if a.Severity != SeverityHigh {
		t.Errorf("Expected High severity, got %s", a.Severity)
	}
	if strings.Join(a.Locations, ",") != "Ohio,Michigan,Ohio" {
		t.Errorf("Expected duplicates preserved in order, got %v", a.Locations)
	}
	if !a.DatePublished.Equal(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected investigation start as publish date, got %v", a.DatePublished)
	}
	if a.Summary == "" {
		t.Error("Expected generated summary for outbreak without description")
	}
}

func TestMapCDCAdvisoryWithoutPubDate(t *testing.T) {
	ts := time.Date(2024, 5, 5, 8, 30, 0, 0, time.UTC)
	fixedNow(t, ts)

	record := CDCRecord{
		Kind:        CDCAdvisory,
		Feed:        "mmwr",
		ID:          "https://www.cdc.gov/mmwr/volumes/73/wr/mm7301a1.htm",
		Title:       "Measles Cases and Outbreaks",
		Description: "Weekly update",
	}

	a := MapCDC(record)

	if !a.DatePublished.Equal(ts) {
		t.Errorf("Expected now fallback %v, got %v", ts, a.DatePublished)
	}
	if a.Category != "advisory" {
		t.Errorf("Expected category 'advisory', got '%s'", a.Category)
	}
	if a.Severity != SeverityHigh {
		t.Errorf("Expected High severity for outbreak keyword, got %s", a.Severity)
	}

	// Hash must not move with the fallback clock.
	fixedNow(t, ts.Add(24*time.Hour))
	again := MapCDC(record)
	if a.Hash != again.Hash {
		t.Error("Expected identical hash across runs for undated advisory")
	}
}

func TestMapEPA(t *testing.T) {
	tests := []struct {
		penalty  FlexString
		expected Severity
	}{
		{"1500000", SeverityCritical},
		{"$250,000.00", SeverityHigh},
		{"50000", SeverityMedium},
		{"10000", SeverityLow},
		{"", SeverityLow},
		{"n/a", SeverityLow},
	}

	for _, tt := range tests {
		a := MapEPA(EPARecord{
			CaseNumber: "04-2024-0001",
			CaseName:   "Acme Chemical Co.",
			StateCode:  "GA",
			FedPenalty: tt.penalty,
			DateFiled:  "03/15/2024",
		})
		if a.Severity != tt.expected {
			t.Errorf("penalty %q: expected %s, got %s", tt.penalty, tt.expected, a.Severity)
		}
		if len(a.Locations) != 1 || a.Locations[0] != "Georgia" {
			t.Errorf("Expected [Georgia], got %v", a.Locations)
		}
		if !a.DatePublished.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Expected filed date as published, got %v", a.DatePublished)
		}
	}
}

func TestEPARecordDecodesNumericPenalty(t *testing.T) {
	var record EPARecord
	if err := json.Unmarshal([]byte(`{"CaseNumber":"X-1","FedPenaltyAssessed":2000000}`), &record); err != nil {
		t.Fatalf("Expected numeric penalty to decode, got: %v", err)
	}
	if MapEPA(record).Severity != SeverityCritical {
		t.Errorf("Expected Critical severity, got %s", MapEPA(record).Severity)
	}
}

func TestMapFederalRegister(t *testing.T) {
	a := MapFederalRegister(FederalRegisterRecord{
		DocumentNumber:  "2024-01234",
		Title:           "Food Labeling: Nutrient Content Claims",
		Type:            "Proposed Rule",
		HTMLURL:         "https://www.federalregister.gov/d/2024-01234",
		PublicationDate: "2024-01-22",
		Agencies:        []FederalRegisterAgency{{Name: "Food and Drug Administration"}},
	})

	if a.Category != "proposed_rule" {
		t.Errorf("Expected category 'proposed_rule', got '%s'", a.Category)
	}
	if a.Severity != SeverityMedium {
		t.Errorf("Expected Medium severity, got %s", a.Severity)
	}
	if !strings.Contains(a.Summary, "Food and Drug Administration") {
		t.Errorf("Expected agency summary fallback, got '%s'", a.Summary)
	}
	if err := Validate(a); err != nil {
		t.Errorf("Expected valid alert, got: %v", err)
	}
}

func TestMapRegulationsGov(t *testing.T) {
	a := MapRegulationsGov(RegulationsGovRecord{
		ID:             "FDA-2024-N-0001-0001",
		Title:          "Request for Comments",
		DocumentType:   "Notice",
		AgencyID:       "FDA",
		PostedDate:     "2024-02-01T05:00:00Z",
		CommentEndDate: "2024-04-01T03:59:59Z",
		OpenForComment: true,
	})

	if a.Severity != SeverityMedium {
		t.Errorf("Expected Medium severity for open comment period, got %s", a.Severity)
	}
	if a.LinkURL != "https://www.regulations.gov/document/FDA-2024-N-0001-0001" {
		t.Errorf("Unexpected link: %s", a.LinkURL)
	}
	if !strings.Contains(a.Summary, "Open for comment until") {
		t.Errorf("Expected comment period in summary, got '%s'", a.Summary)
	}
}

func TestNormalizeDispatch(t *testing.T) {
	a, err := Normalize(FromEPA(EPARecord{CaseNumber: "1", FedPenalty: "5"}))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if a.Source != SourceEPA {
		t.Errorf("Expected EPA alert, got %s", a.Source)
	}

	if _, err := Normalize(Record{Kind: SourceFDA}); err == nil {
		t.Error("Expected error for record without payload")
	}
	if _, err := Normalize(Record{Kind: "Unknown"}); err == nil {
		t.Error("Expected error for unknown record kind")
	}
}

func TestParseSource(t *testing.T) {
	tests := map[string]Source{
		"fda":              SourceFDA,
		"FSIS":             SourceFSIS,
		"federal_register": SourceFederalRegister,
		"regulations-gov":  SourceRegulationsGov,
		"RegulationsGov":   SourceRegulationsGov,
	}
	for input, expected := range tests {
		got, ok := ParseSource(input)
		if !ok || got != expected {
			t.Errorf("ParseSource(%q): expected %s, got %s (ok=%t)", input, expected, got, ok)
		}
	}
	if _, ok := ParseSource("usda"); ok {
		t.Error("Expected unknown source to be rejected")
	}
	for _, src := range AllSources {
		if got, ok := ParseSource(src.ConfigName()); !ok || got != src {
			t.Errorf("Expected config name %q to round-trip to %s", src.ConfigName(), src)
		}
	}
}
