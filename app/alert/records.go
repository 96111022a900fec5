package alert

import (
	"bytes"
	"encoding/json"
	"time"
)

// FlexString decodes both JSON strings and JSON numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FDARecord is one openFDA enforcement report.
type FDARecord struct {
	Endpoint                 string `json:"endpoint,omitempty"` // food, drug or device
	RecallNumber             string `json:"recall_number"`
	EventID                  string `json:"event_id"`
	Status                   string `json:"status"`
	Classification           string `json:"classification"`
	ProductType              string `json:"product_type"`
	ProductDescription       string `json:"product_description"`
	ReasonForRecall          string `json:"reason_for_recall"`
	RecallingFirm            string `json:"recalling_firm"`
	DistributionPattern      string `json:"distribution_pattern"`
	City                     string `json:"city"`
	State                    string `json:"state"`
	Country                  string `json:"country"`
	VoluntaryMandated        string `json:"voluntary_mandated"`
	RecallInitiationDate     string `json:"recall_initiation_date"`
	ReportDate               string `json:"report_date"`
	CenterClassificationDate string `json:"center_classification_date"`
	TerminationDate          string `json:"termination_date"`
}

// FSISRecord is one item of the FSIS recall feed.
type FSISRecord struct {
	GUID        string     `json:"guid"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	PubDate     string     `json:"pub_date"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
}

type CDCKind string

const (
	CDCOutbreak CDCKind = "outbreak"
	CDCAdvisory CDCKind = "advisory"
)

// CDCRecord is either an outbreak investigation or an advisory feed item.
// Kind is set by the adapter when the record is decoded.
type CDCRecord struct {
	Kind        CDCKind    `json:"kind"`
	Feed        string     `json:"feed,omitempty"`
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"url"`
	PubDate     string     `json:"pub_date,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Categories  []string   `json:"categories,omitempty"`

	Pathogen               string   `json:"pathogen,omitempty"`
	InvestigationStartDate string   `json:"investigation_start_date,omitempty"`
	States                 []string `json:"states,omitempty"`
	Illnesses              int      `json:"illnesses,omitempty"`
	Status                 string   `json:"status,omitempty"`
	LastUpdated            string   `json:"last_updated,omitempty"`
}

// EPARecord is one ECHO enforcement case.
type EPARecord struct {
	CaseNumber         string     `json:"CaseNumber"`
	CaseName           string     `json:"CaseName"`
	ActivityID         string     `json:"ActivityId"`
	CaseCategory       string     `json:"CaseCategoryDesc"`
	PrimaryLaw         string     `json:"PrimaryLaw"`
	StateCode          string     `json:"StateCode"`
	RegionCode         string     `json:"RegionCode"`
	CaseStatus         string     `json:"CaseStatusDesc"`
	FedPenalty         FlexString `json:"FedPenaltyAssessed"`
	SettlementDate     string     `json:"SettlementDate"`
	DateFiled          string     `json:"DateFiled"`
	EnforcementOutcome string     `json:"EnfOutcomeDesc"`
}

type FederalRegisterAgency struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// FederalRegisterRecord is one Federal Register document.
type FederalRegisterRecord struct {
	DocumentNumber  string                  `json:"document_number"`
	Title           string                  `json:"title"`
	Abstract        string                  `json:"abstract"`
	Type            string                  `json:"type"`
	HTMLURL         string                  `json:"html_url"`
	PublicationDate string                  `json:"publication_date"`
	EffectiveOn     string                  `json:"effective_on"`
	Agencies        []FederalRegisterAgency `json:"agencies"`
}

// RegulationsGovRecord is one Regulations.gov document, flattened from
// the API's data/attributes envelope.
type RegulationsGovRecord struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	DocumentType     string `json:"documentType"`
	AgencyID         string `json:"agencyId"`
	DocketID         string `json:"docketId"`
	PostedDate       string `json:"postedDate"`
	LastModifiedDate string `json:"lastModifiedDate"`
	CommentEndDate   string `json:"commentEndDate"`
	OpenForComment   bool   `json:"openForComment"`
}

// Record holds exactly one source-native record, selected by Kind.
type Record struct {
	Kind            Source
	FDA             *FDARecord
	FSIS            *FSISRecord
	CDC             *CDCRecord
	EPA             *EPARecord
	FederalRegister *FederalRegisterRecord
	RegulationsGov  *RegulationsGovRecord
}

func FromFDA(r FDARecord) Record   { return Record{Kind: SourceFDA, FDA: &r} }
func FromFSIS(r FSISRecord) Record { return Record{Kind: SourceFSIS, FSIS: &r} }
func FromCDC(r CDCRecord) Record   { return Record{Kind: SourceCDC, CDC: &r} }
func FromEPA(r EPARecord) Record   { return Record{Kind: SourceEPA, EPA: &r} }

func FromFederalRegister(r FederalRegisterRecord) Record {
	return Record{Kind: SourceFederalRegister, FederalRegister: &r}
}

func FromRegulationsGov(r RegulationsGovRecord) Record {
	return Record{Kind: SourceRegulationsGov, RegulationsGov: &r}
}
