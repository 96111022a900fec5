package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/lysyi3m/alert-comb/app/alert"
)

const documentsEndpoint = "documents"

var ErrMissingAPIKey = errors.New("regulations.gov API key is not configured")

type federalRegisterResponse struct {
	Count       int                           `json:"count"`
	NextPageURL string                        `json:"next_page_url"`
	Results     []alert.FederalRegisterRecord `json:"results"`
}

// FederalRegisterClient reads documents published by the configured
// agencies.
type FederalRegisterClient struct {
	fetcher  *Fetcher
	baseURL  string
	agencies []string
	pageSize int
	maxPages int
}

func NewFederalRegisterClient(config *Config, fetcher *Fetcher) *FederalRegisterClient {
	return &FederalRegisterClient{
		fetcher:  fetcher,
		baseURL:  strings.TrimRight(config.URL, "/"),
		agencies: slices.Clone(config.Agencies),
		pageSize: config.Settings.PageSize,
		maxPages: config.Settings.MaxPages,
	}
}

func (c *FederalRegisterClient) Endpoints() []string {
	return []string{documentsEndpoint}
}

func (c *FederalRegisterClient) Fetch(ctx context.Context, endpoint string, daysBack int) ([]alert.FederalRegisterRecord, error) {
	from, _ := window(daysBack, now())

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(c.pageSize))
	params.Set("order", "newest")
	params.Set("conditions[publication_date][gte]", from.Format("2006-01-02"))
	for _, agency := range c.agencies {
		params.Add("conditions[agencies][]", agency)
	}

	nextURL := fmt.Sprintf("%s/documents.json?%s", c.baseURL, params.Encode())

	var records []alert.FederalRegisterRecord
	for page := 0; page < c.maxPages && nextURL != ""; page++ {
		var resp federalRegisterResponse
		if err := c.fetcher.GetJSON(ctx, nextURL, nil, &resp); err != nil {
			return nil, err
		}
		records = append(records, resp.Results...)
		nextURL = resp.NextPageURL
	}

	return records, nil
}

type regulationsGovResponse struct {
	Data []struct {
		ID         string                     `json:"id"`
		Attributes alert.RegulationsGovRecord `json:"attributes"`
	} `json:"data"`
	Meta struct {
		HasNextPage bool `json:"hasNextPage"`
	} `json:"meta"`
}

// RegulationsGovClient reads documents posted on Regulations.gov.
type RegulationsGovClient struct {
	fetcher  *Fetcher
	baseURL  string
	apiKey   string
	agencies []string
	pageSize int
	maxPages int
}

func NewRegulationsGovClient(config *Config, fetcher *Fetcher, apiKey string) *RegulationsGovClient {
	return &RegulationsGovClient{
		fetcher:  fetcher,
		baseURL:  strings.TrimRight(config.URL, "/"),
		apiKey:   apiKey,
		agencies: slices.Clone(config.Agencies),
		pageSize: config.Settings.PageSize,
		maxPages: config.Settings.MaxPages,
	}
}

func (c *RegulationsGovClient) Endpoints() []string {
	return []string{documentsEndpoint}
}

func (c *RegulationsGovClient) Fetch(ctx context.Context, endpoint string, daysBack int) ([]alert.RegulationsGovRecord, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	from, _ := window(daysBack, now())

	header := http.Header{}
	header.Set("X-API-Key", c.apiKey)

	var records []alert.RegulationsGovRecord
	for page := 1; page <= c.maxPages; page++ {
		params := url.Values{}
		params.Set("filter[postedDate][ge]", from.Format("2006-01-02"))
		if len(c.agencies) > 0 {
			params.Set("filter[agencyId]", strings.Join(c.agencies, ","))
		}
		params.Set("page[size]", strconv.Itoa(c.pageSize))
		params.Set("page[number]", strconv.Itoa(page))
		params.Set("sort", "-postedDate")

		rawURL := fmt.Sprintf("%s/documents?%s", c.baseURL, params.Encode())

		var resp regulationsGovResponse
		if err := c.fetcher.GetJSON(ctx, rawURL, header, &resp); err != nil {
			return nil, err
		}

		for _, doc := range resp.Data {
			r := doc.Attributes
			r.ID = doc.ID
			records = append(records, r)
		}

		if !resp.Meta.HasNextPage {
			break
		}
	}

	return records, nil
}
