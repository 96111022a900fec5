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
	"time"

	"github.com/lysyi3m/alert-comb/app/alert"
)

// openFDA rejects skip values above this.
const fdaMaxSkip = 25000

// now is replaced in tests.
var now = time.Now

type fdaResponse struct {
	Meta struct {
		Results struct {
			Skip  int `json:"skip"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
	Results []alert.FDARecord `json:"results"`
}

// FDAClient reads openFDA enforcement reports, one endpoint per product
// category.
type FDAClient struct {
	fetcher   *Fetcher
	baseURL   string
	apiKey    string
	endpoints []string
	pageSize  int
	maxPages  int
}

func NewFDAClient(config *Config, fetcher *Fetcher, apiKey string) *FDAClient {
	return &FDAClient{
		fetcher:   fetcher,
		baseURL:   strings.TrimRight(config.URL, "/"),
		apiKey:    apiKey,
		endpoints: slices.Clone(config.Endpoints),
		pageSize:  config.Settings.PageSize,
		maxPages:  config.Settings.MaxPages,
	}
}

func (c *FDAClient) Endpoints() []string {
	return slices.Clone(c.endpoints)
}

func (c *FDAClient) Fetch(ctx context.Context, endpoint string, daysBack int) ([]alert.FDARecord, error) {
	from, to := window(daysBack, now())
	search := fmt.Sprintf("report_date:[%s TO %s]", from.Format("20060102"), to.Format("20060102"))

	var records []alert.FDARecord
	for page := 0; page < c.maxPages; page++ {
		skip := page * c.pageSize
		if skip > fdaMaxSkip {
			break
		}

		params := url.Values{}
		params.Set("search", search)
		params.Set("limit", strconv.Itoa(c.pageSize))
		if skip > 0 {
			params.Set("skip", strconv.Itoa(skip))
		}
		if c.apiKey != "" {
			params.Set("api_key", c.apiKey)
		}

		rawURL := fmt.Sprintf("%s/%s/enforcement.json?%s", c.baseURL, endpoint, params.Encode())

		var resp fdaResponse
		if err := c.fetcher.GetJSON(ctx, rawURL, nil, &resp); err != nil {
			// openFDA answers 404 when nothing matches the search.
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				break
			}
			return nil, err
		}

		for _, r := range resp.Results {
			r.Endpoint = endpoint
			records = append(records, r)
		}

		if len(resp.Results) < c.pageSize || len(records) >= resp.Meta.Results.Total {
			break
		}
	}

	return records, nil
}
