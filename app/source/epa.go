package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lysyi3m/alert-comb/app/alert"
)

const epaEndpoint = "cases"

type epaResponse struct {
	Results struct {
		Message   string            `json:"Message"`
		QueryRows alert.FlexString  `json:"QueryRows"`
		Cases     []alert.EPARecord `json:"Cases"`
	} `json:"Results"`
}

// EPAClient reads enforcement cases from the ECHO case REST service.
type EPAClient struct {
	fetcher  *Fetcher
	baseURL  string
	pageSize int
	maxPages int
}

func NewEPAClient(config *Config, fetcher *Fetcher) *EPAClient {
	return &EPAClient{
		fetcher:  fetcher,
		baseURL:  strings.TrimRight(config.URL, "/"),
		pageSize: config.Settings.PageSize,
		maxPages: config.Settings.MaxPages,
	}
}

func (c *EPAClient) Endpoints() []string {
	return []string{epaEndpoint}
}

func (c *EPAClient) Fetch(ctx context.Context, endpoint string, daysBack int) ([]alert.EPARecord, error) {
	from, to := window(daysBack, now())

	var records []alert.EPARecord
	for page := 1; page <= c.maxPages; page++ {
		params := url.Values{}
		params.Set("output", "JSON")
		params.Set("p_filed_date_begin", from.Format("01/02/2006"))
		params.Set("p_filed_date_end", to.Format("01/02/2006"))
		params.Set("responseset", strconv.Itoa(c.pageSize))
		params.Set("pageno", strconv.Itoa(page))

		rawURL := fmt.Sprintf("%s/case_rest_services.get_cases?%s", c.baseURL, params.Encode())

		var resp epaResponse
		if err := c.fetcher.GetJSON(ctx, rawURL, nil, &resp); err != nil {
			return nil, err
		}

		records = append(records, resp.Results.Cases...)

		if len(resp.Results.Cases) < c.pageSize {
			break
		}
	}

	return records, nil
}
