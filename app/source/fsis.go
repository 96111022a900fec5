package source

import (
	"context"

	"github.com/lysyi3m/alert-comb/app/alert"
)

const fsisEndpoint = "recalls"

// FSISClient reads the FSIS recall and public health alert feed.
type FSISClient struct {
	fetcher *Fetcher
	parser  *Parser
	feedURL string
}

func NewFSISClient(config *Config, fetcher *Fetcher, parser *Parser) *FSISClient {
	return &FSISClient{
		fetcher: fetcher,
		parser:  parser,
		feedURL: config.URL,
	}
}

func (c *FSISClient) Endpoints() []string {
	return []string{fsisEndpoint}
}

func (c *FSISClient) Fetch(ctx context.Context, endpoint string, daysBack int) ([]alert.FSISRecord, error) {
	data, err := c.fetcher.Get(ctx, c.feedURL, nil)
	if err != nil {
		return nil, err
	}

	items, err := c.parser.Run(data)
	if err != nil {
		return nil, err
	}

	from, _ := window(daysBack, now())

	records := make([]alert.FSISRecord, 0, len(items))
	for _, item := range items {
		// Undated items are kept; the mapper dates them.
		if item.PublishedAt != nil && item.PublishedAt.Before(from) {
			continue
		}
		records = append(records, alert.FSISRecord{
			GUID:        item.GUID,
			Title:       item.Title,
			Description: item.Description,
			Link:        item.Link,
			PubDate:     item.Published,
			PublishedAt: item.PublishedAt,
			Categories:  item.Categories,
		})
	}

	return records, nil
}
