package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/lysyi3m/alert-comb/app/alert"
)

const cdcOutbreaksEndpoint = "outbreaks"

// CDCClient reads CDC advisory feeds and, when configured, the outbreak
// investigation list.
type CDCClient struct {
	fetcher      *Fetcher
	parser       *Parser
	feeds        []FeedConfig
	outbreaksURL string
}

func NewCDCClient(config *Config, fetcher *Fetcher, parser *Parser) *CDCClient {
	return &CDCClient{
		fetcher:      fetcher,
		parser:       parser,
		feeds:        slices.Clone(config.Feeds),
		outbreaksURL: config.OutbreaksURL,
	}
}

func (c *CDCClient) Endpoints() []string {
	endpoints := make([]string, 0, len(c.feeds)+1)
	for _, feed := range c.feeds {
		endpoints = append(endpoints, feed.Name)
	}
	if c.outbreaksURL != "" {
		endpoints = append(endpoints, cdcOutbreaksEndpoint)
	}
	return endpoints
}

func (c *CDCClient) Fetch(ctx context.Context, endpoint string, daysBack int) ([]alert.CDCRecord, error) {
	if endpoint == cdcOutbreaksEndpoint && c.outbreaksURL != "" {
		return c.fetchOutbreaks(ctx, daysBack)
	}

	for _, feed := range c.feeds {
		if feed.Name == endpoint {
			return c.fetchFeed(ctx, feed, daysBack)
		}
	}
	return nil, fmt.Errorf("unknown CDC endpoint '%s'", endpoint)
}

func (c *CDCClient) fetchFeed(ctx context.Context, feed FeedConfig, daysBack int) ([]alert.CDCRecord, error) {
	data, err := c.fetcher.Get(ctx, feed.URL, nil)
	if err != nil {
		return nil, err
	}

	items, err := c.parser.Run(data)
	if err != nil {
		return nil, err
	}

	from, _ := window(daysBack, now())

	records := make([]alert.CDCRecord, 0, len(items))
	for _, item := range items {
		if item.PublishedAt != nil && item.PublishedAt.Before(from) {
			continue
		}
		records = append(records, alert.CDCRecord{
			Kind:        alert.CDCAdvisory,
			Feed:        feed.Name,
			ID:          item.GUID,
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

func (c *CDCClient) fetchOutbreaks(ctx context.Context, daysBack int) ([]alert.CDCRecord, error) {
	data, err := c.fetcher.Get(ctx, c.outbreaksURL, nil)
	if err != nil {
		return nil, err
	}

	decoded, err := decodeOutbreaks(data)
	if err != nil {
		return nil, err
	}

	from, _ := window(daysBack, now())

	records := make([]alert.CDCRecord, 0, len(decoded))
	for _, r := range decoded {
		r.Feed = cdcOutbreaksEndpoint
		// An investigation start date is what marks an outbreak.
		if r.InvestigationStartDate != "" {
			r.Kind = alert.CDCOutbreak
		} else {
			r.Kind = alert.CDCAdvisory
		}

		if latest, ok := latestDate(r.InvestigationStartDate, r.LastUpdated, r.PubDate); ok && latest.Before(from) {
			continue
		}
		records = append(records, r)
	}

	return records, nil
}

// decodeOutbreaks accepts a bare JSON array or an {"outbreaks": [...]}
// envelope.
func decodeOutbreaks(data []byte) ([]alert.CDCRecord, error) {
	data = bytes.TrimSpace(data)

	var records []alert.CDCRecord
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to decode outbreak list: %w", err)
		}
		return records, nil
	}

	var envelope struct {
		Outbreaks []alert.CDCRecord `json:"outbreaks"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode outbreak list: %w", err)
	}
	return envelope.Outbreaks, nil
}

func latestDate(values ...string) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, v := range values {
		for _, layout := range []string{time.RFC3339, "2006-01-02", time.RFC1123Z, time.RFC1123} {
			if t, err := time.Parse(layout, v); err == nil {
				if !found || t.After(latest) {
					latest = t
				}
				found = true
				break
			}
		}
	}
	return latest, found
}
