package source

import (
	"bytes"
	"cmp"
	"fmt"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

type FeedItem struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Published   string
	PublishedAt *time.Time
	Categories  []string
}

// Parser reads RSS/Atom documents. gofeed.Parser keeps per-parse state,
// so calls are serialized.
type Parser struct {
	gofeedParser *gofeed.Parser
	mu           sync.Mutex
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) ([]FeedItem, error) {
	p.mu.Lock()
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.normalizeItem(item))
	}

	return items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) FeedItem {
	normalized := FeedItem{
		GUID:        cmp.Or(item.GUID, item.Link),
		Title:       item.Title,
		Link:        item.Link,
		Description: cmp.Or(item.Description, item.Content),
		Published:   item.Published,
	}

	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		normalized.PublishedAt = &published
	} else if item.UpdatedParsed != nil {
		updated := item.UpdatedParsed.UTC()
		normalized.PublishedAt = &updated
		normalized.Published = item.Updated
	}

	if item.Categories != nil {
		normalized.Categories = item.Categories
	}

	return normalized
}
