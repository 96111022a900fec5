package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/alert-comb/app/database"
)

// Channel describes the RSS channel an alert listing is rendered into.
type Channel struct {
	Name        string // path segment under /feeds/
	Title       string
	Description string
	Link        string
}

type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: version,
	}
}

func (g *Generator) Run(channel Channel, alerts []database.StoredAlert) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	selfLink := fmt.Sprintf("%s/feeds/%s", g.baseURL, channel.Name)

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", cmp.Or(channel.Link, selfLink), 4)
	description := channel.Description
	if description == "" {
		description = fmt.Sprintf("Regulatory alerts from %s", channel.Title)
	}
	g.writeElement(&buf, "description", description, 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(alerts) > 0 {
		lastBuildDate = cmp.Or(alerts[0].DatePublished, alerts[0].CreatedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Alert-Comb/%s", g.version), 4)
	g.writeElement(&buf, "language", "en-us", 4)

	for _, a := range alerts {
		g.writeItem(&buf, a)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, a database.StoredAlert) {
	buf.WriteString("    <item>\n")

	guid := cmp.Or(a.LinkURL, fmt.Sprintf("%s:%s", a.Source, a.ExternalID))
	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(guid)))
	xml.EscapeText(buf, []byte(guid))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", fmt.Sprintf("[%s] %s", a.Severity, a.Title), 6)

	if a.LinkURL != "" {
		g.writeElement(buf, "link", a.LinkURL, 6)
	}

	g.writeElement(buf, "description", cmp.Or(a.Summary, "No description available"), 6)

	if !a.DatePublished.IsZero() {
		g.writeElement(buf, "pubDate", a.DatePublished.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "category", string(a.Source), 6)
	g.writeElement(buf, "category", a.Category, 6)
	for _, productType := range a.ProductTypes {
		g.writeElement(buf, "category", productType, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
