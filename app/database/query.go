package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dialect holds what differs between the SQLite and Postgres alert queries.
type dialect struct {
	marker  string // bind marker prefix, followed by the 1-based argument index
	like    string
	timeArg func(time.Time) any
}

var (
	sqliteDialect   = dialect{marker: "?", like: "LIKE", timeArg: func(t time.Time) any { return formatTime(t) }}
	postgresDialect = dialect{marker: "$", like: "ILIKE", timeArg: func(t time.Time) any { return t.UTC() }}
)

// listQuery renders the WHERE, ORDER BY and LIMIT tail of an alert listing.
func (d dialect) listQuery(filter AlertFilter) (string, []any) {
	var conditions []string
	var args []any

	bind := func(arg any) string {
		args = append(args, arg)
		return d.marker + strconv.Itoa(len(args))
	}

	if filter.Source != "" {
		conditions = append(conditions, "source = "+bind(string(filter.Source)))
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = "+bind(string(filter.Severity)))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = "+bind(filter.Category))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		m := bind("%" + q + "%")
		conditions = append(conditions, fmt.Sprintf("(title %s %s OR summary %s %s)", d.like, m, d.like, m))
	}
	if filter.Since != nil {
		conditions = append(conditions, "date_published >= "+bind(d.timeArg(*filter.Since)))
	}

	var sb strings.Builder
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY date_published DESC, external_id LIMIT ")
	sb.WriteString(bind(filter.limit()))

	return sb.String(), args
}

// Fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(data string) ([]string, error) {
	values := []string{}
	if data == "" || data == "null" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return values, nil
}

// encodeRaw returns the raw record as JSON text, or nil when absent.
func encodeRaw(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw record: %w", err)
	}
	return string(data), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
