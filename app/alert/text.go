package alert

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

const maxTitleLength = 200

// CleanText strips HTML markup, applies NFC normalization and collapses
// whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}

	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
	"01/02/2006",
	"1/2/2006",
}

// parseDate accepts the date formats used by the upstream APIs and feeds.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstDate(values ...string) (time.Time, bool) {
	for _, v := range values {
		if t, ok := parseDate(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "PR": "Puerto Rico",
	"RI": "Rhode Island", "SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee",
	"TX": "Texas", "UT": "Utah", "VT": "Vermont", "VA": "Virginia",
	"WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

// ambiguousCodes are state codes that are also common uppercase words.
// They only count as states inside a delimited list.
var ambiguousCodes = map[string]bool{
	"AL": true, "CO": true, "DE": true, "HI": true, "ID": true, "IN": true, "LA": true,
	"MA": true, "ME": true, "OH": true, "OK": true, "OR": true, "PA": true,
}

var (
	stateNamePattern   *regexp.Regexp
	stateAbbrevPattern *regexp.Regexp
	nationwidePattern  = regexp.MustCompile(`(?i)\bnation\s*wide\b`)
)

func init() {
	names := make([]string, 0, len(stateNames))
	abbrevs := make([]string, 0, len(stateNames))
	for abbrev, name := range stateNames {
		names = append(names, regexp.QuoteMeta(name))
		abbrevs = append(abbrevs, abbrev)
	}
	// Longest first so "West Virginia" wins over "Virginia".
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	sort.Strings(abbrevs)

	stateNamePattern = regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)\b`)
	stateAbbrevPattern = regexp.MustCompile(`\b(` + strings.Join(abbrevs, "|") + `)\b`)
}

// StateName expands a two-letter code; unknown values are returned trimmed.
func StateName(code string) string {
	code = strings.TrimSpace(code)
	if name, ok := stateNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// statesIn lists the US states mentioned in text, by full name or
// two-letter code, in order of appearance. Repeated mentions are kept.
func statesIn(text string) []string {
	type match struct {
		pos  int
		name string
	}

	var matches []match
	covered := make([]bool, len(text))

	for _, loc := range stateNamePattern.FindAllStringIndex(text, -1) {
		canonical := text[loc[0]:loc[1]]
		for _, name := range stateNames {
			if strings.EqualFold(name, canonical) {
				canonical = name
				break
			}
		}
		matches = append(matches, match{pos: loc[0], name: canonical})
		for i := loc[0]; i < loc[1]; i++ {
			covered[i] = true
		}
	}

	for _, loc := range stateAbbrevPattern.FindAllStringIndex(text, -1) {
		if covered[loc[0]] {
			continue
		}
		if ambiguousCodes[text[loc[0]:loc[1]]] && !inStateList(text, loc[0], loc[1]) {
			continue
		}
		matches = append(matches, match{pos: loc[0], name: stateNames[text[loc[0]:loc[1]]]})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	states := make([]string, 0, len(matches))
	for _, m := range matches {
		states = append(states, m.name)
	}
	return states
}

// inStateList reports whether text[start:end] is set off like a list
// element: "CA, OR and WA", "WA/OR", "(ID)" or a trailing "and ID".
func inStateList(text string, start, end int) bool {
	before := strings.TrimRight(text[:start], " ")
	after := strings.TrimLeft(text[end:], " ")

	if before != "" && strings.ContainsRune(",;/(", rune(before[len(before)-1])) {
		return true
	}
	if after != "" && strings.ContainsRune(",;/)", rune(after[0])) {
		return true
	}

	fields := strings.Fields(before)
	if len(fields) == 0 {
		return false
	}
	prev := strings.ToLower(fields[len(fields)-1])
	return (prev == "and" || prev == "&") && (after == "" || after[0] == '.')
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// slug turns "Proposed Rule" into "proposed_rule".
func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}
