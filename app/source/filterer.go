package source

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/alert-comb/app/alert"
)

var validFilterFields = map[string]bool{
	"title":         true,
	"summary":       true,
	"category":      true,
	"severity":      true,
	"locations":     true,
	"product_types": true,
	"link":          true,
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run reports whether the alert is excluded by the filters, and why.
func (f *Filterer) Run(a alert.NormalizedAlert, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(a, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(a alert.NormalizedAlert, field string) string {
	switch field {
	case "title":
		return a.Title
	case "summary":
		return a.Summary
	case "category":
		return a.Category
	case "severity":
		return string(a.Severity)
	case "locations":
		return strings.Join(a.Locations, " ")
	case "product_types":
		return strings.Join(a.ProductTypes, " ")
	case "link":
		return a.LinkURL
	default:
		return ""
	}
}
