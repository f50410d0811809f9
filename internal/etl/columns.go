package etl

import (
	"regexp"
	"sort"
	"strings"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	spaceOrDash   = regexp.MustCompile(`[ \-]+`)
)

// NormalizeColumn maps a header to snake_case: "OriginAirport Key" and
// "origin-airport-key" both become "origin_airport_key".
func NormalizeColumn(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	name = camelBoundary.ReplaceAllString(name, "${1}_${2}")
	name = spaceOrDash.ReplaceAllString(name, "_")
	return strings.ToLower(name)
}

// Record is one source row keyed by normalized column name.
type Record map[string]string

// NewRecord normalizes the keys of a raw row. When two headers normalize to
// the same column the first non-empty value wins, in header name order.
func NewRecord(raw map[string]string) Record {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := make(Record, len(raw))
	for _, k := range keys {
		v := raw[k]
		col := NormalizeColumn(k)
		if col == "" {
			continue
		}
		if existing, ok := rec[col]; ok && existing != "" {
			continue
		}
		rec[col] = strings.TrimSpace(v)
	}
	return rec
}

// Get returns the first non-empty value among the given columns.
func (r Record) Get(cols ...string) string {
	for _, c := range cols {
		if v := r[c]; !isNullish(v) {
			return v
		}
	}
	return ""
}

func isNullish(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "none", "null":
		return true
	}
	return false
}
