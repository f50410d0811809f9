package etl

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

var countryAliases = map[string]string{
	"us":    "United States",
	"usa":   "United States",
	"u s a": "United States",
	"u s":   "United States",
	"uk":    "United Kingdom",
	"u k":   "United Kingdom",
}

type converter func(string) any

func text(v string) any {
	v = strings.Join(strings.Fields(strings.Trim(v, `"'`)), " ")
	if isNullish(v) {
		return nil
	}
	return v
}

func upper(v string) any {
	if s, ok := text(v).(string); ok {
		return strings.ToUpper(s)
	}
	return nil
}

func title(v string) any {
	if s, ok := text(v).(string); ok {
		return titleCaser.String(strings.ToLower(s))
	}
	return nil
}

func integer(v string) any {
	f, ok := number(v).(float64)
	if !ok {
		return nil
	}
	return int64(f)
}

func number(v string) any {
	v = strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(v))
	if isNullish(v) {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return f
}

func date(v string) any {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return nil
}

func country(v string) any {
	s, ok := text(v).(string)
	if !ok {
		return nil
	}
	key := strings.TrimSpace(strings.NewReplacer(".", "", ",", "").Replace(strings.ToLower(s)))
	if canonical, ok := countryAliases[key]; ok {
		return canonical
	}
	return s
}
