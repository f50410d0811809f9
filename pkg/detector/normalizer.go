package detector

import (
	"regexp"
	"strings"
)

var (
	fieldSeparators = regexp.MustCompile(`[,;\t|]`)
	spaceOrHyphen   = regexp.MustCompile(`[\s-]+`)
)

// synonyms rewrites whole tokens to their canonical form. New aliases go here.
var synonyms = map[string]string{
	"iata":         "airportkey",
	"iata_code":    "airportkey",
	"airport_code": "airportkey",
	"icao":         "icao",
	"icao_code":    "icao",
}

// Normalize turns a raw header line into canonical tokens. Source order and
// duplicates are preserved.
func Normalize(rawLine string) []string {
	rawLine = strings.TrimPrefix(rawLine, "\ufeff")
	if strings.TrimSpace(rawLine) == "" {
		return []string{}
	}

	fields := fieldSeparators.Split(rawLine, -1)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.ToLower(strings.TrimSpace(field))
		token = spaceOrHyphen.ReplaceAllString(token, "_")
		if token == "" {
			continue
		}
		if canonical, ok := synonyms[token]; ok {
			token = canonical
		}
		tokens = append(tokens, token)
	}

	return tokens
}
