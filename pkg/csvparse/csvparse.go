package csvparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const sniffWindow = 8 * 1024

var candidateDelimiters = []rune{',', ';', '\t', '|'}

var ErrEmpty = errors.New("empty file")

type Table struct {
	Header    []string
	Rows      [][]string
	Delimiter rune
	Warnings  []string
}

// Records pairs every row with the header.
func (t *Table) Records() []map[string]string {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]string, len(t.Header))
		for i, col := range t.Header {
			record[col] = row[i]
		}
		records = append(records, record)
	}
	return records
}

// Decode returns content as UTF-8 text, reading it as Latin-1 when it is not
// valid UTF-8.
func Decode(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(decoded), nil
}

// Sniff picks the delimiter that splits the leading lines most consistently.
func Sniff(sample string) rune {
	if len(sample) > sniffWindow {
		sample = sample[:sniffWindow]
	}

	var lines []string
	for _, line := range strings.Split(sample, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		if len(lines) == 10 {
			break
		}
	}
	// the last line may have been cut by the window
	if len(sample) == sniffWindow && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}

	best, bestScore := ',', 0
	for _, d := range candidateDelimiters {
		minCount := -1
		for _, line := range lines {
			n := strings.Count(line, string(d))
			if minCount == -1 || n < minCount {
				minCount = n
			}
		}
		if minCount > bestScore {
			best, bestScore = d, minCount
		}
	}

	return best
}

// Parse reads delimited text tolerantly. Rows longer than the header have
// their extra fields merged into the last column; shorter rows are padded.
// Every repair is reported in Table.Warnings.
func Parse(content []byte) (*Table, error) {
	text, err := Decode(content)
	if err != nil {
		return nil, err
	}
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	delimiter := Sniff(text)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	table := &Table{Delimiter: delimiter}
	for _, h := range header {
		table.Header = append(table.Header, strings.TrimSpace(h))
	}
	ncols := len(table.Header)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			table.Warnings = append(table.Warnings, fmt.Sprintf("unreadable row: %v", err))
			continue
		}
		line, _ := reader.FieldPos(0)

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		switch {
		case len(record) > ncols:
			merged := strings.Join(record[ncols-1:], string(delimiter))
			table.Warnings = append(table.Warnings, fmt.Sprintf(
				"merged_extra_fields at line %d: expected %d saw %d (merged extras into last field)", line, ncols, len(record)))
			record = append(record[:ncols-1:ncols-1], merged)
		case len(record) < ncols:
			table.Warnings = append(table.Warnings, fmt.Sprintf(
				"padded_missing_fields at line %d: expected %d saw %d (padded with empty strings)", line, ncols, len(record)))
			record = append(record, make([]string, ncols-len(record))...)
		}

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// Escape quotes a single cell the way spreadsheet tools expect.
func Escape(cell string) string {
	text := strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(cell))
	if strings.ContainsAny(text, `,"`) {
		return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
	}
	return text
}

// Join writes rows as comma separated lines.
func Join(rows [][]string) string {
	var buf bytes.Buffer
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(Escape(cell))
		}
	}
	return buf.String()
}

const looksLikeCSVWindow = 4096

// LooksLikeCSV reports whether the leading bytes read as delimited text: at
// least one line break and one of the common delimiters.
func LooksLikeCSV(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	if len(content) > looksLikeCSVWindow {
		content = content[:looksLikeCSVWindow]
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return false
	}

	text, err := Decode(content)
	if err != nil {
		return false
	}
	return strings.Contains(text, "\n") && strings.ContainsAny(text, ",;\t")
}
