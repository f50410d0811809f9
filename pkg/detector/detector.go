package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// SampleLimit bounds how much of a file is read to find its header line.
const SampleLimit = 64 * 1024

var (
	ErrFileRead = errors.New("file could not be read as text")
	ErrNoSignal = errors.New("no keyword matched header or filename")
)

type Source string

const (
	SourceHeader   Source = "header"
	SourceFilename Source = "filename"
	SourceContent  Source = "content"
	SourceDefault  Source = "default"
)

// Result is the outcome of one detection. Tokens is nil when no header line
// could be read. Err is diagnostic only; Dataset is always usable.
type Result struct {
	Dataset Dataset    `json:"dataset"`
	Tokens  []string   `json:"tokens"`
	Scores  ScoreTable `json:"scores,omitempty"`
	Source  Source     `json:"source"`
	Err     error      `json:"-"`
}

type filenameRule struct {
	needles []string
	dataset Dataset
}

// filenameRules are checked in order; the first rule with a matching needle wins.
var filenameRules = []filenameRule{
	{needles: []string{"airport"}, dataset: Airport},
	{needles: []string{"airline"}, dataset: Airline},
	{needles: []string{"passeng"}, dataset: Passenger},
	{needles: []string{"flight"}, dataset: Flight},
	{needles: []string{"booking", "travel"}, dataset: TravelAgency},
	{needles: []string{"corp", "invoice"}, dataset: CorporateSales},
}

// Detect guesses which dataset a file holds. It never fails: unreadable files
// and files without signal resolve to Default.
func Detect(ctx context.Context, f File) Result {
	name := f.Name()
	lowerName := strings.ToLower(name)

	if strings.HasSuffix(lowerName, ".csv") {
		return detectFromHeader(ctx, f, SourceHeader)
	}

	if d, ok := MatchFilename(name); ok {
		return Result{Dataset: d, Source: SourceFilename}
	}

	return detectFromHeader(ctx, f, SourceContent)
}

// MatchFilename applies the filename substring rules on their own.
func MatchFilename(name string) (Dataset, bool) {
	lowerName := strings.ToLower(name)
	for _, rule := range filenameRules {
		for _, needle := range rule.needles {
			if strings.Contains(lowerName, needle) {
				return rule.dataset, true
			}
		}
	}
	return Default, false
}

func detectFromHeader(ctx context.Context, f File, source Source) Result {
	line, err := FirstLine(ctx, f)
	if err != nil {
		return Result{Dataset: Default, Source: SourceDefault, Err: err}
	}

	tokens := Normalize(line)
	scores := Score(tokens, f.Name())
	d, ok := scores.Best()
	if !ok {
		return Result{Dataset: Default, Tokens: tokens, Scores: scores, Source: SourceDefault, Err: ErrNoSignal}
	}

	return Result{Dataset: d, Tokens: tokens, Scores: scores, Source: source}
}

// FirstLine returns the first non-blank line within the first SampleLimit
// bytes of f. Content that is empty or not UTF-8 yields ErrFileRead.
func FirstLine(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileRead, err)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	defer rc.Close()

	sample, err := io.ReadAll(io.LimitReader(rc, SampleLimit))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileRead, err)
	}

	sample = trimPartialRune(sample)
	if len(sample) == 0 || !utf8.Valid(sample) || bytes.IndexByte(sample, 0) >= 0 {
		return "", ErrFileRead
	}

	lines := strings.FieldsFunc(string(sample), func(r rune) bool { return r == '\n' || r == '\r' })
	for _, line := range lines {
		if strings.TrimSpace(strings.TrimPrefix(line, "\ufeff")) != "" {
			return line, nil
		}
	}

	return "", ErrFileRead
}

// trimPartialRune drops a multi-byte sequence cut in half by the sample limit.
func trimPartialRune(b []byte) []byte {
	if len(b) < SampleLimit {
		return b
	}
	for i := 0; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return b[:len(b)-i]
		}
	}
	return b
}
