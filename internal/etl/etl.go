package etl

import (
	"errors"
	"fmt"

	"AirlineETL/pkg/detector"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNoCleaner = errors.New("no cleaner for dataset")

// CleanedRow is one row ready for the cleaned store. Key is the business key
// rows are upserted on.
type CleanedRow struct {
	Key    string            `json:"key"`
	Fields map[string]any    `json:"fields"`
	Raw    map[string]string `json:"raw"`
}

type RowError struct {
	Index   int               `json:"index"`
	Raw     map[string]string `json:"raw"`
	Message string            `json:"message"`
}

type Outcome struct {
	Rows       []CleanedRow
	Errors     []RowError
	Duplicates int
}

type Cleaner interface {
	Dataset() detector.Dataset
	Clean(rows []map[string]string) Outcome
}

type field struct {
	name    string
	aliases []string
	convert converter
}

// schema describes one dataset's cleaned shape. key names the field used as
// business key; derive runs after field conversion and may fill gaps.
type schema struct {
	dataset detector.Dataset
	key     string
	fields  []field
	derive  func(rec Record, out map[string]any)
}

func (s *schema) Dataset() detector.Dataset {
	return s.dataset
}

func (s *schema) Clean(rows []map[string]string) Outcome {
	var outcome Outcome
	seen := make(map[string]struct{}, len(rows))

	for i, raw := range rows {
		fingerprint, err := json.Marshal(raw)
		if err == nil {
			if _, dup := seen[string(fingerprint)]; dup {
				outcome.Duplicates++
				continue
			}
			seen[string(fingerprint)] = struct{}{}
		}

		rec := NewRecord(raw)
		out := make(map[string]any, len(s.fields))
		for _, f := range s.fields {
			value := rec.Get(append([]string{f.name}, f.aliases...)...)
			convert := f.convert
			if convert == nil {
				convert = text
			}
			out[f.name] = convert(value)
		}
		if s.derive != nil {
			s.derive(rec, out)
		}

		key, _ := out[s.key].(string)
		if key == "" {
			outcome.Errors = append(outcome.Errors, RowError{
				Index:   i,
				Raw:     raw,
				Message: fmt.Sprintf("missing %s", s.key),
			})
			continue
		}

		outcome.Rows = append(outcome.Rows, CleanedRow{Key: key, Fields: out, Raw: raw})
	}

	return outcome
}

// For returns the cleaner registered for a dataset.
func For(d detector.Dataset) (Cleaner, error) {
	c, ok := registry[d]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoCleaner, d)
	}
	return c, nil
}
